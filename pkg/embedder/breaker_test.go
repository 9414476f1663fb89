package embedder

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jurisgraph/jurisgraph/pkg/config"
	"github.com/jurisgraph/jurisgraph/pkg/types"
)

type flakyClient struct {
	failing bool
}

func (f *flakyClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.failing {
		return nil, types.ErrEmbeddingUnavailable
	}
	return make([][]float32, len(texts)), nil
}

func (f *flakyClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if f.failing {
		return nil, types.ErrEmbeddingUnavailable
	}
	return make([]float32, FixtureDimensions), nil
}

func (f *flakyClient) Dimensions() int { return FixtureDimensions }
func (f *flakyClient) Close() error    { return nil }

type recordingAlerter struct {
	mu       sync.Mutex
	subjects []string
}

func (r *recordingAlerter) Alert(subject, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	return nil
}

func breakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         60,
		Timeout:          60,
		ReadyToTripRatio: 0.6,
	}
}

func TestCircuitBreakerPassesThrough(t *testing.T) {
	inner := &flakyClient{}
	cb := NewCircuitBreakerClient(inner, breakerConfig(), &recordingAlerter{}, nil, "embedding")

	vec, err := cb.EmbedSingle(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, vec, FixtureDimensions)

	vecs, err := cb.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, FixtureDimensions, cb.Dimensions())
}

func TestCircuitBreakerTripsAndAlerts(t *testing.T) {
	inner := &flakyClient{failing: true}
	alerter := &recordingAlerter{}
	cb := NewCircuitBreakerClient(inner, breakerConfig(), alerter, nil, "embedding")

	// Three consecutive failures exceed the trip ratio.
	for i := 0; i < 3; i++ {
		_, err := cb.EmbedSingle(context.Background(), "text")
		assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
	}

	// The circuit is open: calls fail fast without reaching the client.
	inner.failing = false
	_, err := cb.EmbedSingle(context.Background(), "text")
	require.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrEmbeddingUnavailable)

	alerter.mu.Lock()
	defer alerter.mu.Unlock()
	require.Len(t, alerter.subjects, 1)
	assert.Contains(t, alerter.subjects[0], "Circuit breaker tripped")
}
