package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jurisgraph/jurisgraph/pkg/graph"
)

func TestFixtureDeterministic(t *testing.T) {
	f := NewFixture()
	ctx := context.Background()

	a, err := f.EmbedSingle(ctx, "civil liability for damages")
	require.NoError(t, err)
	b, err := f.EmbedSingle(ctx, "civil liability for damages")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, FixtureDimensions)
}

func TestFixtureNormalized(t *testing.T) {
	f := NewFixture()
	vec, err := f.EmbedSingle(context.Background(), "good faith in contract performance")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestFixtureSimilarityOrdering(t *testing.T) {
	f := NewFixture()
	ctx := context.Background()

	query, err := f.EmbedSingle(ctx, "liability for damages caused by fault")
	require.NoError(t, err)
	related, err := f.EmbedSingle(ctx, "civil liability for fault and reparation of damages")
	require.NoError(t, err)
	unrelated, err := f.EmbedSingle(ctx, "gazette issue publishing reform")
	require.NoError(t, err)

	assert.Greater(t, graph.Cosine(query, related), graph.Cosine(query, unrelated))
}

func TestFixtureEmptyText(t *testing.T) {
	f := NewFixture()
	vec, err := f.EmbedSingle(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, vec, FixtureDimensions)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestFixtureEmbedBatch(t *testing.T) {
	f := NewFixture()
	vecs, err := f.Embed(context.Background(), []string{"a", "b", "a"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, vecs[0], vecs[2])
}
