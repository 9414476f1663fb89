package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/jurisgraph/jurisgraph/pkg/types"
)

// Fixture is a deterministic composer for tests and fixture mode. It writes
// a template answer citing every passage it was given and streams it word by
// word, so streaming behavior is exercised without a model endpoint.
type Fixture struct{}

// NewFixture returns the deterministic fixture composer.
func NewFixture() *Fixture { return &Fixture{} }

// Compose implements Client.
func (f *Fixture) Compose(ctx context.Context, query string, evidence []types.FusedResult, onToken TokenFunc) (*Composition, error) {
	var b strings.Builder
	if len(evidence) == 0 {
		b.WriteString("No evidence in the graph supports an answer to this question.")
	} else {
		fmt.Fprintf(&b, "Based on %d evidence passages: ", len(evidence))
		for i, ev := range evidence {
			if i > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s [%d]", ev.Citation.Title, i+1)
		}
		b.WriteString(".")
	}
	answer := b.String()

	for i, word := range strings.Fields(answer) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if onToken != nil {
			if i > 0 {
				onToken(" ")
			}
			onToken(word)
		}
	}

	confidence := 0.0
	if len(evidence) > 0 {
		confidence = 0.9
	}
	return &Composition{
		Answer:      answer,
		EvidenceIDs: allEvidenceIDs(evidence),
		Confidence:  confidence,
	}, nil
}

// Summarize implements Client.
func (f *Fixture) Summarize(ctx context.Context, left, right string) (string, error) {
	left = strings.TrimSpace(left)
	right = strings.TrimSpace(right)
	switch {
	case left == "":
		return right, nil
	case right == "":
		return left, nil
	}
	return left + " " + right, nil
}

// Close implements Client.
func (f *Fixture) Close() error { return nil }

var _ Client = (*Fixture)(nil)
