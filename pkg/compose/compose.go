// Package compose turns fused evidence into a grounded, streamed answer.
package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/jurisgraph/jurisgraph/pkg/types"
)

// TokenFunc receives each answer chunk as it is produced. The callback is
// invoked from the composing goroutine; implementations must not block for
// long.
type TokenFunc func(token string)

// Composition is the structured result of composing an answer over evidence.
type Composition struct {
	// Answer is the full composed text, identical to the concatenation of
	// the streamed tokens.
	Answer string
	// EvidenceIDs lists the entity ids the answer actually cites, in the
	// order they were handed to the composer.
	EvidenceIDs []string
	// Confidence is the composer's self-reported grounding confidence in
	// [0, 1].
	Confidence float64
}

// Client composes answers and summaries from graph evidence.
type Client interface {
	// Compose writes an answer to the query grounded in the given
	// evidence, invoking onToken for each chunk as it streams. onToken
	// may be nil.
	Compose(ctx context.Context, query string, evidence []types.FusedResult, onToken TokenFunc) (*Composition, error)

	// Summarize condenses two summaries into one. Used when building the
	// community layer, where member summaries are folded pairwise.
	Summarize(ctx context.Context, left, right string) (string, error)

	Close() error
}

// Config holds composition model settings.
type Config struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

const answerSystemPrompt = `You are a legal research assistant. Answer the question using ONLY the numbered evidence passages provided. Cite passages inline as [n]. If the evidence does not support an answer, say so plainly.

After the answer, on a new line, output a JSON object:
{"evidence_ids": [<ids of passages actually used>], "confidence": <0.0-1.0>}`

const summarizeSystemPrompt = `Merge the two summaries below into one concise summary of at most three sentences. Keep the legal concepts and instrument names from both.`

// buildEvidenceBlock renders fused evidence as numbered passages.
func buildEvidenceBlock(evidence []types.FusedResult) string {
	var b strings.Builder
	for i, ev := range evidence {
		fmt.Fprintf(&b, "[%d] (%s) %s", i+1, ev.EntityID, ev.Citation.Title)
		if ev.Citation.Snippet != "" {
			fmt.Fprintf(&b, ": %s", ev.Citation.Snippet)
		}
		b.WriteString("\n")
	}
	return b.String()
}
