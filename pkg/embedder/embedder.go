// Package embedder converts query and document text to fixed-length vectors.
package embedder

import "context"

// Client is the embedding service consumed by the retrieval agents. A
// single client instance is long-lived and shared across concurrent
// requests.
type Client interface {
	// Embed generates embeddings for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector length.
	Dimensions() int

	// Close cleans up any resources.
	Close() error
}

// Config holds settings common to embedding clients.
type Config struct {
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}
