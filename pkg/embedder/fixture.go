package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// FixtureDimensions is the vector length of the fixture embedder.
const FixtureDimensions = 64

// Fixture is a deterministic embedder for tests and fixture-store mode: each
// lowercased token is hashed into a bucket of a fixed-length bag-of-words
// vector, which is then L2-normalized. Texts sharing vocabulary score higher
// cosine similarity than unrelated texts, and the same input always yields
// the same vector.
type Fixture struct{}

// NewFixture returns the deterministic fixture embedder.
func NewFixture() *Fixture { return &Fixture{} }

// Embed implements Client.
func (f *Fixture) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashEmbed(t)
	}
	return out, nil
}

// EmbedSingle implements Client.
func (f *Fixture) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return hashEmbed(text), nil
}

// Dimensions implements Client.
func (f *Fixture) Dimensions() int { return FixtureDimensions }

// Close implements Client.
func (f *Fixture) Close() error { return nil }

func hashEmbed(text string) []float32 {
	vec := make([]float32, FixtureDimensions)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%FixtureDimensions]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var _ Client = (*Fixture)(nil)
