// Package embedder provides text embedding for the retrieval index.
package embedder

import "context"

// Embedder converts text into dense vectors.
type Embedder interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the vector width this embedder produces.
	Dimension() int

	Close() error
}
