// Package vector provides embedded vector storage for similarity search.
package vector

import "context"

// Entry is a document chunk with its precomputed embedding.
type Entry struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// Result is a similarity search hit. Score is cosine similarity in [0, 1]
// for normalized vectors; higher is more similar.
type Result struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]string
}

// Index stores embeddings and answers nearest-neighbor queries.
type Index interface {
	// Add inserts entries with precomputed vectors.
	Add(ctx context.Context, entries []Entry) error

	// Search returns up to topK most similar entries. Requests for more
	// results than the index holds are clamped, never an error.
	Search(ctx context.Context, vector []float32, topK int) ([]Result, error)

	// Count reports the number of stored entries.
	Count() int

	// Export writes the index to a file.
	Export(path string) error

	// Import replaces the index contents with a previously exported file.
	Import(path string) error

	// Reset drops all entries.
	Reset(ctx context.Context) error

	Close() error
}
