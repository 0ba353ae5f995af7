package vector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemIndex implements Index on chromem-go, an embedded pure-Go vector
// store with cosine similarity search. All vectors live in memory; Export
// and Import provide file persistence.
type ChromemIndex struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	name       string
}

// identityEmbed rejects calls: vectors are always precomputed by the
// embedder package, chromem must never embed on its own.
func identityEmbed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding function called but vectors are precomputed")
}

// NewChromemIndex creates an in-memory index with a single named collection.
func NewChromemIndex(name string) (*ChromemIndex, error) {
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(name, nil, identityEmbed)
	if err != nil {
		return nil, fmt.Errorf("creating collection %q: %w", name, err)
	}

	return &ChromemIndex{
		db:         db,
		collection: collection,
		name:       name,
	}, nil
}

func (x *ChromemIndex) Add(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, chromem.Document{
			ID:        e.ID,
			Content:   e.Content,
			Metadata:  e.Metadata,
			Embedding: e.Vector,
		})
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	return nil
}

func (x *ChromemIndex) Search(ctx context.Context, vector []float32, topK int) ([]Result, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	// chromem errors when topK exceeds the collection size; clamp instead.
	count := x.collection.Count()
	if topK > count {
		topK = count
	}
	if topK <= 0 {
		return nil, nil
	}

	hits, err := x.collection.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			ID:       h.ID,
			Score:    h.Similarity,
			Content:  h.Content,
			Metadata: h.Metadata,
		})
	}
	return results, nil
}

func (x *ChromemIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.collection.Count()
}

func (x *ChromemIndex) Export(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
	}
	if err := x.db.ExportToFile(path, true, ""); err != nil {
		return fmt.Errorf("exporting index: %w", err)
	}
	return nil
}

// Import replaces the current contents with the exported file at path. The
// previous contents are discarded before the import to keep replacement
// semantics even when the stored file holds fewer entries.
func (x *ChromemIndex) Import(path string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	db := chromem.NewDB()
	if err := db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("importing index: %w", err)
	}

	collection, err := db.GetOrCreateCollection(x.name, nil, identityEmbed)
	if err != nil {
		return fmt.Errorf("opening imported collection %q: %w", x.name, err)
	}

	x.db = db
	x.collection = collection
	return nil
}

func (x *ChromemIndex) Reset(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.db.DeleteCollection(x.name); err != nil {
		return fmt.Errorf("resetting index: %w", err)
	}
	collection, err := x.db.GetOrCreateCollection(x.name, nil, identityEmbed)
	if err != nil {
		return fmt.Errorf("recreating collection %q: %w", x.name, err)
	}
	x.collection = collection
	return nil
}

func (x *ChromemIndex) Close() error {
	return nil
}

var _ Index = (*ChromemIndex)(nil)
