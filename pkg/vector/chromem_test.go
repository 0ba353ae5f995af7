package vector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntries() []Entry {
	return []Entry{
		{ID: "a", Content: "the fall of Constantinople", Vector: []float32{1, 0, 0}, Metadata: map[string]string{"page": "1"}},
		{ID: "b", Content: "the printing press", Vector: []float32{0, 1, 0}, Metadata: map[string]string{"page": "2"}},
		{ID: "c", Content: "the age of sail", Vector: []float32{0, 0, 1}, Metadata: map[string]string{"page": "3"}},
	}
}

func TestSearchReturnsNearestFirst(t *testing.T) {
	ctx := context.Background()
	idx, err := NewChromemIndex("facts")
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, testEntries()))

	results, err := idx.Search(ctx, []float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Equal(t, "1", results[0].Metadata["page"])
}

func TestSearchClampsTopK(t *testing.T) {
	ctx := context.Background()
	idx, err := NewChromemIndex("facts")
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, testEntries()))

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchEmptyIndex(t *testing.T) {
	ctx := context.Background()
	idx, err := NewChromemIndex("facts")
	require.NoError(t, err)

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index", "vectors.gob")

	idx, err := NewChromemIndex("facts")
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, testEntries()))
	require.NoError(t, idx.Export(path))

	restored, err := NewChromemIndex("facts")
	require.NoError(t, err)
	require.NoError(t, restored.Import(path))

	assert.Equal(t, 3, restored.Count())

	results, err := restored.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, "the printing press", results[0].Content)
}

func TestImportReplacesExistingContents(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.gob")

	small, err := NewChromemIndex("facts")
	require.NoError(t, err)
	require.NoError(t, small.Add(ctx, testEntries()[:1]))
	require.NoError(t, small.Export(path))

	idx, err := NewChromemIndex("facts")
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, testEntries()))
	require.Equal(t, 3, idx.Count())

	require.NoError(t, idx.Import(path))
	assert.Equal(t, 1, idx.Count())
}

func TestResetDropsAllEntries(t *testing.T) {
	ctx := context.Background()
	idx, err := NewChromemIndex("facts")
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, testEntries()))

	require.NoError(t, idx.Reset(ctx))
	assert.Equal(t, 0, idx.Count())

	// Index stays usable after reset.
	require.NoError(t, idx.Add(ctx, testEntries()[:1]))
	assert.Equal(t, 1, idx.Count())
}
