package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clio-ai/clio/pkg/config"
	"github.com/clio-ai/clio/pkg/embedder"
	"github.com/clio-ai/clio/pkg/rag"
	"github.com/clio-ai/clio/pkg/vector"
)

func newSearchStore(t *testing.T) *rag.Store {
	t.Helper()

	idx, err := vector.NewChromemIndex("test")
	require.NoError(t, err)

	cfg := &config.StoreConfig{}
	cfg.SetDefaults()

	store, err := rag.NewStore(cfg, idx, embedder.NewDeterministic(32), nil)
	require.NoError(t, err)
	return store
}

func TestSearchToolReturnsCitations(t *testing.T) {
	ctx := context.Background()
	store := newSearchStore(t)

	_, err := store.AddDocuments(ctx, []rag.Document{
		{Content: "The Black Death reached Europe in 1347.", Filename: "plague.pdf", Page: "4", Source: "plague.pdf"},
	})
	require.NoError(t, err)

	tool := NewSearchTool(store, 5)
	result, err := tool.Execute(ctx, map[string]any{
		"query": "The Black Death reached Europe in 1347.",
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Contains(t, result.Content, "Source 1: plague.pdf")
	assert.Contains(t, result.Content, "Page 4")
}

func TestSearchToolEmptyCorpus(t *testing.T) {
	tool := NewSearchTool(newSearchStore(t), 5)

	result, err := tool.Execute(context.Background(), map[string]any{"query": "anything"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "No sources found.", result.Content)
}

func TestSearchToolMissingQuery(t *testing.T) {
	tool := NewSearchTool(newSearchStore(t), 5)

	_, err := tool.Execute(context.Background(), map[string]any{})
	require.Error(t, err)

	var execErr *ExecutionError
	assert.ErrorAs(t, err, &execErr)
}

func TestSearchToolLimitArgument(t *testing.T) {
	info := NewSearchTool(newSearchStore(t), 5).GetInfo()

	def := info.Definition()
	required := def.Parameters["required"].([]string)
	assert.Equal(t, []string{"query"}, required, "limit has a default and must not be required")
}
