package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/clio-ai/clio/pkg/rag"
)

// SearchTool queries the indexed document corpus and returns matching
// passages with their source citations.
type SearchTool struct {
	store *rag.Store
	limit int
}

func NewSearchTool(store *rag.Store, limit int) *SearchTool {
	if limit <= 0 {
		limit = 5
	}
	return &SearchTool{store: store, limit: limit}
}

func (t *SearchTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "search_corpus",
		Description: "Search the indexed documents for passages relevant to a topic. Returns matching excerpts with their source file and page.",
		Parameters: []ToolParameter{
			{
				Name:        "query",
				Type:        "string",
				Description: "What to look for in the indexed documents.",
			},
			{
				Name:        "limit",
				Type:        "int",
				Description: "Maximum number of passages to return.",
				Default:     5,
			},
		},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		err := fmt.Errorf("query is required")
		return ToolResult{ToolName: "search_corpus", Error: err.Error()},
			&ExecutionError{Name: "search_corpus", Err: err}
	}

	limit := t.limit
	// JSON numbers decode as float64.
	if n, ok := args["limit"].(float64); ok && int(n) > 0 {
		limit = int(n)
	}

	hits, err := t.store.Search(ctx, query, limit)
	if err != nil {
		return ToolResult{ToolName: "search_corpus", Error: err.Error()},
			&ExecutionError{Name: "search_corpus", Err: err}
	}

	return ToolResult{
		Success:  true,
		ToolName: "search_corpus",
		Content:  rag.FormatCitations(hits),
	}, nil
}

var _ Tool = (*SearchTool)(nil)
