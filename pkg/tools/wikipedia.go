package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clio-ai/clio/pkg/httpclient"
)

const defaultWikipediaBase = "https://en.wikipedia.org"

// WikipediaTool looks up topic summaries on Wikipedia. It first searches
// for the closest matching article title, then fetches its summary via the
// REST API.
type WikipediaTool struct {
	baseURL    string
	httpClient *httpclient.Client
}

type wikipediaOption func(*WikipediaTool)

// WithWikipediaBaseURL overrides the API host, used by tests.
func WithWikipediaBaseURL(base string) wikipediaOption {
	return func(t *WikipediaTool) {
		t.baseURL = strings.TrimRight(base, "/")
	}
}

func NewWikipediaTool(opts ...wikipediaOption) *WikipediaTool {
	tool := &WikipediaTool{
		baseURL: defaultWikipediaBase,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 15 * time.Second}),
			httpclient.WithMaxRetries(1),
		),
	}
	for _, opt := range opts {
		opt(tool)
	}
	return tool
}

func (t *WikipediaTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "wikipedia",
		Description: "Search Wikipedia for information about a topic and return a summary of the best matching article.",
		Parameters: []ToolParameter{
			{
				Name:        "query",
				Type:        "string",
				Description: "The search query or topic to look up on Wikipedia.",
			},
		},
	}
}

func (t *WikipediaTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		err := fmt.Errorf("query is required")
		return ToolResult{ToolName: "wikipedia", Error: err.Error()},
			&ExecutionError{Name: "wikipedia", Err: err}
	}

	title, err := t.searchTitle(ctx, query)
	if err != nil {
		return ToolResult{ToolName: "wikipedia", Error: err.Error()},
			&ExecutionError{Name: "wikipedia", Err: err}
	}
	if title == "" {
		// Not an execution failure; the model should see the miss and
		// rephrase or answer without the source.
		return ToolResult{
			Success:  true,
			ToolName: "wikipedia",
			Content:  fmt.Sprintf("No Wikipedia page found for %q", query),
		}, nil
	}

	summary, err := t.fetchSummary(ctx, title)
	if err != nil {
		return ToolResult{ToolName: "wikipedia", Error: err.Error()},
			&ExecutionError{Name: "wikipedia", Err: err}
	}

	return ToolResult{
		Success:  true,
		ToolName: "wikipedia",
		Content:  fmt.Sprintf("%s: %s", title, summary),
	}, nil
}

// searchTitle returns the best matching article title, or "" on no match.
func (t *WikipediaTool) searchTitle(ctx context.Context, query string) (string, error) {
	endpoint := fmt.Sprintf("%s/w/api.php?action=opensearch&limit=1&format=json&search=%s",
		t.baseURL, url.QueryEscape(query))

	body, err := t.get(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("wikipedia search failed: %w", err)
	}

	// opensearch responds with [query, [titles], [descriptions], [urls]].
	var result []json.RawMessage
	if err := json.Unmarshal(body, &result); err != nil || len(result) < 2 {
		return "", fmt.Errorf("unexpected wikipedia search response")
	}
	var titles []string
	if err := json.Unmarshal(result[1], &titles); err != nil {
		return "", fmt.Errorf("unexpected wikipedia search response")
	}
	if len(titles) == 0 {
		return "", nil
	}
	return titles[0], nil
}

func (t *WikipediaTool) fetchSummary(ctx context.Context, title string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/rest_v1/page/summary/%s",
		t.baseURL, url.PathEscape(title))

	body, err := t.get(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("wikipedia summary failed: %w", err)
	}

	var summary struct {
		Type    string `json:"type"`
		Extract string `json:"extract"`
	}
	if err := json.Unmarshal(body, &summary); err != nil {
		return "", fmt.Errorf("unexpected wikipedia summary response")
	}
	if summary.Type == "disambiguation" {
		return fmt.Sprintf("%q is ambiguous, please be more specific", title), nil
	}
	if summary.Extract == "" {
		return "", fmt.Errorf("no summary available for %q", title)
	}
	return summary.Extract, nil
}

func (t *WikipediaTool) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "clio/1.0")

	resp, err := t.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

var _ Tool = (*WikipediaTool)(nil)
