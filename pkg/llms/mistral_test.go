package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clio-ai/clio/pkg/config"
	"github.com/clio-ai/clio/pkg/httpclient"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*MistralProvider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.LLMConfig{APIKey: "test-key", Host: server.URL}
	cfg.SetDefaults()
	cfg.MaxRetries = 1

	provider, err := NewMistralProvider(cfg)
	require.NoError(t, err)
	return provider, server
}

func TestGenerateReturnsText(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req mistralRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral-small-latest", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, RoleUser, req.Messages[0].Role)

		resp := mistralResponse{
			Choices: []mistralChoice{{
				Message:      mistralMessage{Role: RoleAssistant, Content: "The Treaty of Westphalia was signed in 1648."},
				FinishReason: "stop",
			}},
			Usage: mistralUsage{PromptTokens: 12, CompletionTokens: 10, TotalTokens: 22},
		}
		json.NewEncoder(w).Encode(resp)
	})

	completion, err := provider.Generate(context.Background(), []Message{
		{Role: RoleUser, Content: "When was the Treaty of Westphalia signed?"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "The Treaty of Westphalia was signed in 1648.", completion.Text)
	assert.Empty(t, completion.ToolCalls)
	assert.Equal(t, 22, completion.TokensUsed)
	require.NotNil(t, completion.Impacts)
	assert.Equal(t, "kgCO2eq", completion.Impacts.GWP.Unit)
	assert.Greater(t, completion.Impacts.GWP.Max, completion.Impacts.GWP.Min)
}

func TestGenerateJoinsSegmentedContent(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"choices": [{
				"message": {
					"role": "assistant",
					"content": [
						{"type": "text", "text": "The treaty was signed"},
						{"type": "text", "text": "in 1648."}
					]
				},
				"finish_reason": "stop"
			}],
			"usage": {"total_tokens": 9}
		}`))
	})

	completion, err := provider.Generate(context.Background(), []Message{
		{Role: RoleUser, Content: "when?"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "The treaty was signed in 1648.", completion.Text)
}

func TestGenerateParsesToolCalls(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req mistralRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "wikipedia", req.Tools[0].Function.Name)
		assert.Equal(t, "auto", req.ToolChoice)

		resp := mistralResponse{
			Choices: []mistralChoice{{
				Message: mistralMessage{
					Role: RoleAssistant,
					ToolCalls: []mistralToolCall{{
						ID:   "call_1",
						Type: "function",
						Function: mistralFunctionCall{
							Name:      "wikipedia",
							Arguments: `{"query": "Treaty of Westphalia"}`,
						},
					}},
				},
				FinishReason: "tool_calls",
			}},
			Usage: mistralUsage{TotalTokens: 30},
		}
		json.NewEncoder(w).Encode(resp)
	})

	tools := []ToolDefinition{{
		Name:        "wikipedia",
		Description: "Search Wikipedia",
		Parameters:  map[string]any{"type": "object"},
	}}

	completion, err := provider.Generate(context.Background(), []Message{
		{Role: RoleUser, Content: "look it up"},
	}, tools)
	require.NoError(t, err)

	require.Len(t, completion.ToolCalls, 1)
	call := completion.ToolCalls[0]
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "wikipedia", call.Name)
	assert.JSONEq(t, `{"query": "Treaty of Westphalia"}`, string(call.Arguments))
}

func TestGenerateRejectsMalformedToolArguments(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		resp := mistralResponse{
			Choices: []mistralChoice{{
				Message: mistralMessage{
					Role: RoleAssistant,
					ToolCalls: []mistralToolCall{{
						ID:       "call_1",
						Function: mistralFunctionCall{Name: "wikipedia", Arguments: `{"query": `},
					}},
				},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	})

	_, err := provider.Generate(context.Background(), []Message{{Role: RoleUser, Content: "q"}}, nil)
	require.Error(t, err)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Contains(t, backendErr.Message, "malformed arguments")
}

func TestGenerateSurfacesAPIError(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid api key"},
		})
	})

	_, err := provider.Generate(context.Background(), []Message{{Role: RoleUser, Content: "q"}}, nil)
	require.Error(t, err)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusUnauthorized, backendErr.StatusCode)
	assert.Contains(t, backendErr.Message, "invalid api key")
}

func TestGenerateSurfacesRetryableOnRateLimit(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := provider.Generate(context.Background(), []Message{{Role: RoleUser, Content: "q"}}, nil)
	require.Error(t, err)

	var retryErr *httpclient.RetryableError
	assert.ErrorAs(t, err, &retryErr)
}

func TestBuildRequestRoundTripsToolMessages(t *testing.T) {
	cfg := &config.LLMConfig{APIKey: "k"}
	cfg.SetDefaults()
	provider, err := NewMistralProvider(cfg)
	require.NoError(t, err)

	messages := []Message{
		{Role: RoleSystem, Content: "be factual"},
		{Role: RoleUser, Content: "question"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{
			ID: "call_1", Name: "wikipedia", Arguments: json.RawMessage(`{"query":"x"}`),
		}}},
		{Role: RoleTool, ToolCallID: "call_1", Name: "wikipedia", Content: "summary text"},
	}

	req := provider.buildRequest(messages, nil)
	require.Len(t, req.Messages, 4)

	assistant := req.Messages[2]
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "function", assistant.ToolCalls[0].Type)
	assert.Equal(t, `{"query":"x"}`, assistant.ToolCalls[0].Function.Arguments)

	toolMsg := req.Messages[3]
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
	assert.Equal(t, "wikipedia", toolMsg.Name)
}

func TestNewProviderUnknownType(t *testing.T) {
	_, err := NewProvider(&config.LLMConfig{Provider: "nope", APIKey: "k"})
	require.Error(t, err)
}
