package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clio-ai/clio/pkg/config"
	"github.com/clio-ai/clio/pkg/httpclient"
)

const providerMistral = "mistral"

// MistralProvider talks to the Mistral chat completions API.
type MistralProvider struct {
	config     *config.LLMConfig
	httpClient *httpclient.Client
}

type mistralRequest struct {
	Model       string           `json:"model"`
	Messages    []mistralMessage `json:"messages"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature"`
	Tools       []mistralTool    `json:"tools,omitempty"`
	ToolChoice  string           `json:"tool_choice,omitempty"`
}

type mistralMessage struct {
	Role       string            `json:"role"`
	Content    mistralContent    `json:"content"`
	ToolCalls  []mistralToolCall `json:"tool_calls,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	Name       string            `json:"name,omitempty"`
}

// mistralContent tolerates both content encodings the API uses: a plain
// string, or a list of typed parts. Parts are joined with single spaces.
// Requests always send the plain-string form.
type mistralContent string

func (c *mistralContent) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*c = mistralContent(plain)
		return nil
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content is neither a string nor a part list: %w", err)
	}
	texts := make([]string, len(parts))
	for i, part := range parts {
		texts[i] = part.Text
	}
	*c = mistralContent(strings.Join(texts, " "))
	return nil
}

type mistralTool struct {
	Type     string              `json:"type"`
	Function mistralToolFunction `json:"function"`
}

type mistralToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type mistralToolCall struct {
	ID       string              `json:"id"`
	Type     string              `json:"type"`
	Function mistralFunctionCall `json:"function"`
}

type mistralFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type mistralResponse struct {
	Choices []mistralChoice `json:"choices"`
	Usage   mistralUsage    `json:"usage"`
	Error   *mistralError   `json:"error,omitempty"`
}

type mistralChoice struct {
	Message      mistralMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type mistralUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type mistralError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// NewMistralProvider builds a provider from config.
func NewMistralProvider(cfg *config.LLMConfig) (*MistralProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mistral: api key is required")
	}

	httpClient := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithHeaderParser(httpclient.ParseRateLimitHeaders),
	)

	return &MistralProvider{
		config:     cfg,
		httpClient: httpClient,
	}, nil
}

// Generate performs one non-streaming completion round.
func (p *MistralProvider) Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (*Completion, error) {
	tracer := otel.Tracer("clio.llm")
	ctx, span := tracer.Start(ctx, "llm.generate",
		trace.WithAttributes(
			attribute.String("llm.model", p.config.Model),
			attribute.String("llm.provider", providerMistral),
			attribute.Int("llm.tools", len(tools)),
		),
	)
	defer span.End()

	request := p.buildRequest(messages, tools)

	response, err := p.makeRequest(ctx, request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if response.Error != nil {
		apiErr := &BackendError{
			Provider: providerMistral,
			Message:  response.Error.Message,
		}
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, response.Error.Message)
		return nil, apiErr
	}

	if len(response.Choices) == 0 {
		noChoiceErr := &BackendError{
			Provider: providerMistral,
			Message:  "no response choices returned",
		}
		span.RecordError(noChoiceErr)
		span.SetStatus(codes.Error, "no choices")
		return nil, noChoiceErr
	}

	choice := response.Choices[0]
	tokensUsed := response.Usage.TotalTokens

	toolCalls, err := parseToolCalls(choice.Message.ToolCalls)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.tokens.input", response.Usage.PromptTokens),
		attribute.Int("llm.tokens.output", response.Usage.CompletionTokens),
		attribute.Int("llm.tool_calls", len(toolCalls)),
	)
	span.SetStatus(codes.Ok, "success")

	return &Completion{
		Text:       string(choice.Message.Content),
		ToolCalls:  toolCalls,
		TokensUsed: tokensUsed,
		Impacts:    EstimateImpacts(tokensUsed),
	}, nil
}

func (p *MistralProvider) ModelName() string {
	return p.config.Model
}

func (p *MistralProvider) Close() error {
	return nil
}

func (p *MistralProvider) buildRequest(messages []Message, tools []ToolDefinition) mistralRequest {
	wireMessages := make([]mistralMessage, 0, len(messages))
	for _, msg := range messages {
		wire := mistralMessage{
			Role:       msg.Role,
			Content:    mistralContent(msg.Content),
			ToolCallID: msg.ToolCallID,
			Name:       msg.Name,
		}
		for _, call := range msg.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, mistralToolCall{
				ID:   call.ID,
				Type: "function",
				Function: mistralFunctionCall{
					Name:      call.Name,
					Arguments: string(call.Arguments),
				},
			})
		}
		wireMessages = append(wireMessages, wire)
	}

	request := mistralRequest{
		Model:       p.config.Model,
		Messages:    wireMessages,
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
	}

	for _, tool := range tools {
		request.Tools = append(request.Tools, mistralTool{
			Type: "function",
			Function: mistralToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	if len(request.Tools) > 0 {
		request.ToolChoice = "auto"
	}

	return request
}

func (p *MistralProvider) makeRequest(ctx context.Context, request mistralRequest) (*mistralResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Host+"/chat/completions", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(requestBody)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, doErr := p.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if doErr != nil {
		// Retry exhaustion surfaces as *RetryableError so the caller can
		// apply its own backoff. Anything else is a hard backend failure.
		var retryErr *httpclient.RetryableError
		if errors.As(doErr, &retryErr) {
			return nil, retryErr
		}
		if resp != nil {
			return nil, p.backendError(resp.StatusCode, resp.Body)
		}
		return nil, &BackendError{Provider: providerMistral, Message: doErr.Error(), Err: doErr}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.backendError(resp.StatusCode, resp.Body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var response mistralResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &BackendError{
			Provider: providerMistral,
			Message:  fmt.Sprintf("malformed response: %v", err),
			Err:      err,
		}
	}
	return &response, nil
}

func (p *MistralProvider) backendError(statusCode int, body io.Reader) error {
	raw, _ := io.ReadAll(body)

	message := string(raw)
	var parsed mistralResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != nil {
		message = parsed.Error.Message
	}

	return &BackendError{
		Provider:   providerMistral,
		StatusCode: statusCode,
		Message:    message,
	}
}

// parseToolCalls converts wire tool calls, verifying each arguments payload
// is valid JSON. Providers occasionally double-encode arguments as a JSON
// string; those are unwrapped here.
func parseToolCalls(wireCalls []mistralToolCall) ([]ToolCall, error) {
	if len(wireCalls) == 0 {
		return nil, nil
	}

	calls := make([]ToolCall, 0, len(wireCalls))
	for _, wire := range wireCalls {
		args := wire.Function.Arguments
		if args == "" {
			args = "{}"
		}
		if !json.Valid([]byte(args)) {
			return nil, &BackendError{
				Provider: providerMistral,
				Message:  fmt.Sprintf("tool call %s has malformed arguments", wire.Function.Name),
			}
		}
		calls = append(calls, ToolCall{
			ID:        wire.ID,
			Name:      wire.Function.Name,
			Arguments: json.RawMessage(args),
		})
	}
	return calls, nil
}
