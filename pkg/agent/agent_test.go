package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clio-ai/clio/pkg/config"
	"github.com/clio-ai/clio/pkg/httpclient"
	"github.com/clio-ai/clio/pkg/llms"
	"github.com/clio-ai/clio/pkg/tools"
)

// scriptedProvider returns canned completions in order and records every
// transcript it was called with.
type scriptedProvider struct {
	completions []*llms.Completion
	errs        []error
	calls       [][]llms.Message
	toolDefs    [][]llms.ToolDefinition
}

func (p *scriptedProvider) Generate(_ context.Context, messages []llms.Message, defs []llms.ToolDefinition) (*llms.Completion, error) {
	round := len(p.calls)
	copied := make([]llms.Message, len(messages))
	copy(copied, messages)
	p.calls = append(p.calls, copied)
	p.toolDefs = append(p.toolDefs, defs)

	if round < len(p.errs) && p.errs[round] != nil {
		return nil, p.errs[round]
	}
	if round >= len(p.completions) {
		return &llms.Completion{Text: "fallback answer"}, nil
	}
	return p.completions[round], nil
}

func (p *scriptedProvider) ModelName() string { return "scripted" }
func (p *scriptedProvider) Close() error     { return nil }

// echoTool returns its "text" argument.
type echoTool struct{ name string }

func (t *echoTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{
		Name:        t.name,
		Description: "Echo the given text.",
		Parameters:  []tools.ToolParameter{{Name: "text", Type: "string", Description: "Text to echo."}},
	}
}

func (t *echoTool) Execute(_ context.Context, args map[string]any) (tools.ToolResult, error) {
	text, _ := args["text"].(string)
	return tools.ToolResult{Success: true, ToolName: t.name, Content: "echo: " + text}, nil
}

// failingTool always errors.
type failingTool struct{}

func (t *failingTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{Name: "broken", Description: "Always fails."}
}

func (t *failingTool) Execute(context.Context, map[string]any) (tools.ToolResult, error) {
	return tools.ToolResult{ToolName: "broken", Error: "boom"}, fmt.Errorf("boom")
}

func toolCall(id, name, args string) llms.ToolCall {
	return llms.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func newTestAgent(provider llms.Provider, registry *tools.Registry, opts ...Option) *Agent {
	cfg := &config.AgentConfig{}
	cfg.SetDefaults()
	return New(provider, registry, cfg, opts...)
}

func TestRunAnswersWithoutTools(t *testing.T) {
	provider := &scriptedProvider{completions: []*llms.Completion{
		{Text: "Rome fell in 476.", TokensUsed: 10},
	}}
	agent := newTestAgent(provider, tools.NewRegistry())

	result, err := agent.Run(context.Background(), "When did Rome fall?")
	require.NoError(t, err)

	assert.Equal(t, "Rome fell in 476.", result.Answer)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, 0, result.ToolCalls)
	assert.Equal(t, 10, result.TokensUsed)
	assert.False(t, result.LimitReached)
}

func TestRunExecutesToolAndFeedsResultBack(t *testing.T) {
	provider := &scriptedProvider{completions: []*llms.Completion{
		{ToolCalls: []llms.ToolCall{toolCall("call_1", "echo", `{"text":"hello"}`)}, TokensUsed: 5},
		{Text: "done", TokensUsed: 7},
	}}
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(&echoTool{name: "echo"}))
	agent := newTestAgent(provider, registry)

	result, err := agent.Run(context.Background(), "say hello")
	require.NoError(t, err)

	assert.Equal(t, "done", result.Answer)
	assert.Equal(t, 2, result.Iterations)
	assert.Equal(t, 1, result.ToolCalls)
	assert.Equal(t, 12, result.TokensUsed)

	// Second round transcript: user, assistant (with the tool call), tool.
	secondRound := provider.calls[1]
	require.Len(t, secondRound, 3)
	assert.Equal(t, llms.RoleAssistant, secondRound[1].Role)
	require.Len(t, secondRound[1].ToolCalls, 1)
	assert.Equal(t, llms.RoleTool, secondRound[2].Role)
	assert.Equal(t, "call_1", secondRound[2].ToolCallID)
	assert.Equal(t, "echo: hello", secondRound[2].Content)
}

func TestRunExecutesMultipleCallsInIssueOrder(t *testing.T) {
	provider := &scriptedProvider{completions: []*llms.Completion{
		{ToolCalls: []llms.ToolCall{
			toolCall("call_1", "first", `{"text":"a"}`),
			toolCall("call_2", "second", `{"text":"b"}`),
		}},
		{Text: "done"},
	}}
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(&echoTool{name: "first"}))
	require.NoError(t, registry.Register(&echoTool{name: "second"}))
	agent := newTestAgent(provider, registry)

	result, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 2, result.ToolCalls)

	// Second round transcript: user, assistant, then one tool message per
	// call in the order the calls were issued.
	secondRound := provider.calls[1]
	require.Len(t, secondRound, 4)
	assert.Equal(t, llms.RoleAssistant, secondRound[1].Role)
	require.Len(t, secondRound[1].ToolCalls, 2)

	assert.Equal(t, llms.RoleTool, secondRound[2].Role)
	assert.Equal(t, "call_1", secondRound[2].ToolCallID)
	assert.Equal(t, "first", secondRound[2].Name)
	assert.Equal(t, "echo: a", secondRound[2].Content)

	assert.Equal(t, llms.RoleTool, secondRound[3].Role)
	assert.Equal(t, "call_2", secondRound[3].ToolCallID)
	assert.Equal(t, "second", secondRound[3].Name)
	assert.Equal(t, "echo: b", secondRound[3].Content)
}

func TestRunPassesToolDefinitions(t *testing.T) {
	provider := &scriptedProvider{completions: []*llms.Completion{{Text: "ok"}}}
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(&echoTool{name: "echo"}))
	agent := newTestAgent(provider, registry)

	_, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)

	require.Len(t, provider.toolDefs[0], 1)
	assert.Equal(t, "echo", provider.toolDefs[0][0].Name)
}

func TestRunUnknownToolBecomesNotice(t *testing.T) {
	provider := &scriptedProvider{completions: []*llms.Completion{
		{ToolCalls: []llms.ToolCall{toolCall("call_1", "nonexistent", `{}`)}},
		{Text: "recovered"},
	}}
	agent := newTestAgent(provider, tools.NewRegistry())

	result, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Answer)

	notice := provider.calls[1][2]
	assert.Equal(t, llms.RoleTool, notice.Role)
	assert.Contains(t, notice.Content, "not implemented")
}

func TestRunToolFailureBecomesNotice(t *testing.T) {
	provider := &scriptedProvider{completions: []*llms.Completion{
		{ToolCalls: []llms.ToolCall{toolCall("call_1", "broken", `{}`)}},
		{Text: "recovered"},
	}}
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(&failingTool{}))
	agent := newTestAgent(provider, registry)

	result, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Answer)

	notice := provider.calls[1][2]
	assert.Contains(t, notice.Content, `tool "broken" failed`)
	assert.Contains(t, notice.Content, "boom")
}

func TestRunAcceptsStringEncodedArguments(t *testing.T) {
	provider := &scriptedProvider{completions: []*llms.Completion{
		{ToolCalls: []llms.ToolCall{toolCall("call_1", "echo", `"{\"text\":\"nested\"}"`)}},
		{Text: "done"},
	}}
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(&echoTool{name: "echo"}))
	agent := newTestAgent(provider, registry)

	_, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, "echo: nested", provider.calls[1][2].Content)
}

func TestRunUnparseableArgumentsBecomeNotice(t *testing.T) {
	provider := &scriptedProvider{completions: []*llms.Completion{
		{ToolCalls: []llms.ToolCall{toolCall("call_1", "echo", `[1, 2]`)}},
		{Text: "recovered"},
	}}
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(&echoTool{name: "echo"}))
	agent := newTestAgent(provider, registry)

	result, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Answer)

	notice := provider.calls[1][2]
	assert.Contains(t, notice.Content, "could not be parsed")
	assert.Contains(t, notice.Content, "call_1")
}

func TestRunHitsIterationCap(t *testing.T) {
	// A provider that always requests a tool never yields an answer.
	completions := make([]*llms.Completion, 10)
	for i := range completions {
		completions[i] = &llms.Completion{
			ToolCalls: []llms.ToolCall{toolCall(fmt.Sprintf("call_%d", i), "echo", `{"text":"again"}`)},
		}
	}
	provider := &scriptedProvider{completions: completions}
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(&echoTool{name: "echo"}))
	agent := newTestAgent(provider, registry)

	result, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, MaxIterationsMessage, result.Answer)
	assert.True(t, result.LimitReached)
	assert.Equal(t, 10, result.Iterations)
	assert.Equal(t, 10, result.ToolCalls)
	assert.Len(t, provider.calls, 10)
}

func TestRunRetriesOnceAfterRateLimit(t *testing.T) {
	provider := &scriptedProvider{
		errs:        []error{&httpclient.RetryableError{StatusCode: 429, RetryAfter: 1}},
		completions: []*llms.Completion{nil, {Text: "after retry"}},
	}
	agent := newTestAgent(provider, tools.NewRegistry())

	result, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "after retry", result.Answer)
	assert.Len(t, provider.calls, 2)
}

func TestRunGivesUpAfterSecondRateLimit(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{
			&httpclient.RetryableError{StatusCode: 429, RetryAfter: 1},
			&httpclient.RetryableError{StatusCode: 429, RetryAfter: 1},
		},
	}
	agent := newTestAgent(provider, tools.NewRegistry())

	_, err := agent.Run(context.Background(), "q")
	require.Error(t, err)

	var retryErr *httpclient.RetryableError
	assert.ErrorAs(t, err, &retryErr)
}

func TestRunDoesNotRetryBackendErrors(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{&llms.BackendError{Provider: "scripted", Message: "bad request"}},
	}
	agent := newTestAgent(provider, tools.NewRegistry())

	_, err := agent.Run(context.Background(), "q")
	require.Error(t, err)
	assert.Len(t, provider.calls, 1)
}

func TestRunSystemPromptLeadsTranscript(t *testing.T) {
	provider := &scriptedProvider{completions: []*llms.Completion{{Text: "ok"}}}
	agent := newTestAgent(provider, tools.NewRegistry(), WithSystemPrompt("be factual"))

	_, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)

	first := provider.calls[0]
	require.GreaterOrEqual(t, len(first), 2)
	assert.Equal(t, llms.RoleSystem, first[0].Role)
	assert.Equal(t, "be factual", first[0].Content)
}

func TestRunAccumulatesImpacts(t *testing.T) {
	provider := &scriptedProvider{completions: []*llms.Completion{
		{
			ToolCalls: []llms.ToolCall{toolCall("call_1", "echo", `{"text":"x"}`)},
			Impacts:   &llms.Impacts{GWP: llms.Impact{Min: 1, Max: 2, Unit: "kgCO2eq"}},
		},
		{
			Text:    "done",
			Impacts: &llms.Impacts{GWP: llms.Impact{Min: 3, Max: 4, Unit: "kgCO2eq"}},
		},
	}}
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(&echoTool{name: "echo"}))
	agent := newTestAgent(provider, registry)

	result, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)

	require.NotNil(t, result.Impacts)
	assert.Equal(t, 4.0, result.Impacts.GWP.Min)
	assert.Equal(t, 6.0, result.Impacts.GWP.Max)
}

func TestChatJoinsPartsWithSpaces(t *testing.T) {
	provider := &scriptedProvider{completions: []*llms.Completion{{Text: "joined"}}}
	agent := newTestAgent(provider, tools.NewRegistry())

	_, err := agent.Chat(context.Background(), "first", "second", "third")
	require.NoError(t, err)

	require.Len(t, provider.calls[0], 1)
	assert.Equal(t, "first second third", provider.calls[0][0].Content)
	assert.Empty(t, provider.toolDefs[0])
}
