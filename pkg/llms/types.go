// Package llms defines the chat completion provider contract and the
// Mistral implementation.
package llms

import (
	"context"
	"encoding/json"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single conversation turn. Assistant turns may carry tool
// calls; tool turns carry the result for a specific call ID.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool message back to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Name is the tool name on tool messages.
	Name string `json:"name,omitempty"`
}

// ToolCall is a model-issued request to execute a named tool. Arguments are
// kept as raw JSON exactly as the provider returned them; parsing and
// validation happen at dispatch time.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition is the provider-facing description of a callable tool,
// carrying a JSON Schema parameters object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Impact is a min/max estimate with a unit.
type Impact struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Unit string  `json:"unit"`
}

// Impacts carries environmental impact estimates for a completion. They are
// informational only; nothing in the orchestration loop inspects them.
type Impacts struct {
	// GWP is global warming potential in kgCO2eq.
	GWP Impact `json:"gwp"`
	// WCF is water consumption in liters.
	WCF Impact `json:"wcf"`
}

// Completion is one model round: text, any tool calls, and usage.
type Completion struct {
	Text       string
	ToolCalls  []ToolCall
	TokensUsed int
	Impacts    *Impacts
}

// Provider generates chat completions.
type Provider interface {
	Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (*Completion, error)
	ModelName() string
	Close() error
}
