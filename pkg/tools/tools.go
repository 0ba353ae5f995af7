// Package tools defines the tool contract, the registry, and the built-in
// tools available to the orchestrator.
package tools

import (
	"context"
	"time"

	"github.com/clio-ai/clio/pkg/llms"
)

// maxDescriptionLen caps tool descriptions sent to the model. Providers
// reject oversized function descriptions; anything longer is truncated.
const maxDescriptionLen = 800

// ToolInfo describes a tool through a static descriptor table. The
// provider-facing schema is derived from it; no reflection is involved.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters,omitempty"`
}

// ToolParameter describes one argument. A parameter is optional exactly
// when it carries a default.
type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
}

// ToolResult is the outcome of one tool execution.
type ToolResult struct {
	Success       bool          `json:"success"`
	Content       string        `json:"content,omitempty"`
	Error         string        `json:"error,omitempty"`
	ToolName      string        `json:"tool_name"`
	ExecutionTime time.Duration `json:"execution_time,omitempty"`
}

// Tool is a callable capability exposed to the model.
type Tool interface {
	GetInfo() ToolInfo
	Execute(ctx context.Context, args map[string]any) (ToolResult, error)
}

// Definition converts the descriptor into the provider wire schema.
//
// Descriptions are truncated to the provider limit. Numeric parameter types
// collapse to JSON Schema "number"; every other type is sent as "string".
// A parameter is required exactly when it declares no default.
func (info ToolInfo) Definition() llms.ToolDefinition {
	description := info.Description
	if runes := []rune(description); len(runes) > maxDescriptionLen {
		description = string(runes[:maxDescriptionLen])
	}

	properties := make(map[string]any, len(info.Parameters))
	required := []string{}
	for _, param := range info.Parameters {
		properties[param.Name] = map[string]any{
			"type":        schemaType(param.Type),
			"description": param.Description,
		}
		if param.Default == nil {
			required = append(required, param.Name)
		}
	}

	return llms.ToolDefinition{
		Name:        info.Name,
		Description: description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

func schemaType(paramType string) string {
	switch paramType {
	case "int", "integer", "float", "float64", "number":
		return "number"
	default:
		return "string"
	}
}
