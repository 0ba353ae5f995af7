package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/clio-ai/clio/pkg/llms"
	"github.com/clio-ai/clio/pkg/tools"
)

// invoke dispatches one tool call and renders the outcome as the tool
// message the model sees next round. Failures become notices, not errors:
// the model is expected to recover or answer without the tool.
func (a *Agent) invoke(ctx context.Context, call llms.ToolCall) llms.Message {
	reply := func(content string) llms.Message {
		return llms.Message{
			Role:       llms.RoleTool,
			ToolCallID: call.ID,
			Name:       call.Name,
			Content:    content,
		}
	}

	tool, ok := a.registry.Get(call.Name)
	if !ok {
		notFound := &tools.NotFoundError{Name: call.Name}
		slog.Warn("model requested unknown tool", "tool", call.Name)
		return reply(notFound.Error())
	}

	args, err := parseArguments(call)
	if err != nil {
		slog.Warn("tool arguments unparseable", "tool", call.Name, "error", err)
		return reply(err.Error())
	}

	start := time.Now()
	result, err := tool.Execute(ctx, args)
	elapsed := time.Since(start)
	if err != nil {
		slog.Warn("tool execution failed",
			"tool", call.Name,
			"duration", elapsed,
			"error", err)
		execErr := &tools.ExecutionError{Name: call.Name, Err: err}
		return reply(execErr.Error())
	}

	slog.Debug("tool executed",
		"tool", call.Name,
		"duration", elapsed,
		"content_len", len(result.Content))
	return reply(result.Content)
}

// parseArguments decodes tool call arguments into a map. Providers usually
// send a JSON object, but some double-encode it as a JSON string; both are
// accepted. Anything else is an argument error scoped to this call.
func parseArguments(call llms.ToolCall) (map[string]any, error) {
	raw := call.Arguments
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var args map[string]any
	objErr := json.Unmarshal(raw, &args)
	if objErr == nil {
		return args, nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if err := json.Unmarshal([]byte(encoded), &args); err == nil {
			return args, nil
		}
	}

	return nil, &tools.ArgumentError{
		CallID: call.ID,
		Name:   call.Name,
		Err:    objErr,
	}
}
