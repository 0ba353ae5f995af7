package tools

import (
	"context"
	"fmt"
	"time"
)

// TimeTool reports the current date and time. It grounds the model in wall
// clock time so it can reason about "today" and relative dates.
type TimeTool struct {
	// now is swappable for tests.
	now func() time.Time
}

func NewTimeTool() *TimeTool {
	return &TimeTool{now: time.Now}
}

func (t *TimeTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "current_time",
		Description: "Get the current date and time.",
		Parameters: []ToolParameter{
			{
				Name:        "timezone",
				Type:        "string",
				Description: "IANA timezone name, e.g. Europe/Paris.",
				Default:     "UTC",
			},
		},
	}
}

func (t *TimeTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	zone := "UTC"
	if tz, ok := args["timezone"].(string); ok && tz != "" {
		zone = tz
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return ToolResult{
			ToolName: "current_time",
			Error:    fmt.Sprintf("unknown timezone %q", zone),
		}, &ExecutionError{Name: "current_time", Err: err}
	}

	return ToolResult{
		Success:  true,
		ToolName: "current_time",
		Content:  t.now().In(loc).Format("2006-01-02 15:04:05"),
	}, nil
}

var _ Tool = (*TimeTool)(nil)
