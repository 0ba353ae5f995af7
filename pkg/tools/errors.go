package tools

import "fmt"

// NotFoundError reports a tool call naming an unregistered tool.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool %q is not implemented", e.Name)
}

// ExecutionError reports a tool that ran and failed.
type ExecutionError struct {
	Name string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Name, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ArgumentError reports tool call arguments that could not be parsed.
type ArgumentError struct {
	CallID string
	Name   string
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("arguments for tool %q (call %s) could not be parsed: %v", e.Name, e.CallID, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}
