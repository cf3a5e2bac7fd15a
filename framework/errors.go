package framework

import (
	"errors"
	"fmt"
)

// ErrProtocolViolation marks model output that could not be resolved into an
// action or a final answer. It is the only error that ends a task.
var ErrProtocolViolation = errors.New("protocol violation")

// ErrPlanningFailure marks a planner call that failed or produced nothing usable.
var ErrPlanningFailure = errors.New("planning failure")

// FormatError reports action text that does not match `Name().run({...})`.
type FormatError struct {
	Text   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("action format error: %s", e.Reason)
}

// ParameterError reports a parameter literal that is not a mapping or could
// not be parsed as JSON or as a restricted Python literal.
type ParameterError struct {
	Literal string
	Cause   error
}

func (e *ParameterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parameter error: %v", e.Cause)
	}
	return "parameter error"
}

func (e *ParameterError) Unwrap() error { return e.Cause }

// ToolExecutionError wraps a failure raised while a tool was running.
type ToolExecutionError struct {
	Tool  string
	Cause error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Cause)
}

func (e *ToolExecutionError) Unwrap() error { return e.Cause }

// PathSecurityError reports a path argument that resolves outside the workspace.
type PathSecurityError struct {
	Path      string
	Workspace string
}

func (e *PathSecurityError) Error() string {
	return fmt.Sprintf("path %q is outside the workspace %s", e.Path, e.Workspace)
}

// ProtocolError carries the raw model output that violated the tag protocol.
type ProtocolError struct {
	Reason string
	Output string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", ErrProtocolViolation, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return ErrProtocolViolation }

// PlanningError wraps the cause of a degraded plan.
type PlanningError struct {
	Cause error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("%s: %v", ErrPlanningFailure, e.Cause)
}

func (e *PlanningError) Unwrap() []error { return []error{ErrPlanningFailure, e.Cause} }
