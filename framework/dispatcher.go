package framework

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
)

// Dispatcher turns action text into an observation. Execute never fails:
// parse errors, unknown tools, tool errors and panics all become text the
// model can read and correct itself from.
type Dispatcher struct {
	Tools  *ToolRegistry
	Logger *slog.Logger
}

// NewDispatcher wraps a registry.
func NewDispatcher(tools *ToolRegistry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{Tools: tools, Logger: logger.With("component", "dispatcher")}
}

// Execute parses actionText, runs the tool and returns the observation.
func (d *Dispatcher) Execute(ctx context.Context, actionText string) string {
	action, err := ParseAction(actionText)
	if err != nil {
		d.logger().Debug("action rejected", "error", err)
		return describeParseError(err)
	}
	if d.Tools == nil {
		return fmt.Sprintf("Error: tool %s does not exist. No tools are available.", action.ToolName)
	}
	tool, ok := d.Tools.Get(action.ToolName)
	if !ok {
		return fmt.Sprintf("Error: tool %s does not exist. Available tools: %s",
			action.ToolName, strings.Join(d.Tools.Names(), ", "))
	}
	d.logger().Info("running tool", "tool", tool.Name())
	out, err := d.run(ctx, tool, action.Parameters)
	if err != nil {
		var pathErr *PathSecurityError
		if errors.As(err, &pathErr) {
			d.logger().Warn("path rejected", "tool", tool.Name(), "path", pathErr.Path)
			return fmt.Sprintf("Path error: %v", pathErr)
		}
		d.logger().Warn("tool failed", "tool", tool.Name(), "error", err)
		return fmt.Sprintf("Error: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		return fmt.Sprintf("%s completed with no output.", tool.Name())
	}
	return out
}

func (d *Dispatcher) run(ctx context.Context, tool Tool, params map[string]interface{}) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger().Error("tool panicked", "tool", tool.Name(), "panic", r, "stack", string(debug.Stack()))
			out = ""
			err = &ToolExecutionError{Tool: tool.Name(), Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	out, err = tool.Run(ctx, params)
	if err != nil {
		var pathErr *PathSecurityError
		if errors.As(err, &pathErr) {
			return "", err
		}
		return "", &ToolExecutionError{Tool: tool.Name(), Cause: err}
	}
	return out, nil
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func describeParseError(err error) string {
	var formatErr *FormatError
	if errors.As(err, &formatErr) {
		return fmt.Sprintf("Format error: %s. Actions must look like ToolName().run({\"param\": \"value\"}).", formatErr.Reason)
	}
	var paramErr *ParameterError
	if errors.As(err, &paramErr) {
		return fmt.Sprintf("Parameter error: %v. Pass parameters as a single JSON object.", paramErr.Cause)
	}
	return fmt.Sprintf("Error: %v", err)
}
