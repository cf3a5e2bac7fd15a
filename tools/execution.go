package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lexcodex/reagent/framework"
)

// maxCommandOutput bounds the observation size of run_command.
const maxCommandOutput = 20000

// RunCommandTool executes a shell command in the workspace.
type RunCommandTool struct {
	Workspace string
	Timeout   time.Duration
	Runner    framework.CommandRunner
}

func (t *RunCommandTool) Name() string { return "run_command" }
func (t *RunCommandTool) Description() string {
	return "Runs a shell command (sh -c) in the working directory, e.g. go test ./... or git status."
}
func (t *RunCommandTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "command", Type: "string", Description: "shell command line", Required: true},
		{Name: "timeout", Type: "integer", Description: "timeout in seconds", Default: int(t.timeout().Seconds())},
	}
}
func (t *RunCommandTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	if t.Runner == nil {
		return "", errors.New("command runner missing")
	}
	command, err := framework.RequireString(params, "command")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(command) == "" {
		return "", errors.New("command must not be empty")
	}
	seconds, err := framework.OptionalInt(params, "timeout", int(t.timeout().Seconds()))
	if err != nil {
		return "", err
	}
	timeout := time.Duration(seconds) * time.Second
	if seconds <= 0 {
		timeout = t.timeout()
	}

	res, err := t.Runner.Run(ctx, framework.CommandRequest{
		Workdir: t.Workspace,
		Args:    []string{"sh", "-c", command},
		Timeout: timeout,
	})
	if err != nil {
		return "", err
	}
	return formatCommandResult(res, timeout), nil
}

func (t *RunCommandTool) timeout() time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return framework.DefaultCommandTimeout
}

func formatCommandResult(res *framework.CommandResult, timeout time.Duration) string {
	var header string
	switch {
	case res.Interrupted:
		header = "Command interrupted by the user."
	case res.TimedOut:
		header = fmt.Sprintf("Command timed out after %s.", timeout)
	case res.ExitCode == 0:
		header = "Command succeeded."
	default:
		header = fmt.Sprintf("Command failed (exit code %d).", res.ExitCode)
	}
	out := fmt.Sprintf("%s\nstdout:\n%s\nstderr:\n%s", header, res.Stdout, res.Stderr)
	return truncateMiddle(out, maxCommandOutput)
}

// truncateMiddle keeps the head and tail of s so both the command start and
// its final errors stay visible.
func truncateMiddle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	half := max / 2
	omitted := len(s) - 2*half
	return fmt.Sprintf("%s\n... (%d characters omitted) ...\n%s", s[:half], omitted, s[len(s)-half:])
}
