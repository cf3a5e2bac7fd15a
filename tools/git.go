package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lexcodex/reagent/framework"
)

// GitCommands lists the subcommands exposed as git_<command> tools.
var GitCommands = []string{"status", "diff", "log", "commit", "branch"}

// GitTool runs one predefined git subcommand in the workspace through the
// command runner, so it shares the timeout and interrupt handling of
// run_command.
type GitTool struct {
	Workspace string
	Command   string
	Timeout   time.Duration
	Runner    framework.CommandRunner
}

func (t *GitTool) Name() string { return "git_" + t.Command }

func (t *GitTool) Description() string {
	switch t.Command {
	case "status":
		return "Shows the branch and the short status of the working tree."
	case "diff":
		return "Shows unstaged changes, or staged ones with staged=true, optionally for one path."
	case "log":
		return "Lists recent commits on one line each, optionally for one path."
	case "commit":
		return "Stages the given files (or everything) and commits them. Never pushes."
	case "branch":
		return "Lists branches, or creates and switches to the named branch."
	default:
		return "Git command"
	}
}

func (t *GitTool) Parameters() []framework.ToolParameter {
	switch t.Command {
	case "diff":
		return []framework.ToolParameter{
			{Name: "path", Type: "string", Description: "limit the diff to this path"},
			{Name: "staged", Type: "boolean", Description: "show staged changes", Default: false},
		}
	case "log":
		return []framework.ToolParameter{
			{Name: "path", Type: "string", Description: "limit history to this path"},
			{Name: "limit", Type: "integer", Description: "number of commits", Default: 10},
		}
	case "commit":
		return []framework.ToolParameter{
			{Name: "message", Type: "string", Description: "commit message", Required: true},
			{Name: "files", Type: "array", Description: "paths to stage; everything when omitted"},
		}
	case "branch":
		return []framework.ToolParameter{{Name: "name", Type: "string", Description: "branch to create"}}
	default:
		return nil
	}
}

func (t *GitTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	if t.Runner == nil {
		return "", errors.New("command runner missing")
	}
	switch t.Command {
	case "status":
		return t.git(ctx, "status", "--short", "--branch")
	case "diff":
		args := []string{"diff"}
		if framework.OptionalBool(params, "staged", false) {
			args = append(args, "--cached")
		}
		path, err := t.optionalPath(params, "path")
		if err != nil {
			return "", err
		}
		if path != "" {
			args = append(args, "--", path)
		}
		return t.git(ctx, args...)
	case "log":
		limit, err := framework.OptionalInt(params, "limit", 10)
		if err != nil {
			return "", err
		}
		if limit <= 0 {
			limit = 10
		}
		args := []string{"log", fmt.Sprintf("-n%d", limit), "--oneline"}
		path, err := t.optionalPath(params, "path")
		if err != nil {
			return "", err
		}
		if path != "" {
			args = append(args, "--", path)
		}
		return t.git(ctx, args...)
	case "commit":
		return t.commit(ctx, params)
	case "branch":
		name := strings.TrimSpace(framework.OptionalString(params, "name", ""))
		if name == "" {
			return t.git(ctx, "branch", "--list")
		}
		if strings.HasPrefix(name, "-") {
			return "", fmt.Errorf("invalid branch name %q", name)
		}
		return t.git(ctx, "checkout", "-b", name)
	default:
		return "", fmt.Errorf("unsupported git command %s", t.Command)
	}
}

func (t *GitTool) commit(ctx context.Context, params map[string]interface{}) (string, error) {
	message, err := framework.RequireString(params, "message")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(message) == "" {
		return "", errors.New("commit message must not be empty")
	}
	files, err := stringList(params["files"])
	if err != nil {
		return "", err
	}
	add := []string{"add", "--all"}
	if len(files) > 0 {
		add = []string{"add", "--"}
		for _, f := range files {
			resolved, err := framework.ResolveWorkspacePath(t.Workspace, f)
			if err != nil {
				return "", err
			}
			add = append(add, framework.RelativeToWorkspace(t.Workspace, resolved))
		}
	}
	res, err := t.run(ctx, add)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 || res.TimedOut || res.Interrupted {
		return formatCommandResult(res, t.timeout()), nil
	}
	return t.git(ctx, "commit", "-m", message)
}

// git runs a subcommand and returns stdout on success or the full command
// report otherwise.
func (t *GitTool) git(ctx context.Context, args ...string) (string, error) {
	res, err := t.run(ctx, args)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 || res.TimedOut || res.Interrupted {
		return formatCommandResult(res, t.timeout()), nil
	}
	out := strings.TrimRight(res.Stdout, "\n")
	if out == "" {
		return "(no output)", nil
	}
	return truncateMiddle(out, maxCommandOutput), nil
}

func (t *GitTool) run(ctx context.Context, args []string) (*framework.CommandResult, error) {
	return t.Runner.Run(ctx, framework.CommandRequest{
		Workdir: t.Workspace,
		Args:    append([]string{"git", "--no-pager"}, args...),
		Env:     []string{"GIT_TERMINAL_PROMPT=0"},
		Timeout: t.timeout(),
	})
}

func (t *GitTool) optionalPath(params map[string]interface{}, key string) (string, error) {
	raw := strings.TrimSpace(framework.OptionalString(params, key, ""))
	if raw == "" {
		return "", nil
	}
	resolved, err := framework.ResolveWorkspacePath(t.Workspace, raw)
	if err != nil {
		return "", err
	}
	return framework.RelativeToWorkspace(t.Workspace, resolved), nil
}

func (t *GitTool) timeout() time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return framework.DefaultCommandTimeout
}

// stringList accepts a JSON array of strings or a comma separated string.
func stringList(v interface{}) ([]string, error) {
	var out []string
	switch list := v.(type) {
	case nil:
	case []string:
		out = list
	case []interface{}:
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected a list of strings, got %T", item)
			}
			out = append(out, s)
		}
	case string:
		out = strings.Split(list, ",")
	default:
		return nil, fmt.Errorf("expected a list of strings, got %T", v)
	}
	cleaned := out[:0:0]
	for _, s := range out {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned, nil
}
