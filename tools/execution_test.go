//go:build unix

package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/reagent/framework"
)

func newRunCommandTool(t *testing.T) *RunCommandTool {
	dir := t.TempDir()
	return &RunCommandTool{Workspace: dir, Runner: framework.NewLocalCommandRunner(dir, time.Minute)}
}

func TestRunCommandToolReportsOutcome(t *testing.T) {
	tool := newRunCommandTool(t)

	out, err := tool.Run(context.Background(), map[string]interface{}{"command": "echo hello; echo oops >&2"})
	require.NoError(t, err)
	assert.Equal(t, "Command succeeded.\nstdout:\nhello\n\nstderr:\noops\n", out)

	out, err = tool.Run(context.Background(), map[string]interface{}{"command": "exit 3"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Command failed (exit code 3)."), out)
}

func TestRunCommandToolTimeout(t *testing.T) {
	tool := newRunCommandTool(t)
	out, err := tool.Run(context.Background(), map[string]interface{}{"command": "sleep 5", "timeout": 1})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Command timed out after 1s."), out)
}

func TestRunCommandToolInterrupted(t *testing.T) {
	tool := newRunCommandTool(t)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	out, err := tool.Run(ctx, map[string]interface{}{"command": "sleep 5"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Command interrupted by the user."), out)
}

func TestRunCommandToolValidation(t *testing.T) {
	tool := newRunCommandTool(t)
	_, err := tool.Run(context.Background(), map[string]interface{}{"command": "  "})
	assert.Error(t, err)
	_, err = (&RunCommandTool{}).Run(context.Background(), map[string]interface{}{"command": "ls"})
	assert.Error(t, err)
}

func TestTruncateMiddle(t *testing.T) {
	assert.Equal(t, "short", truncateMiddle("short", 10))
	got := truncateMiddle(strings.Repeat("a", 10)+strings.Repeat("b", 10), 10)
	assert.Equal(t, "aaaaa\n... (10 characters omitted) ...\nbbbbb", got)
}
