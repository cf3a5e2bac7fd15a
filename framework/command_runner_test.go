//go:build unix

package framework

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCommandRunnerCapturesOutput(t *testing.T) {
	runner := NewLocalCommandRunner(t.TempDir(), time.Minute)
	res, err := runner.Run(context.Background(), CommandRequest{
		Args:  []string{"sh", "-c", "cat; echo err >&2; exit 3"},
		Input: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.TimedOut)
	assert.False(t, res.Interrupted)
}

func TestLocalCommandRunnerSetsEnvironment(t *testing.T) {
	runner := NewLocalCommandRunner(t.TempDir(), time.Minute)
	res, err := runner.Run(context.Background(), CommandRequest{Args: []string{"sh", "-c", "echo $CI"}})
	require.NoError(t, err)
	assert.Equal(t, "true\n", res.Stdout)
}

func TestLocalCommandRunnerTimeout(t *testing.T) {
	runner := NewLocalCommandRunner(t.TempDir(), time.Minute)
	runner.GracePeriod = 100 * time.Millisecond
	start := time.Now()
	res, err := runner.Run(context.Background(), CommandRequest{
		Args:    []string{"sh", "-c", "sleep 30"},
		Timeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.False(t, res.Interrupted)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestLocalCommandRunnerInterruptKillsStubbornProcess(t *testing.T) {
	runner := NewLocalCommandRunner(t.TempDir(), time.Minute)
	runner.GracePeriod = 100 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	res, err := runner.Run(ctx, CommandRequest{Args: []string{"sh", "-c", "trap '' TERM; sleep 30"}})
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestLocalCommandRunnerConfinesWorkdir(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(ws, "sub"), 0o755))
	runner := NewLocalCommandRunner(ws, time.Minute)

	res, err := runner.Run(context.Background(), CommandRequest{Workdir: "sub", Args: []string{"pwd"}})
	require.NoError(t, err)
	assert.Equal(t, "sub", filepath.Base(filepath.Clean(res.Stdout[:len(res.Stdout)-1])))

	_, err = runner.Run(context.Background(), CommandRequest{Workdir: "..", Args: []string{"pwd"}})
	var pathErr *PathSecurityError
	assert.True(t, errors.As(err, &pathErr))
}

func TestResolveWorkspacePath(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ws, "a.txt"), []byte("x"), 0o644))
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(ws, "link")))

	got, err := ResolveWorkspacePath(ws, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", filepath.Base(got))

	got, err = ResolveWorkspacePath(ws, "new/dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "new/dir/file.txt", RelativeToWorkspace(ws, got))

	abs, err := ResolveWorkspacePath(ws, filepath.Join(ws, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", RelativeToWorkspace(ws, abs))

	for _, bad := range []string{"../x", "/etc/passwd", "sub/../../x", "link/secret"} {
		_, err := ResolveWorkspacePath(ws, bad)
		var pathErr *PathSecurityError
		assert.True(t, errors.As(err, &pathErr), bad)
	}

	root, err := ResolveWorkspacePath(ws, "")
	require.NoError(t, err)
	assert.Equal(t, ".", RelativeToWorkspace(ws, root))
}
