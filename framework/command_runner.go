package framework

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommandTimeout applies when neither the caller nor the config sets one.
const DefaultCommandTimeout = 300 * time.Second

// DefaultGracePeriod is how long a terminated process gets before it is killed.
const DefaultGracePeriod = 2 * time.Second

// CommandRequest captures process execution metadata.
type CommandRequest struct {
	Workdir string
	Args    []string
	Env     []string
	Input   string
	Timeout time.Duration
}

// CommandResult is the outcome of a process that was started. A non-zero
// exit, a timeout or an interrupt are all results, not errors.
type CommandResult struct {
	Stdout      string
	Stderr      string
	ExitCode    int
	TimedOut    bool
	Interrupted bool
	Duration    time.Duration
}

// CommandRunner executes processes on behalf of tools.
type CommandRunner interface {
	Run(ctx context.Context, req CommandRequest) (*CommandResult, error)
}

// LocalCommandRunner runs processes on the host, confined to a workspace
// working directory. Cancelling ctx or hitting the timeout sends SIGTERM to
// the whole process group and SIGKILL after GracePeriod.
type LocalCommandRunner struct {
	Workspace      string
	DefaultTimeout time.Duration
	GracePeriod    time.Duration
	Env            []string
}

// NewLocalCommandRunner builds a runner for workspace.
func NewLocalCommandRunner(workspace string, timeout time.Duration) *LocalCommandRunner {
	return &LocalCommandRunner{
		Workspace:      workspace,
		DefaultTimeout: timeout,
		GracePeriod:    DefaultGracePeriod,
		Env:            []string{"CI=true", "DEBIAN_FRONTEND=noninteractive"},
	}
}

// Run starts the process and waits for it, a timeout, or cancellation.
func (r *LocalCommandRunner) Run(ctx context.Context, req CommandRequest) (*CommandResult, error) {
	if r == nil {
		return nil, errors.New("command runner missing")
	}
	if len(req.Args) == 0 {
		return nil, errors.New("command arguments required")
	}
	workdir, err := ResolveWorkspacePath(r.Workspace, req.Workdir)
	if err != nil {
		return nil, err
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.DefaultTimeout
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	grace := r.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	cmd := exec.Command(req.Args[0], req.Args[1:]...)
	cmd.Dir = workdir
	cmd.Env = append(append(os.Environ(), r.Env...), req.Env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if req.Input != "" {
		cmd.Stdin = strings.NewReader(req.Input)
	}
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", req.Args[0], err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	res := &CommandResult{}
	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		res.Interrupted = true
		waitErr = stop(cmd, done, grace)
	case <-timer.C:
		res.TimedOut = true
		waitErr = stop(cmd, done, grace)
	}
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, waitErr
	}
	return res, nil
}

func stop(cmd *exec.Cmd, done <-chan error, grace time.Duration) error {
	_ = terminateProcess(cmd)
	select {
	case err := <-done:
		return err
	case <-time.After(grace):
		_ = killProcess(cmd)
		return <-done
	}
}
