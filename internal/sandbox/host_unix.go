//go:build !windows
// +build !windows

package sandbox

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// HostRunner runs captured commands directly on the host. No isolation;
// used when Docker is unavailable or host mode was requested.
type HostRunner struct {
	cfg Config
}

// Run executes the command through `sh -c` with output captured. The
// command runs in its own process group so cancellation kills children
// too.
func (r *HostRunner) Run(ctx context.Context, workDir, command string, timeout time.Duration) (Result, error) {
	cctx, cancel := context.WithTimeout(ctx, r.cfg.timeoutOr(timeout))
	defer cancel()

	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = workDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		return Result{}, err
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-cctx.Done():
			// Negative pid kills the whole process group.
			if cmd.Process != nil {
				syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	res := Result{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}
	if errors.Is(cctx.Err(), context.DeadlineExceeded) || errors.Is(cctx.Err(), context.Canceled) {
		res.TimedOut = true
	}

	if waitErr != nil {
		res.Code = 1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.Code = exitErr.ExitCode()
		}
		return res, waitErr
	}
	return res, nil
}

// RunInteractive executes the command on the host with the terminal
// attached. It never runs in Docker and carries no timeout; the user is
// driving the process.
func RunInteractive(ctx context.Context, workDir, command string) (int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = workDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), err
		}
		return -1, err
	}
	return 0, nil
}
