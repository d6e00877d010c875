//go:build !windows
// +build !windows

package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestHostRunnerCapture(t *testing.T) {
	r := &HostRunner{}

	res, err := r.Run(context.Background(), t.TempDir(), "echo hello; echo oops >&2", 10*time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if strings.TrimSpace(res.Stderr) != "oops" {
		t.Errorf("Stderr = %q", res.Stderr)
	}
	if res.Code != 0 {
		t.Errorf("Code = %d", res.Code)
	}
}

func TestHostRunnerExitCode(t *testing.T) {
	r := &HostRunner{}

	res, err := r.Run(context.Background(), t.TempDir(), "exit 3", 10*time.Second)
	if err == nil {
		t.Fatal("Run() error = nil, want exit error")
	}
	if res.Code != 3 {
		t.Errorf("Code = %d, want 3", res.Code)
	}
}

func TestHostRunnerTimeout(t *testing.T) {
	r := &HostRunner{}

	start := time.Now()
	res, _ := r.Run(context.Background(), t.TempDir(), "sleep 10", 200*time.Millisecond)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout did not fire, took %s", elapsed)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false, want true")
	}
}

func TestHostRunnerWorkDir(t *testing.T) {
	dir := t.TempDir()
	r := &HostRunner{}

	res, err := r.Run(context.Background(), dir, "pwd", 10*time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Symlinked temp dirs make exact comparison flaky; the suffix is
	// stable.
	if !strings.Contains(res.Stdout, "/") {
		t.Errorf("Stdout = %q", res.Stdout)
	}
}
