// Package agent provides the task orchestration and execution engine
// behind the /agent command. It drives a bounded sequence of model calls
// through fixed pipeline stages and performs the resulting side effects
// (file writes, process runs) under explicit user confirmation.
package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

// Completer issues one completion against the local model.
// taskContext carries prior file content and gathered context; it may be
// empty.
type Completer interface {
	Complete(ctx context.Context, prompt, taskContext string) (string, error)
}

// ErrNotFound is returned by FS.ReadFile when the path does not exist.
var ErrNotFound = errors.New("file not found")

// FS is the file collaborator. All paths are relative to the workspace
// root.
type FS interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}

// ExecMode selects how a process is run.
type ExecMode string

const (
	// ModeInteractive inherits the terminal; used for commands that need
	// stdin.
	ModeInteractive ExecMode = "interactive"
	// ModeCaptured buffers stdout/stderr and reports the exit code.
	ModeCaptured ExecMode = "captured"
)

// ExecResult captures the output of a finished process.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// ProcessRunner runs a shell command in the chosen mode.
type ProcessRunner interface {
	Run(ctx context.Context, command string, mode ExecMode) (ExecResult, error)
}

// Confirmer asks the user a yes/no question. It blocks until the user
// answers; no timeout is imposed.
type Confirmer interface {
	Confirm(message string) bool
}

// OSFS implements FS against the real filesystem, rooted at a workspace
// directory.
type OSFS struct {
	Root string
}

func (f OSFS) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.Root, path))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

// WriteFile writes the exact bytes produced by the pipeline, creating
// parent directories as needed. No reformatting.
func (f OSFS) WriteFile(path string, data []byte) error {
	full := filepath.Join(f.Root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0644)
}
