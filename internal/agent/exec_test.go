package agent

import (
	"context"
	"errors"
	"testing"
)

// fakeRunner records the last command and returns a scripted result.
type fakeRunner struct {
	result  ExecResult
	err     error
	lastCmd string
	lastMod ExecMode
}

func (f *fakeRunner) Run(_ context.Context, command string, mode ExecMode) (ExecResult, error) {
	f.lastCmd = command
	f.lastMod = mode
	return f.result, f.err
}

func TestSelectMode(t *testing.T) {
	s := NewExecSelector(&fakeRunner{})

	tests := []struct {
		name    string
		command string
		hint    string
		want    ExecMode
	}{
		{"plain listing", "ls -la", "", ModeCaptured},
		{"editor", "vim notes.txt", "", ModeInteractive},
		{"pager", "less /var/log/syslog", "", ModeInteractive},
		{"ssh", "ssh host", "", ModeInteractive},
		{"bare python repl", "python3", "", ModeInteractive},
		{"python script", "python3 run.py", "", ModeCaptured},
		{"python -c", "python3 -c 'print(1)'", "", ModeCaptured},
		{"sudo editor", "sudo vim /etc/hosts", "", ModeInteractive},
		{"hint forces interactive", "ls", "open an interactive session", ModeInteractive},
		{"read builtin", "read name", "", ModeInteractive},
		{"unknown defaults captured", "terraform plan", "", ModeCaptured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := s.Select(tt.command, tt.hint)
			if ce.Mode != tt.want {
				t.Errorf("Select(%q, %q).Mode = %s, want %s", tt.command, tt.hint, ce.Mode, tt.want)
			}
		})
	}
}

func TestExecuteSuccess(t *testing.T) {
	runner := &fakeRunner{result: ExecResult{Stdout: "ok\n", ExitCode: 0}}
	s := NewExecSelector(runner)

	ce := CommandExecution{Command: "echo ok", Mode: ModeCaptured}
	if err := s.Execute(context.Background(), &ce); err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}
	if ce.Stdout != "ok\n" || ce.ExitCode != 0 {
		t.Errorf("result = %+v", ce)
	}
	if runner.lastCmd != "echo ok" {
		t.Errorf("runner got %q", runner.lastCmd)
	}
}

func TestExecuteNonZeroExit(t *testing.T) {
	runner := &fakeRunner{
		result: ExecResult{Stderr: "no such file", ExitCode: 2},
		err:    errors.New("exit status 2"),
	}
	s := NewExecSelector(runner)

	ce := CommandExecution{Command: "cat missing", Mode: ModeCaptured}
	err := s.Execute(context.Background(), &ce)
	if err == nil {
		t.Fatal("Execute() = nil, want *ExecutionError")
	}

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error type = %T, want *ExecutionError", err)
	}
	if execErr.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", execErr.ExitCode)
	}
	if ce.ExitCode != 2 {
		t.Errorf("ce.ExitCode = %d, want 2", ce.ExitCode)
	}
}

func TestExecuteSpawnFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("executable not found")}
	s := NewExecSelector(runner)

	ce := CommandExecution{Command: "nosuchbinary", Mode: ModeCaptured}
	err := s.Execute(context.Background(), &ce)

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error type = %T, want *ExecutionError", err)
	}
	if execErr.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1 for spawn failure", execErr.ExitCode)
	}
}
