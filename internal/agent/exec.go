// This file contains the execution selector: it decides between
// interactive and captured execution for a command and runs it through
// the process collaborator.
package agent

import (
	"context"
	"strings"
)

// CommandExecution is a command paired with its chosen mode and, after
// Execute, its result.
type CommandExecution struct {
	Command  string
	Mode     ExecMode
	ExitCode int
	Stdout   string
	Stderr   string
}

// alwaysInteractive are commands that take over the terminal regardless
// of arguments.
var alwaysInteractive = map[string]bool{
	"vim": true, "vi": true, "nano": true, "emacs": true,
	"less": true, "more": true, "man": true,
	"top": true, "htop": true,
	"ssh": true, "telnet": true, "ftp": true, "sftp": true,
}

// replCommands open an interactive prompt when invoked without a script
// argument.
var replCommands = map[string]bool{
	"python": true, "python3": true, "node": true, "irb": true,
	"psql": true, "mysql": true, "sqlite3": true, "redis-cli": true,
}

// ExecSelector chooses an execution mode and runs commands.
type ExecSelector struct {
	runner ProcessRunner
}

// NewExecSelector creates a selector over the given runner.
func NewExecSelector(runner ProcessRunner) *ExecSelector {
	return &ExecSelector{runner: runner}
}

// Select decides the execution mode. hint is free text from the
// instruction or the model; the word "interactive" in it forces
// interactive mode. Everything not heuristically detected as
// stdin-blocking runs captured.
func (s *ExecSelector) Select(command, hint string) CommandExecution {
	mode := ModeCaptured
	if needsTerminal(command) || strings.Contains(strings.ToLower(hint), "interactive") {
		mode = ModeInteractive
	}
	return CommandExecution{Command: command, Mode: mode}
}

// Execute runs the command, filling in the result. A non-zero exit or a
// spawn failure is reported as an *ExecutionError; it does not panic or
// crash the pipeline.
func (s *ExecSelector) Execute(ctx context.Context, ce *CommandExecution) error {
	res, err := s.runner.Run(ctx, ce.Command, ce.Mode)
	ce.ExitCode = res.ExitCode
	ce.Stdout = res.Stdout
	ce.Stderr = res.Stderr

	if err != nil && res.ExitCode == 0 {
		// Spawn error: the process never produced an exit code.
		ce.ExitCode = -1
		return &ExecutionError{Command: ce.Command, ExitCode: -1, Stderr: err.Error()}
	}
	if ce.ExitCode != 0 {
		return &ExecutionError{Command: ce.Command, ExitCode: ce.ExitCode, Stderr: ce.Stderr}
	}
	return nil
}

func needsTerminal(command string) bool {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}
	head := fields[0]
	if head == "sudo" && len(fields) > 1 {
		head = fields[1]
		fields = fields[1:]
	}
	if alwaysInteractive[head] {
		return true
	}
	if replCommands[head] {
		// Bare invocation (or flags only) drops into a REPL; a script or
		// -c argument runs to completion.
		for _, arg := range fields[1:] {
			if !strings.HasPrefix(arg, "-") {
				return false
			}
			if arg == "-c" || arg == "-e" {
				return false
			}
		}
		return true
	}
	// A shell read builtin waits on stdin.
	return head == "read"
}
