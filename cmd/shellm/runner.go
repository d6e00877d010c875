package main

import (
	"context"

	"shellm/internal/agent"
	"shellm/internal/sandbox"
)

// sandboxRunner bridges the agent's process contract onto the sandbox:
// captured commands go through the configured runner, interactive ones
// always run on the host with the terminal attached.
type sandboxRunner struct {
	captured sandbox.Runner
	workDir  string
}

func (r *sandboxRunner) Run(ctx context.Context, command string, mode agent.ExecMode) (agent.ExecResult, error) {
	if mode == agent.ModeInteractive {
		code, err := sandbox.RunInteractive(ctx, r.workDir, command)
		return agent.ExecResult{ExitCode: code}, err
	}

	res, err := r.captured.Run(ctx, r.workDir, command, 0)
	return agent.ExecResult{
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.Code,
		TimedOut: res.TimedOut,
	}, err
}
