// Package sandbox runs model-proposed shell commands. Captured commands
// run in a Docker container when the daemon is reachable and fall back
// to the host otherwise; interactive commands always run on the host
// with the terminal attached.
package sandbox

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Result captures the output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	Code     int
	TimedOut bool
}

// Runner executes one shell command with captured output.
type Runner interface {
	// Run executes command through `sh -c` in workDir. A timeout <= 0
	// selects the configured default.
	Run(ctx context.Context, workDir, command string, timeout time.Duration) (Result, error)
}

// NewRunner selects a runner for the configured mode. Docker problems
// degrade to host execution with a warning rather than blocking the
// assistant.
func NewRunner(cfg Config, log *zap.Logger) Runner {
	switch cfg.Mode {
	case ModeHost:
		log.Warn("sandbox disabled, commands run directly on the host")
		return &HostRunner{cfg: cfg}

	case ModeDocker, ModeAuto:
		r, err := NewDockerRunner(cfg)
		if err == nil {
			return r
		}
		if cfg.Mode == ModeDocker {
			log.Warn("docker sandbox requested but unavailable, falling back to host", zap.Error(err))
		} else {
			log.Info("docker unavailable, commands run on the host", zap.Error(err))
		}
		return &HostRunner{cfg: cfg}

	default:
		log.Warn("unknown sandbox mode, using host execution", zap.String("mode", string(cfg.Mode)))
		return &HostRunner{cfg: cfg}
	}
}
