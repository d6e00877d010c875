package sandbox

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Mode selects how captured commands are isolated.
type Mode string

const (
	// ModeDocker requires a container; unavailability degrades to host.
	ModeDocker Mode = "docker"
	// ModeHost runs commands directly on the host, no isolation.
	ModeHost Mode = "host"
	// ModeAuto prefers Docker when the daemon answers, host otherwise.
	ModeAuto Mode = "auto"
)

const defaultCmdTimeout = 2 * time.Minute

// Config holds sandbox settings.
type Config struct {
	Mode        Mode
	DockerImage string // explicit image override
	Language    string // workspace language hint, picks the default image
	CPU         string // e.g. "2"
	Memory      string // e.g. "1g"
	CmdTimeout  time.Duration
}

// ConfigFromEnv builds a Config from SHELLM_SANDBOX_* environment
// variables. Unset values take defaults; invalid ones are logged and
// replaced.
func ConfigFromEnv(log *zap.Logger) Config {
	mode := Mode(strings.ToLower(os.Getenv("SHELLM_SANDBOX_MODE")))
	switch mode {
	case ModeDocker, ModeHost, ModeAuto:
	case "":
		mode = ModeAuto
	default:
		log.Warn("unknown SHELLM_SANDBOX_MODE, using auto", zap.String("value", string(mode)))
		mode = ModeAuto
	}

	cmdTimeout := defaultCmdTimeout
	if raw := os.Getenv("SHELLM_CMD_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cmdTimeout = d
		} else {
			log.Warn("invalid SHELLM_CMD_TIMEOUT, using default", zap.String("value", raw))
		}
	}

	return Config{
		Mode:        mode,
		DockerImage: os.Getenv("SHELLM_DOCKER_IMAGE"),
		CPU:         envOrDefault("SHELLM_DOCKER_CPU", "2"),
		Memory:      envOrDefault("SHELLM_DOCKER_MEMORY", "1g"),
		CmdTimeout:  cmdTimeout,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c Config) timeoutOr(timeout time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}
	if c.CmdTimeout > 0 {
		return c.CmdTimeout
	}
	return defaultCmdTimeout
}
