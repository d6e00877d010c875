package sandbox

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("SHELLM_SANDBOX_MODE", "")
		t.Setenv("SHELLM_CMD_TIMEOUT", "")

		cfg := ConfigFromEnv(zap.NewNop())
		if cfg.Mode != ModeAuto {
			t.Errorf("Mode = %s, want %s", cfg.Mode, ModeAuto)
		}
		if cfg.CmdTimeout != defaultCmdTimeout {
			t.Errorf("CmdTimeout = %s, want %s", cfg.CmdTimeout, defaultCmdTimeout)
		}
		if cfg.CPU != "2" || cfg.Memory != "1g" {
			t.Errorf("CPU/Memory = %s/%s", cfg.CPU, cfg.Memory)
		}
	})

	t.Run("explicit values", func(t *testing.T) {
		t.Setenv("SHELLM_SANDBOX_MODE", "host")
		t.Setenv("SHELLM_CMD_TIMEOUT", "30s")

		cfg := ConfigFromEnv(zap.NewNop())
		if cfg.Mode != ModeHost {
			t.Errorf("Mode = %s, want %s", cfg.Mode, ModeHost)
		}
		if cfg.CmdTimeout != 30*time.Second {
			t.Errorf("CmdTimeout = %s, want 30s", cfg.CmdTimeout)
		}
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		t.Setenv("SHELLM_SANDBOX_MODE", "vmware")
		t.Setenv("SHELLM_CMD_TIMEOUT", "forever")

		cfg := ConfigFromEnv(zap.NewNop())
		if cfg.Mode != ModeAuto {
			t.Errorf("Mode = %s, want %s", cfg.Mode, ModeAuto)
		}
		if cfg.CmdTimeout != defaultCmdTimeout {
			t.Errorf("CmdTimeout = %s, want default", cfg.CmdTimeout)
		}
	})
}

func TestTimeoutOr(t *testing.T) {
	cfg := Config{CmdTimeout: time.Minute}
	if got := cfg.timeoutOr(10 * time.Second); got != 10*time.Second {
		t.Errorf("explicit timeout lost: %s", got)
	}
	if got := cfg.timeoutOr(0); got != time.Minute {
		t.Errorf("config timeout lost: %s", got)
	}
	if got := (Config{}).timeoutOr(0); got != defaultCmdTimeout {
		t.Errorf("default timeout lost: %s", got)
	}
}

func TestParseMemory(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1g", 1 << 30},
		{"512m", 512 << 20},
		{"64k", 64 << 10},
		{"", 1 << 30},
		{"junk", 1 << 30},
	}
	for _, tt := range tests {
		if got := parseMemory(tt.in); got != tt.want {
			t.Errorf("parseMemory(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseCPU(t *testing.T) {
	if got := parseCPU("4"); got != 4 {
		t.Errorf("parseCPU(4) = %d", got)
	}
	if got := parseCPU(""); got != 2 {
		t.Errorf("parseCPU empty = %d, want 2", got)
	}
	if got := parseCPU("-1"); got != 2 {
		t.Errorf("parseCPU(-1) = %d, want 2", got)
	}
}
