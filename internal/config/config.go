// Package config loads the assistant's settings: a JSON file under the
// user config directory, overlaid by environment variables, overlaid by
// flags at the call site.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	// DefaultCallLimit caps model calls per agent task.
	DefaultCallLimit = 20
	// MaxCallLimit is the hard ceiling no configuration can exceed.
	MaxCallLimit = 100
)

// Config holds the user's settings.
type Config struct {
	Host        string  `json:"host,omitempty"`  // Ollama address
	Model       string  `json:"model,omitempty"` // model name
	CallLimit   int     `json:"call_limit,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Manager reads and writes the configuration file.
type Manager struct {
	configDir string
}

// NewManager locates the configuration directory.
func NewManager() (*Manager, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user config dir: %w", err)
	}
	return &Manager{configDir: filepath.Join(dir, "shellm")}, nil
}

// Path returns the absolute path of config.json.
func (m *Manager) Path() string {
	return filepath.Join(m.configDir, "config.json")
}

// Load reads the file, then applies environment overrides. A missing
// file is not an error; defaults fill the gaps.
func (m *Manager) Load() (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(m.Path())
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)
	cfg.CallLimit = ClampCallLimit(cfg.CallLimit)
	return cfg, nil
}

// Save writes the configuration with owner-only permissions.
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(m.Path(), data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("SHELLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("SHELLM_AGENT_CALL_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CallLimit = n
		}
	}
	if v := os.Getenv("SHELLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil && f > 0 {
			cfg.Temperature = float32(f)
		}
	}
	if v := os.Getenv("SHELLM_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTokens = n
		}
	}
}

// ClampCallLimit forces the call limit into [1, MaxCallLimit]; zero or
// negative selects the default.
func ClampCallLimit(n int) int {
	if n <= 0 {
		return DefaultCallLimit
	}
	if n > MaxCallLimit {
		return MaxCallLimit
	}
	return n
}
