// Package config loads service configuration in layers: defaults, then a
// TOML file, then CODERUN_* environment variables. CLI flags are applied
// last by the caller and win.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Sandbox  SandboxConfig  `toml:"sandbox"`
	History  HistoryConfig  `toml:"history"`
	Observer ObserverConfig `toml:"observer"`
}

type ServerConfig struct {
	Port          int    `toml:"port"`
	Mode          string `toml:"mode"` // "local" or "cloud"
	MaxConcurrent int    `toml:"max_concurrent"`
}

type SandboxConfig struct {
	Backend        string `toml:"backend"` // "subprocess" or "docker"
	PythonBin      string `toml:"python_bin"`
	Workspace      string `toml:"workspace"`
	TimeoutMinutes int    `toml:"timeout_minutes"`
	MaxOutputBytes int    `toml:"max_output_bytes"`
	Image          string `toml:"image"` // docker backend only
}

type HistoryConfig struct {
	// Driver selects the audit store: "sqlite", "postgres", or "" for
	// disabled.
	Driver string `toml:"driver"`
	Path   string `toml:"path"` // sqlite file
	DSN    string `toml:"dsn"`  // postgres connection string
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:          8000,
			Mode:          "local",
			MaxConcurrent: 4,
		},
		Sandbox: SandboxConfig{
			Backend:        "subprocess",
			PythonBin:      "python3",
			TimeoutMinutes: 30,
			MaxOutputBytes: 512 * 1024,
			Image:          "python:3.12-slim",
		},
		History: HistoryConfig{
			Driver: "sqlite",
			Path:   "coderun.db",
		},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "coderun.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("CODERUN_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("CODERUN_MODE"); v != "" {
		cfg.Server.Mode = v
	}
	if v := os.Getenv("CODERUN_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Server.MaxConcurrent = n
		}
	}
	if v := os.Getenv("CODERUN_SANDBOX_BACKEND"); v != "" {
		cfg.Sandbox.Backend = v
	}
	if v := os.Getenv("CODERUN_PYTHON_BIN"); v != "" {
		cfg.Sandbox.PythonBin = v
	}
	if v := os.Getenv("CODERUN_WORKSPACE"); v != "" {
		cfg.Sandbox.Workspace = v
	}
	if v := os.Getenv("CODERUN_TIMEOUT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Sandbox.TimeoutMinutes = n
		}
	}
	if v := os.Getenv("CODERUN_MAX_OUTPUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Sandbox.MaxOutputBytes = n
		}
	}
	if v := os.Getenv("CODERUN_SANDBOX_IMAGE"); v != "" {
		cfg.Sandbox.Image = v
	}
	if v := os.Getenv("CODERUN_HISTORY_DRIVER"); v != "" {
		cfg.History.Driver = v
	}
	if v := os.Getenv("CODERUN_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("CODERUN_HISTORY_DSN"); v != "" {
		cfg.History.DSN = v
	}
	if v := os.Getenv("CODERUN_OBSERVER_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.Enabled = true
	}

	return cfg
}

// Timeout returns the sandbox budget as a duration.
func (c SandboxConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}
