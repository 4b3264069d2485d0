// Package sandbox provides execution backends for rewritten code buffers.
package sandbox

import (
	"log/slog"
	"time"
)

// Option configures a runner.
type Option func(*runnerConfig)

type runnerConfig struct {
	// Shared options.
	timeout   time.Duration
	maxOutput int
	logger    *slog.Logger

	// SubprocessRunner options.
	pythonBin string
	workspace string

	// DockerRunner options.
	image       string
	memoryBytes int64
	nanoCPUs    int64
}

func defaultConfig() runnerConfig {
	return runnerConfig{
		timeout:     30 * time.Minute,
		maxOutput:   512 * 1024, // 512KB
		logger:      slog.New(slog.DiscardHandler),
		pythonBin:   "python3",
		image:       "python:3.12-slim",
		memoryBytes: 1 << 30, // 1GB
		nanoCPUs:    2e9,     // 2 CPUs
	}
}

// WithTimeout sets the maximum execution duration, enforced with a hard
// kill of the subprocess or container. Default: 30m.
func WithTimeout(d time.Duration) Option {
	return func(c *runnerConfig) { c.timeout = d }
}

// WithMaxOutput sets the maximum captured output size in bytes. Output
// beyond this limit is discarded. Default: 512KB.
func WithMaxOutput(bytes int) Option {
	return func(c *runnerConfig) { c.maxOutput = bytes }
}

// WithLogger sets a structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(c *runnerConfig) { c.logger = l }
}

// WithPythonBin sets the Python binary for SubprocessRunner.
// Default: "python3".
func WithPythonBin(bin string) Option {
	return func(c *runnerConfig) { c.pythonBin = bin }
}

// WithWorkspace sets the working directory for SubprocessRunner.
// Default: the OS temp directory.
func WithWorkspace(dir string) Option {
	return func(c *runnerConfig) { c.workspace = dir }
}

// WithImage sets the container image for DockerRunner.
// Default: "python:3.12-slim".
func WithImage(image string) Option {
	return func(c *runnerConfig) { c.image = image }
}

// WithMemoryLimit sets the container memory limit in bytes for
// DockerRunner. Default: 1GB.
func WithMemoryLimit(bytes int64) Option {
	return func(c *runnerConfig) { c.memoryBytes = bytes }
}

// WithCPULimit sets the container CPU quota in units of 1e-9 CPUs for
// DockerRunner. Default: 2 CPUs.
func WithCPULimit(nanoCPUs int64) Option {
	return func(c *runnerConfig) { c.nanoCPUs = nanoCPUs }
}
