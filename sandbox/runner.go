package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	coderun "github.com/qiskit-studio/coderun"
)

// Runner executes one rewritten buffer in isolation and renders whatever
// happened (output, fault, or timeout) as text in the Outcome. Faults
// never propagate to the caller.
type Runner interface {
	Execute(ctx context.Context, code string) coderun.Outcome
}

// SubprocessRunner executes each buffer with a fresh Python process, so no
// state leaks between requests. Standard output and standard error share
// one bounded writer; os/exec serializes writes to it, preserving the
// program's write order. Reaching the deadline kills the process.
type SubprocessRunner struct {
	cfg runnerConfig
}

var _ Runner = (*SubprocessRunner)(nil)

// NewSubprocessRunner creates a SubprocessRunner.
func NewSubprocessRunner(opts ...Option) *SubprocessRunner {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &SubprocessRunner{cfg: cfg}
}

// Execute runs code and returns the captured outcome.
func (r *SubprocessRunner) Execute(ctx context.Context, code string) coderun.Outcome {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.timeout)
	defer cancel()

	workspace := r.resolveWorkspace()
	tmpFile, err := os.CreateTemp(workspace, "coderun-*.py")
	if err != nil {
		return r.setupFault(start, fmt.Errorf("create temp script: %w", err))
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(code); err != nil {
		tmpFile.Close()
		return r.setupFault(start, fmt.Errorf("write script: %w", err))
	}
	tmpFile.Close()

	out := newLimitedWriter(r.cfg.maxOutput)

	// -u keeps Python unbuffered so interleaved stdout/stderr writes land
	// in program order.
	cmd := exec.CommandContext(ctx, r.cfg.pythonBin, "-u", tmpFile.Name())
	cmd.Dir = workspace
	cmd.Env = []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + os.Getenv("HOME"),
		"LANG=en_US.UTF-8",
	}
	cmd.Stdout = out
	cmd.Stderr = out

	r.cfg.logger.Debug("sandbox: starting subprocess", "bin", r.cfg.pythonBin, "bytes", len(code))
	waitErr := cmd.Run()
	elapsed := time.Since(start)

	timedOut := ctx.Err() == context.DeadlineExceeded
	outcome := finalize(out.String(), elapsed, waitErr, timedOut, r.cfg.timeout)
	r.cfg.logger.Debug("sandbox: subprocess finished",
		"elapsed", elapsed, "timed_out", outcome.TimedOut, "output_bytes", len(outcome.Output))
	return outcome
}

// resolveWorkspace returns the working directory for the subprocess.
func (r *SubprocessRunner) resolveWorkspace() string {
	if r.cfg.workspace != "" {
		return r.cfg.workspace
	}
	return os.TempDir()
}

// setupFault renders a pre-execution failure (temp file, script write) in
// the same textual form as an execution fault.
func (r *SubprocessRunner) setupFault(start time.Time, err error) coderun.Outcome {
	r.cfg.logger.Error("sandbox: setup failed", "error", err)
	return coderun.Outcome{
		Output:  fmt.Sprintf("Error executing code: %s\n", err),
		Fault:   true,
		Elapsed: time.Since(start),
	}
}
