package sandbox

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	coderun "github.com/qiskit-studio/coderun"
)

const containerScriptPath = "/tmp/main.py"

// DockerRunner executes each buffer in a fresh container with networking
// disabled and memory and CPU limits applied. The container is force
// removed when execution finishes or the deadline fires.
type DockerRunner struct {
	cli *client.Client
	cfg runnerConfig
}

var _ Runner = (*DockerRunner)(nil)

// NewDockerRunner creates a DockerRunner from the ambient Docker
// environment (DOCKER_HOST etc.).
func NewDockerRunner(opts ...Option) (*DockerRunner, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &DockerRunner{cli: cli, cfg: cfg}, nil
}

// Close releases the underlying Docker client.
func (r *DockerRunner) Close() error {
	return r.cli.Close()
}

// Execute runs code in a one-shot container and returns the captured
// outcome.
func (r *DockerRunner) Execute(ctx context.Context, code string) coderun.Outcome {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.timeout)
	defer cancel()

	id, err := r.createContainer(ctx)
	if err != nil {
		return r.setupFault(start, err)
	}
	defer r.removeContainer(id)

	if err := r.copyScript(ctx, id, code); err != nil {
		return r.setupFault(start, err)
	}
	if err := r.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return r.setupFault(start, fmt.Errorf("start container: %w", err))
	}
	r.cfg.logger.Debug("sandbox: container started", "id", id[:12], "image", r.cfg.image)

	waitErr := r.waitForExit(ctx, id)
	elapsed := time.Since(start)
	timedOut := ctx.Err() == context.DeadlineExceeded

	captured := r.collectLogs(ctx, id)
	outcome := finalize(captured, elapsed, waitErr, timedOut, r.cfg.timeout)
	r.cfg.logger.Debug("sandbox: container finished",
		"id", id[:12], "elapsed", elapsed, "timed_out", outcome.TimedOut, "output_bytes", len(outcome.Output))
	return outcome
}

func (r *DockerRunner) createContainer(ctx context.Context) (string, error) {
	created, err := r.cli.ContainerCreate(ctx,
		&container.Config{
			Image:      r.cfg.image,
			Cmd:        []string{"python3", "-u", containerScriptPath},
			WorkingDir: "/tmp",
			Env:        []string{"PYTHONUNBUFFERED=1"},
		},
		&container.HostConfig{
			NetworkMode: "none",
			Resources: container.Resources{
				Memory:   r.cfg.memoryBytes,
				NanoCPUs: r.cfg.nanoCPUs,
			},
		},
		nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	return created.ID, nil
}

// copyScript stages the buffer as /tmp/main.py inside the container.
func (r *DockerRunner) copyScript(ctx context.Context, id, code string) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Name: "main.py",
		Mode: 0o644,
		Size: int64(len(code)),
	}); err != nil {
		return fmt.Errorf("tar script: %w", err)
	}
	if _, err := tw.Write([]byte(code)); err != nil {
		return fmt.Errorf("tar script: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("tar script: %w", err)
	}
	if err := r.cli.CopyToContainer(ctx, id, "/tmp", &buf, container.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("copy script: %w", err)
	}
	return nil
}

// waitForExit blocks until the container stops or ctx fires. A non-zero
// exit code is reported as an error so the fault path renders it.
func (r *DockerRunner) waitForExit(ctx context.Context, id string) error {
	waitCh, errCh := r.cli.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case status := <-waitCh:
		if status.StatusCode != 0 {
			return fmt.Errorf("exit status %d", status.StatusCode)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// collectLogs reads the container's combined output. It uses a detached
// context so logs survive the execution deadline.
func (r *DockerRunner) collectLogs(ctx context.Context, id string) string {
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	rc, err := r.cli.ContainerLogs(logCtx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		r.cfg.logger.Error("sandbox: reading container logs failed", "id", id[:12], "error", err)
		return ""
	}
	defer rc.Close()

	// Both streams into the same writer, in demux order.
	out := newLimitedWriter(r.cfg.maxOutput)
	if _, err := stdcopy.StdCopy(out, out, rc); err != nil {
		r.cfg.logger.Error("sandbox: demuxing container logs failed", "id", id[:12], "error", err)
	}
	return out.String()
}

// removeContainer force removes the container on a detached context so
// cleanup proceeds after the deadline fires.
func (r *DockerRunner) removeContainer(id string) {
	rmCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.cli.ContainerRemove(rmCtx, id, container.RemoveOptions{Force: true}); err != nil {
		r.cfg.logger.Error("sandbox: removing container failed", "id", id[:12], "error", err)
	}
}

func (r *DockerRunner) setupFault(start time.Time, err error) coderun.Outcome {
	r.cfg.logger.Error("sandbox: container setup failed", "error", err)
	return coderun.Outcome{
		Output:  fmt.Sprintf("Error executing code: %s\n", err),
		Fault:   true,
		Elapsed: time.Since(start),
	}
}
