package sandbox

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-units"
)

// DockerRunner runs captured commands in throwaway containers: no
// network, read-only rootfs, dropped capabilities, the working
// directory bind-mounted at /workspace.
type DockerRunner struct {
	client *client.Client
	cfg    Config
}

// NewDockerRunner creates a Docker-backed runner. It fails fast when
// the daemon does not answer a ping.
func NewDockerRunner(cfg Config) (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("docker daemon not accessible: %w", err)
	}

	return &DockerRunner{client: cli, cfg: cfg}, nil
}

// Run executes the command through `sh -c` inside a container.
func (r *DockerRunner) Run(ctx context.Context, workDir, command string, timeout time.Duration) (Result, error) {
	timeout = r.cfg.timeoutOr(timeout)

	img := r.imageFor(r.cfg.Language)
	if err := r.ensureImage(ctx, img); err != nil {
		return Result{}, fmt.Errorf("ensure image %s: %w", img, err)
	}

	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return Result{}, fmt.Errorf("resolve work dir: %w", err)
	}

	containerConfig := &container.Config{
		Image:           img,
		Cmd:             []string{"sh", "-c", command},
		WorkingDir:      "/workspace",
		User:            "1000:1000",
		Env:             []string{"HOME=/tmp"},
		NetworkDisabled: true,
	}

	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: absDir,
			Target: "/workspace",
		}},
		Resources: container.Resources{
			Memory:   parseMemory(r.cfg.Memory),
			NanoCPUs: parseCPU(r.cfg.CPU) * 1e9,
			Ulimits: []*units.Ulimit{{
				Name: "nofile",
				Soft: 1024,
				Hard: 1024,
			}},
		},
		SecurityOpt:    []string{"no-new-privileges"},
		CapDrop:        []string{"ALL"},
		ReadonlyRootfs: true,
		Tmpfs: map[string]string{
			"/tmp": "rw,noexec,nosuid,size=100m",
		},
		AutoRemove: true,
	}

	createResp, err := r.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return Result{}, fmt.Errorf("create container: %w", err)
	}
	containerID := createResp.ID

	defer func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.client.ContainerRemove(removeCtx, containerID, container.RemoveOptions{Force: true})
	}()

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := r.client.ContainerStart(execCtx, containerID, container.StartOptions{}); err != nil {
		return Result{}, fmt.Errorf("start container: %w", err)
	}

	statusCh, errCh := r.client.ContainerWait(execCtx, containerID, container.WaitConditionNotRunning)

	var exitCode int64
	select {
	case <-execCtx.Done():
		killCtx, killCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer killCancel()
		_ = r.client.ContainerKill(killCtx, containerID, "SIGKILL")
		return Result{
			Code:     1,
			TimedOut: true,
			Stderr:   "command execution timed out",
		}, execCtx.Err()
	case err := <-errCh:
		if err != nil {
			return Result{}, fmt.Errorf("container wait: %w", err)
		}
	case status := <-statusCh:
		exitCode = status.StatusCode
	}

	logs, err := r.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       "all",
	})
	if err != nil {
		return Result{}, fmt.Errorf("read container logs: %w", err)
	}
	defer logs.Close()

	stdout, stderr := demuxLogs(logs)

	return Result{
		Stdout: stdout,
		Stderr: stderr,
		Code:   int(exitCode),
	}, nil
}

// imageFor picks a lightweight image for the workspace language. An
// explicit override wins.
func (r *DockerRunner) imageFor(language string) string {
	if r.cfg.DockerImage != "" {
		return r.cfg.DockerImage
	}
	switch language {
	case "go":
		return "golang:alpine"
	case "javascript", "typescript":
		return "node:alpine"
	case "python":
		return "python:alpine"
	case "rust":
		return "rust:alpine"
	case "ruby":
		return "ruby:alpine"
	default:
		return "alpine:latest"
	}
}

func (r *DockerRunner) ensureImage(ctx context.Context, imageName string) error {
	if _, _, err := r.client.ImageInspectWithRaw(ctx, imageName); err == nil {
		return nil
	}

	reader, err := r.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image: %w", err)
	}
	defer reader.Close()

	// The pull only completes once the progress stream is drained.
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

// demuxLogs splits the multiplexed container log stream. Each frame is
// an 8-byte header (stream type, 3 reserved bytes, big-endian size)
// followed by the payload.
func demuxLogs(reader io.Reader) (stdout, stderr string) {
	var stdoutParts, stderrParts []string

	for {
		header := make([]byte, 8)
		if _, err := io.ReadFull(reader, header); err != nil {
			break
		}

		streamType := header[0]
		size := int(header[4])<<24 | int(header[5])<<16 | int(header[6])<<8 | int(header[7])
		if size <= 0 || size > 10*1024*1024 {
			continue
		}

		payload := make([]byte, size)
		if _, err := io.ReadFull(reader, payload); err != nil {
			break
		}

		content := strings.TrimSuffix(string(payload), "\n")
		switch streamType {
		case 1:
			stdoutParts = append(stdoutParts, content)
		case 2:
			stderrParts = append(stderrParts, content)
		}
	}

	return strings.Join(stdoutParts, "\n"), strings.Join(stderrParts, "\n")
}

func parseMemory(memStr string) int64 {
	memStr = strings.ToLower(strings.TrimSpace(memStr))
	if memStr == "" {
		return 1024 * 1024 * 1024
	}

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(memStr, "g"):
		multiplier = 1024 * 1024 * 1024
		memStr = strings.TrimSuffix(memStr, "g")
	case strings.HasSuffix(memStr, "m"):
		multiplier = 1024 * 1024
		memStr = strings.TrimSuffix(memStr, "m")
	case strings.HasSuffix(memStr, "k"):
		multiplier = 1024
		memStr = strings.TrimSuffix(memStr, "k")
	}

	var value int64
	fmt.Sscanf(memStr, "%d", &value)
	if value <= 0 {
		return 1024 * 1024 * 1024
	}
	return value * multiplier
}

func parseCPU(cpuStr string) int64 {
	var value float64
	fmt.Sscanf(strings.TrimSpace(cpuStr), "%f", &value)
	if value <= 0 {
		return 2
	}
	return int64(value)
}
