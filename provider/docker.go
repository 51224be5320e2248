package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dockerWorkdir = "/workdir"

const sandboxMemoryBytes = 512 * 1024 * 1024

// Docker implements Provider on the Docker Engine API. Each sandbox is one
// long-lived container whose PID 1 is a bounded sleep, so an idle sandbox
// exits on its own once the session timeout elapses and its status flips
// to not-running.
type Docker struct {
	logger *zap.Logger
	cli    *client.Client
}

var _ Provider = (*Docker)(nil)

// NewDocker initializes and returns a verified Docker provider.
// It performs a connection check (Ping) so the service cannot start
// against an unreachable daemon.
func NewDocker(logger *zap.Logger) (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}

	if _, err := cli.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("connecting to docker daemon: %w", err)
	}

	logger.Info("docker provider initialized")
	return &Docker{logger: logger, cli: cli}, nil
}

// Create provisions a new sandbox container and starts it.
func (d *Docker) Create(ctx context.Context, cfg CreateConfig) (Handle, error) {
	reader, err := d.cli.ImagePull(ctx, cfg.Runtime, image.PullOptions{})
	if err != nil {
		return nil, fmt.Errorf("pulling image %s: %w", cfg.Runtime, err)
	}
	// Drain the response body to ensure the pull completes properly.
	io.Copy(io.Discard, reader)
	reader.Close()

	name := "sandbox-" + uuid.NewString()
	idleSec := int(cfg.IdleTimeout.Seconds())

	resp, err := d.cli.ContainerCreate(ctx, &container.Config{
		Image:      cfg.Runtime,
		Cmd:        []string{"sleep", strconv.Itoa(idleSec)},
		WorkingDir: dockerWorkdir,
	}, &container.HostConfig{
		NetworkMode: "none",
		CapDrop:     []string{"ALL"},
		SecurityOpt: []string{"no-new-privileges:true"},
		Resources: container.Resources{
			Memory: sandboxMemoryBytes,
		},
	}, nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}

	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	d.logger.Info("sandbox container created",
		zap.String("sandbox_id", resp.ID),
		zap.String("runtime", cfg.Runtime),
		zap.Int("idle_timeout_sec", idleSec))

	return &dockerHandle{d: d, id: resp.ID, status: StatusRunning}, nil
}

// Get fetches a sandbox by id. It fails if the daemon no longer knows the
// container (e.g. it was removed after expiry).
func (d *Docker) Get(ctx context.Context, id string) (Handle, error) {
	info, err := d.cli.ContainerInspect(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("inspecting container %s: %w", id, err)
	}

	status := StatusUnknown
	if info.State != nil {
		if info.State.Running {
			status = StatusRunning
		} else {
			status = StatusStopped
		}
	}

	return &dockerHandle{d: d, id: id, status: status}, nil
}

type dockerHandle struct {
	d      *Docker
	id     string
	status Status
}

func (h *dockerHandle) ID() string      { return h.id }
func (h *dockerHandle) Status() Status  { return h.status }
func (h *dockerHandle) Workdir() string { return dockerWorkdir }

// Stop halts and removes the sandbox container.
func (h *dockerHandle) Stop(ctx context.Context) error {
	timeout := 5
	if err := h.d.cli.ContainerStop(ctx, h.id, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("stopping container %s: %w", h.id, err)
	}
	if err := h.d.cli.ContainerRemove(ctx, h.id, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("removing container %s: %w", h.id, err)
	}
	return nil
}

// WriteFiles copies staged files into the sandbox working directory.
func (h *dockerHandle) WriteFiles(ctx context.Context, files []File) error {
	tarData, err := buildTar(files)
	if err != nil {
		return err
	}

	err = h.d.cli.CopyToContainer(ctx, h.id, dockerWorkdir, bytes.NewReader(tarData), container.CopyToContainerOptions{})
	if err != nil {
		return fmt.Errorf("copying files into container %s: %w", h.id, err)
	}
	return nil
}

// RunCommand runs a command through the exec API. The exec API has no
// native timeout parameter, so cancellation is enforced here: when ctx
// expires, the attach stream is torn down and ctx's error is returned.
func (h *dockerHandle) RunCommand(ctx context.Context, req CommandRequest) (CommandResult, error) {
	cwd := req.Cwd
	if cwd == "" {
		cwd = dockerWorkdir
	}

	execResp, err := h.d.cli.ContainerExecCreate(ctx, h.id, container.ExecOptions{
		Cmd:          append([]string{req.Cmd}, req.Args...),
		WorkingDir:   cwd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return CommandResult{}, fmt.Errorf("creating exec: %w", err)
	}

	attach, err := h.d.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return CommandResult{}, fmt.Errorf("attaching to exec: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, copyErr := stdcopy.StdCopy(&stdout, &stderr, attach.Reader)
		done <- copyErr
	}()

	select {
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	case err := <-done:
		if err != nil {
			return CommandResult{}, fmt.Errorf("reading exec output: %w", err)
		}
	}

	inspect, err := h.d.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return CommandResult{}, fmt.Errorf("inspecting exec: %w", err)
	}

	return CommandResult{
		ExitCode: inspect.ExitCode,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}, nil
}
