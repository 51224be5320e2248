package provider

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Local implements Provider using host processes and temp directories
// (WARNING: this provides no isolation and should only be used for
// development). Sandboxes expire by deadline rather than by a supervising
// process, matching the remote backend's observable behavior.
type Local struct {
	logger *zap.Logger

	mu        sync.Mutex
	sandboxes map[string]*localState
}

type localState struct {
	dir      string
	deadline time.Time
	stopped  bool
}

var _ Provider = (*Local)(nil)

// NewLocal creates a new local development provider.
func NewLocal(logger *zap.Logger) *Local {
	return &Local{
		logger:    logger,
		sandboxes: make(map[string]*localState),
	}
}

func (l *Local) Create(_ context.Context, cfg CreateConfig) (Handle, error) {
	dir, err := os.MkdirTemp("", "sandbox-*")
	if err != nil {
		return nil, fmt.Errorf("creating sandbox dir: %w", err)
	}

	id := uuid.NewString()

	l.mu.Lock()
	l.sandboxes[id] = &localState{dir: dir, deadline: time.Now().Add(cfg.IdleTimeout)}
	l.mu.Unlock()

	l.logger.Info("local sandbox created", zap.String("sandbox_id", id), zap.String("dir", dir))
	return &localHandle{l: l, id: id, dir: dir, status: StatusRunning}, nil
}

func (l *Local) Get(_ context.Context, id string) (Handle, error) {
	l.mu.Lock()
	state, ok := l.sandboxes[id]
	l.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown sandbox: %s", id)
	}

	status := StatusRunning
	if state.stopped || time.Now().After(state.deadline) {
		status = StatusStopped
	}
	return &localHandle{l: l, id: id, dir: state.dir, status: status}, nil
}

type localHandle struct {
	l      *Local
	id     string
	dir    string
	status Status
}

func (h *localHandle) ID() string      { return h.id }
func (h *localHandle) Status() Status  { return h.status }
func (h *localHandle) Workdir() string { return h.dir }

func (h *localHandle) Stop(_ context.Context) error {
	h.l.mu.Lock()
	if state, ok := h.l.sandboxes[h.id]; ok {
		state.stopped = true
	}
	h.l.mu.Unlock()

	if err := os.RemoveAll(h.dir); err != nil {
		h.l.logger.Warn("failed to remove sandbox dir", zap.String("dir", h.dir), zap.Error(err))
	}
	return nil
}

func (h *localHandle) WriteFiles(_ context.Context, files []File) error {
	for _, f := range files {
		clean := filepath.Clean(f.Path)
		if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return fmt.Errorf("unsafe file path: %s", f.Path)
		}

		dest := filepath.Join(h.dir, clean)
		if err := os.MkdirAll(filepath.Dir(dest), DirPermission); err != nil {
			return fmt.Errorf("creating parent directories: %w", err)
		}
		if err := os.WriteFile(dest, f.Content, FilePermission); err != nil {
			return fmt.Errorf("writing file %s: %w", clean, err)
		}
	}
	return nil
}

func (h *localHandle) RunCommand(ctx context.Context, req CommandRequest) (CommandResult, error) {
	cwd := req.Cwd
	if cwd == "" {
		cwd = h.dir
	}

	cmd := exec.CommandContext(ctx, req.Cmd, req.Args...) //nolint:gosec // Development backend executes caller-supplied commands
	cmd.Dir = cwd

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()

	if ctx.Err() != nil {
		return CommandResult{}, ctx.Err()
	}

	exitCode := 0
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			exitCode = exitError.ExitCode()
		} else {
			return CommandResult{}, fmt.Errorf("running command: %w", err)
		}
	}

	return CommandResult{
		ExitCode: exitCode,
		Stdout:   stdoutBuf.Bytes(),
		Stderr:   stderrBuf.Bytes(),
	}, nil
}
