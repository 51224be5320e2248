package provider

import (
	"context"
	"time"
)

// Status is a sandbox's lifecycle state as reported by the backend.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusUnknown Status = "unknown"
)

// File is a single file to stage into a sandbox's working directory.
// Path is relative to the working directory.
type File struct {
	Path    string
	Content []byte
}

// CommandRequest describes a command to run inside a sandbox.
type CommandRequest struct {
	Cmd  string
	Args []string
	Cwd  string
}

// CommandResult is the outcome of a completed command. A non-zero exit
// code is not an error; errors are reserved for transport-level failures
// and context cancellation.
type CommandResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// CreateConfig configures a new sandbox instance.
//
// IdleTimeout bounds the sandbox's own lifetime (a full session, tens of
// minutes); per-command timeouts are enforced by callers through the
// context passed to RunCommand.
type CreateConfig struct {
	Runtime     string
	IdleTimeout time.Duration
}

// Handle is a reference to one sandbox instance. Status reflects what the
// backend reported when the handle was created or fetched; the backend
// remains authoritative.
type Handle interface {
	ID() string
	Status() Status
	Workdir() string
	Stop(ctx context.Context) error
	WriteFiles(ctx context.Context, files []File) error
	RunCommand(ctx context.Context, req CommandRequest) (CommandResult, error)
}

// Provider creates and fetches sandbox instances. Get may return an error
// for a sandbox the backend no longer knows about; callers should treat
// that the same as a non-running status.
type Provider interface {
	Create(ctx context.Context, cfg CreateConfig) (Handle, error)
	Get(ctx context.Context, id string) (Handle, error)
}
