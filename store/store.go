package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no binding exists for a session.
var ErrNotFound = errors.New("binding not found")

// Binding is the durable mapping from a session to its current sandbox.
// At most one binding exists per session; SandboxID doubles as the
// optimistic-concurrency token for CompareAndSwap.
type Binding struct {
	SessionID string
	SandboxID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BindingStore defines durable access to session-sandbox bindings.
type BindingStore interface {
	// Insert creates the binding for a session. It fails if one already exists.
	Insert(ctx context.Context, sessionID, sandboxID string) error

	// Get returns the binding for a session, or ErrNotFound.
	Get(ctx context.Context, sessionID string) (*Binding, error)

	// CompareAndSwap atomically replaces the sandbox id, but only if the
	// stored id still equals expected. It reports whether the write won.
	CompareAndSwap(ctx context.Context, sessionID, expected, replacement string) (bool, error)

	// Delete removes the binding. Deleting a missing row is not an error.
	Delete(ctx context.Context, sessionID string) error

	Close() error
}
