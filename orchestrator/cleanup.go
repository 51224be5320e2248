package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jdelfino/coding-tool-sub001/provider"
	"github.com/jdelfino/coding-tool-sub001/store"
)

// Cleanup tears down a session's sandbox and removes its binding. It is
// best-effort and never fails: an unstoppable sandbox will self-expire via
// its own timeout, and deleting an already-missing binding is a no-op.
func (o *Orchestrator) Cleanup(ctx context.Context, sessionID string) {
	start := time.Now()

	binding, err := o.store.Get(ctx, sessionID)
	if err != nil && errors.Is(err, store.ErrNotFound) {
		// Already clean: nothing to stop, nothing to delete.
		o.recordEvent("sandbox_cleanup", sessionID, start, nil,
			zap.Bool("had_binding", false))
		return
	}

	var fields []zap.Field
	if err != nil {
		// Fall through: the delete below is idempotent either way.
		fields = append(fields, zap.NamedError("lookup_warning", err))
		binding = nil
	}
	if binding != nil {
		fields = append(fields, zap.String("sandbox_id", binding.SandboxID))

		handle, getErr := o.provider.Get(ctx, binding.SandboxID)
		switch {
		case getErr != nil:
			fields = append(fields, zap.NamedError("stop_warning", getErr))
		case handle.Status() == provider.StatusRunning:
			if stopErr := handle.Stop(ctx); stopErr != nil {
				fields = append(fields, zap.NamedError("stop_warning", stopErr))
			}
		}
	}

	delErr := o.store.Delete(ctx, sessionID)
	fields = append(fields, zap.Bool("had_binding", binding != nil))
	// delErr is recorded for diagnostics only; callers never see it.
	o.recordEvent("sandbox_cleanup", sessionID, start, delErr, fields...)
}
