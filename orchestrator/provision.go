package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jdelfino/coding-tool-sub001/provider"
)

// Provision creates a new sandbox for a session and persists the binding.
// From the caller's point of view either both the sandbox and its binding
// exist afterwards, or neither does: if the binding write fails, the
// just-created sandbox is stopped before the error is returned.
func (o *Orchestrator) Provision(ctx context.Context, sessionID string) (string, error) {
	start := time.Now()

	handle, err := o.provider.Create(ctx, provider.CreateConfig{
		Runtime:     o.cfg.Sandbox.Runtime,
		IdleTimeout: o.cfg.GetSessionTimeout(),
	})
	if err != nil {
		perr := newError(CodeCreationFailed, sessionID, err)
		o.recordEvent("sandbox_provision", sessionID, start, perr)
		return "", perr
	}

	if insertErr := o.store.Insert(ctx, sessionID, handle.ID()); insertErr != nil {
		// Don't leak a sandbox with no binding pointing at it.
		if stopErr := handle.Stop(ctx); stopErr != nil {
			o.logger.Warn("failed to stop unbound sandbox",
				zap.String("sandbox_id", handle.ID()),
				zap.Error(stopErr))
		}
		perr := newError(CodeCreationFailed, sessionID, insertErr)
		o.recordEvent("sandbox_provision", sessionID, start, perr,
			zap.String("sandbox_id", handle.ID()))
		return "", perr
	}

	o.recordEvent("sandbox_provision", sessionID, start, nil,
		zap.String("sandbox_id", handle.ID()))
	return handle.ID(), nil
}
