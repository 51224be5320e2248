package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jdelfino/coding-tool-sub001/provider"
	"github.com/jdelfino/coding-tool-sub001/store"
)

// liveHandle unifies the provider's two "gone" shapes, a Get that errors
// and a Get that returns a non-running status, into one usability check.
func (o *Orchestrator) liveHandle(ctx context.Context, sandboxID string) (provider.Handle, bool) {
	handle, err := o.provider.Get(ctx, sandboxID)
	if err != nil || handle.Status() != provider.StatusRunning {
		return nil, false
	}
	return handle, true
}

// resolve turns a session id into a live sandbox handle. Session lifetime
// crosses many stateless invocations, so liveness is re-derived from the
// store and the provider on every call: reconnect when the bound sandbox
// still runs, otherwise recreate under optimistic concurrency.
//
// Resolving a session that was never provisioned is an UNAVAILABLE error;
// this path does not silently provision.
func (o *Orchestrator) resolve(ctx context.Context, sessionID string) (provider.Handle, error) {
	start := time.Now()

	binding, err := o.store.Get(ctx, sessionID)
	if err != nil {
		code := CodeReconnectionFailed
		if errors.Is(err, store.ErrNotFound) {
			code = CodeUnavailable
		}
		rerr := newError(code, sessionID, err)
		o.recordEvent("sandbox_resolve", sessionID, start, rerr)
		return nil, rerr
	}

	if handle, ok := o.liveHandle(ctx, binding.SandboxID); ok {
		o.recordEvent("sandbox_resolve", sessionID, start, nil,
			zap.String("sandbox_id", binding.SandboxID),
			zap.String("path", "reconnect"))
		return handle, nil
	}

	return o.recreate(ctx, sessionID, binding.SandboxID, start)
}

// recreate replaces an expired or crashed sandbox. The binding write is a
// compare-and-swap keyed on the sandbox id read by the caller: exactly one
// concurrent recreation wins; every loser stops its own freshly-created
// sandbox and converges on the winner's. Without this, one expired session
// could leave N-1 orphaned sandboxes running until their own timeouts.
func (o *Orchestrator) recreate(ctx context.Context, sessionID, oldSandboxID string, start time.Time) (provider.Handle, error) {
	fresh, err := o.provider.Create(ctx, provider.CreateConfig{
		Runtime:     o.cfg.Sandbox.Runtime,
		IdleTimeout: o.cfg.GetSessionTimeout(),
	})
	if err != nil {
		rerr := newError(CodeReconnectionFailed, sessionID, err)
		o.recordEvent("sandbox_resolve", sessionID, start, rerr,
			zap.String("old_sandbox_id", oldSandboxID),
			zap.String("path", "recreate"))
		return nil, rerr
	}

	won, err := o.store.CompareAndSwap(ctx, sessionID, oldSandboxID, fresh.ID())
	if err != nil {
		if stopErr := fresh.Stop(ctx); stopErr != nil {
			o.logger.Warn("failed to stop unbound sandbox",
				zap.String("sandbox_id", fresh.ID()),
				zap.Error(stopErr))
		}
		rerr := newError(CodeReconnectionFailed, sessionID, err)
		o.recordEvent("sandbox_resolve", sessionID, start, rerr,
			zap.String("old_sandbox_id", oldSandboxID),
			zap.String("path", "recreate"))
		return nil, rerr
	}

	if won {
		o.recordEvent("sandbox_resolve", sessionID, start, nil,
			zap.String("old_sandbox_id", oldSandboxID),
			zap.String("sandbox_id", fresh.ID()),
			zap.String("path", "recreate"),
			zap.Bool("race", false))
		return fresh, nil
	}

	// Another caller swapped the binding first. Self-clean and adopt the
	// winner's sandbox.
	if stopErr := fresh.Stop(ctx); stopErr != nil {
		o.logger.Warn("failed to stop losing sandbox",
			zap.String("sandbox_id", fresh.ID()),
			zap.Error(stopErr))
	}

	binding, err := o.store.Get(ctx, sessionID)
	if err != nil {
		rerr := newError(CodeReconnectionFailed, sessionID, err)
		o.recordEvent("sandbox_resolve", sessionID, start, rerr,
			zap.String("old_sandbox_id", oldSandboxID),
			zap.String("path", "recreate"),
			zap.Bool("race", true))
		return nil, rerr
	}

	winner, err := o.provider.Get(ctx, binding.SandboxID)
	if err != nil {
		rerr := newError(CodeReconnectionFailed, sessionID, err)
		o.recordEvent("sandbox_resolve", sessionID, start, rerr,
			zap.String("old_sandbox_id", oldSandboxID),
			zap.String("sandbox_id", binding.SandboxID),
			zap.String("path", "recreate"),
			zap.Bool("race", true))
		return nil, rerr
	}

	o.recordEvent("sandbox_resolve", sessionID, start, nil,
		zap.String("old_sandbox_id", oldSandboxID),
		zap.String("sandbox_id", winner.ID()),
		zap.String("path", "recreate"),
		zap.Bool("race", true))
	return winner, nil
}
