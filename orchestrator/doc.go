// Package orchestrator manages per-session sandbox lifecycles.
//
// The orchestrator provisions an ephemeral sandbox when a session starts,
// persists the session-sandbox binding so stateless request handlers can
// find it again, transparently recreates the sandbox when it has expired
// or crashed (resolving concurrent recreation races with a
// compare-and-swap on the binding), runs plain executions and
// instrumented traces under a hard per-command timeout, and tears
// everything down when the session ends.
//
// Provision and the internal resolver return typed errors the caller must
// react to; Execute and Trace never do: bad code, slow code, and lost
// sandboxes are all normalized into their result shapes.
//
// Usage:
//
//	orch := orchestrator.New(logger, cfg, store, provider)
//	sandboxID, err := orch.Provision(ctx, sessionID)
//	result := orch.Execute(ctx, sessionID, orchestrator.Submission{Code: "print(2+2)"})
//	orch.Cleanup(ctx, sessionID)
package orchestrator
