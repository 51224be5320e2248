// Package provider abstracts the remote sandbox backend.
//
// The provider package defines the narrow boundary the orchestrator
// consumes: create a sandbox, fetch one by id, stop it, stage files into
// its working directory, and run commands under caller-supplied
// cancellation. Two backends are provided: Docker (production, one
// container per sandbox with a self-expiring lifetime) and Local
// (development only, host processes in temp directories).
//
// Usage:
//
//	p, err := provider.New(logger, cfg)
//	handle, err := p.Create(ctx, provider.CreateConfig{
//	    Runtime:     "python:3.11-slim",
//	    IdleTimeout: 30 * time.Minute,
//	})
package provider
