// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package exposes the sandbox lifecycle orchestrator as MCP
// tools using the mark3labs/mcp-go library: provision_session, run_code,
// trace_code, and cleanup_session. Every tool is gated on the sandboxing
// mode and returns an explicit unavailable result when the feature is off.
//
// The server supports both stdio and HTTP transports as configured by the
// application configuration.
//
// Usage:
//
//	server, err := mcpserver.New(config, logger, orchestrator, mode)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio() // or server.ServeHTTP()
package mcpserver
