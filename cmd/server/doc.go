// Package main is the entry point for the sandbox orchestrator MCP server.
//
// See main.go for the application wiring.
package main
