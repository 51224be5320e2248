// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package exposes the sandbox orchestrator over MCP using
// the mark3labs/mcp-go library: provision_session, run_code, trace_code,
// and cleanup_session map one-to-one onto the orchestrator's operations.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/jdelfino/coding-tool-sub001/config"
	"github.com/jdelfino/coding-tool-sub001/orchestrator"
)

const unavailableMessage = "remote sandboxing is currently unavailable"

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	orch      *orchestrator.Orchestrator
	mode      orchestrator.Mode
	mcpServer *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, orch *orchestrator.Orchestrator, mode orchestrator.Mode) (*MCPServer, error) {
	s := &MCPServer{
		config: cfg,
		logger: logger,
		orch:   orch,
		mode:   mode,
	}

	// Log configuration parameters on startup
	logger.Info("configuration loaded",
		zap.String("server.transport", s.config.Server.Transport),
		zap.Int("server.http_port", s.config.Server.HTTPPort),
		zap.Bool("sandbox.capable", s.config.Sandbox.Capable),
		zap.Bool("sandbox.enabled", s.config.Sandbox.Enabled),
		zap.String("sandbox.backend", s.config.Sandbox.Backend),
		zap.String("sandbox.runtime", s.config.Sandbox.Runtime),
		zap.Int("sandbox.session_timeout_sec", s.config.Sandbox.SessionTimeoutSec),
		zap.Int("sandbox.exec_timeout_sec", s.config.Sandbox.ExecTimeoutSec),
		zap.Int("sandbox.max_trace_steps", s.config.Sandbox.MaxTraceSteps),
		zap.String("store.path", s.config.Store.Path),
	)

	s.mcpServer = server.NewMCPServer("coding-tool-sandbox", "Session sandbox lifecycle and execution server")

	s.registerTools()

	return s, nil
}

func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "provision_session",
		Description: "Create a sandbox for a session and persist the binding",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": map[string]any{
					"type":        "string",
					"description": "Session identifier",
				},
			},
			Required: []string{"session_id"},
		},
	}, s.handleProvisionSession)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "run_code",
		Description: "Execute user code in the session's sandbox",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": map[string]any{
					"type":        "string",
					"description": "Session identifier",
				},
				"code": map[string]any{
					"type":        "string",
					"description": "User-provided source code",
				},
				"stdin": map[string]any{
					"type":        "string",
					"description": "Text to supply on standard input (optional)",
				},
				"random_seed": map[string]any{
					"type":        "integer",
					"description": "Deterministic random seed (optional)",
				},
				"attached_files": map[string]any{
					"type":        "array",
					"description": "Extra files to stage alongside the code (optional)",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":    map[string]any{"type": "string"},
							"content": map[string]any{"type": "string"},
						},
					},
				},
			},
			Required: []string{"session_id", "code"},
		},
	}, s.handleRunCode)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "trace_code",
		Description: "Run user code under the instrumented tracer and return a step-by-step trace",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": map[string]any{
					"type":        "string",
					"description": "Session identifier",
				},
				"code": map[string]any{
					"type":        "string",
					"description": "User-provided source code",
				},
				"stdin": map[string]any{
					"type":        "string",
					"description": "Text to supply on standard input (optional)",
				},
				"max_steps": map[string]any{
					"type":        "integer",
					"description": "Step cap for the trace (optional, defaults from config)",
				},
			},
			Required: []string{"session_id", "code"},
		},
	}, s.handleTraceCode)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "cleanup_session",
		Description: "Stop the session's sandbox and remove its binding",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": map[string]any{
					"type":        "string",
					"description": "Session identifier",
				},
			},
			Required: []string{"session_id"},
		},
	}, s.handleCleanupSession)
}

func (s *MCPServer) handleProvisionSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return nil, fmt.Errorf("session_id parameter is required: %w", err)
	}

	if !s.mode.Enabled() {
		return errorResult(unavailableMessage), nil
	}

	sandboxID, err := s.orch.Provision(ctx, sessionID)
	if err != nil {
		// Setup failures surface as a session-level message, never a raw error.
		return errorResult("session is temporarily unavailable, please try again"), nil
	}

	return textResult(fmt.Sprintf(`{"sandboxId":%q}`, sandboxID)), nil
}

func (s *MCPServer) handleRunCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return nil, fmt.Errorf("session_id parameter is required: %w", err)
	}
	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}

	if !s.mode.Enabled() {
		return errorResult(unavailableMessage), nil
	}

	settings := &orchestrator.ExecutionSettings{
		Stdin: request.GetString("stdin", ""),
	}
	args := request.GetArguments()
	if raw, ok := args["random_seed"]; ok {
		if seed, ok := asInt64(raw); ok {
			settings.RandomSeed = &seed
		}
	}
	if raw, ok := args["attached_files"].([]any); ok {
		for _, entry := range raw {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			name, _ := m["name"].(string)
			content, _ := m["content"].(string)
			settings.AttachedFiles = append(settings.AttachedFiles, orchestrator.AttachedFile{
				Name:    name,
				Content: content,
			})
		}
	}

	result := s.orch.Execute(ctx, sessionID, orchestrator.Submission{Code: code, Settings: settings})

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding execution result: %w", err)
	}
	return textResult(string(payload)), nil
}

func (s *MCPServer) handleTraceCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return nil, fmt.Errorf("session_id parameter is required: %w", err)
	}
	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}

	if !s.mode.Enabled() {
		return errorResult(unavailableMessage), nil
	}

	opts := orchestrator.TraceOptions{
		Stdin: request.GetString("stdin", ""),
	}
	if raw, ok := request.GetArguments()["max_steps"]; ok {
		if steps, ok := asInt64(raw); ok {
			opts.MaxSteps = int(steps)
		}
	}

	trace := s.orch.Trace(ctx, sessionID, code, opts)

	payload, err := json.Marshal(trace)
	if err != nil {
		return nil, fmt.Errorf("encoding trace: %w", err)
	}
	return textResult(string(payload)), nil
}

func (s *MCPServer) handleCleanupSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return nil, fmt.Errorf("session_id parameter is required: %w", err)
	}

	if !s.mode.Enabled() {
		return errorResult(unavailableMessage), nil
	}

	s.orch.Cleanup(ctx, sessionID)
	return textResult(`{"cleaned":true}`), nil
}

// asInt64 normalizes JSON number representations from tool arguments.
func asInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
		IsError: true,
	}
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
