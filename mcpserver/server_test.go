package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jdelfino/coding-tool-sub001/config"
	"github.com/jdelfino/coding-tool-sub001/orchestrator"
	"github.com/jdelfino/coding-tool-sub001/provider"
	"github.com/jdelfino/coding-tool-sub001/store"
)

// stubProvider satisfies provider.Provider without a real backend; the
// handlers under test never reach it when the mode gate closes first.
type stubProvider struct{}

func (stubProvider) Create(_ context.Context, _ provider.CreateConfig) (provider.Handle, error) {
	return nil, fmt.Errorf("no backend in test")
}

func (stubProvider) Get(_ context.Context, id string) (provider.Handle, error) {
	return nil, fmt.Errorf("unknown sandbox: %s", id)
}

func testServer(t *testing.T, enabled bool) *MCPServer {
	t.Helper()

	cfg := &config.Config{
		Server:  config.ServerConfig{Transport: "stdio", HTTPPort: 8080},
		Logging: config.LoggingConfig{Mode: "production", Level: "info"},
		Sandbox: config.SandboxConfig{
			Capable:           true,
			Enabled:           enabled,
			Backend:           "docker",
			Runtime:           "python:3.11-slim",
			SessionTimeoutSec: 1800,
			ExecTimeoutSec:    10,
			MaxTraceSteps:     500,
		},
		Store: config.StoreConfig{Path: ":memory:"},
	}

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := zaptest.NewLogger(t)
	orch := orchestrator.New(logger, cfg, st, stubProvider{})

	s, err := New(cfg, logger, orch, orchestrator.NewMode(cfg))
	require.NoError(t, err)
	return s
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestNewMCPServer(t *testing.T) {
	s := testServer(t, true)

	assert.NotNil(t, s.config)
	assert.NotNil(t, s.logger)
	assert.NotNil(t, s.orch)
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.GetMCPServer())
}

func TestHandlersRequireSessionID(t *testing.T) {
	s := testServer(t, true)
	ctx := context.Background()

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"provision_session": s.handleProvisionSession,
		"run_code":          s.handleRunCode,
		"trace_code":        s.handleTraceCode,
		"cleanup_session":   s.handleCleanupSession,
	}

	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			_, err := handler(ctx, toolRequest(map[string]any{}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "session_id parameter is required")
		})
	}
}

func TestHandlersGateOnMode(t *testing.T) {
	s := testServer(t, false)
	ctx := context.Background()

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]any
	}{
		{"provision_session", s.handleProvisionSession, map[string]any{"session_id": "s1"}},
		{"run_code", s.handleRunCode, map[string]any{"session_id": "s1", "code": "print(1)"}},
		{"trace_code", s.handleTraceCode, map[string]any{"session_id": "s1", "code": "print(1)"}},
		{"cleanup_session", s.handleCleanupSession, map[string]any{"session_id": "s1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(ctx, toolRequest(tt.args))
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.True(t, result.IsError)

			text, ok := result.Content[0].(mcp.TextContent)
			require.True(t, ok)
			assert.Equal(t, unavailableMessage, text.Text)
		})
	}
}

func TestProvisionFailureIsSessionLevelMessage(t *testing.T) {
	s := testServer(t, true)

	// stubProvider always fails Create, so provisioning cannot succeed.
	result, err := s.handleProvisionSession(context.Background(), toolRequest(map[string]any{"session_id": "s1"}))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "session is temporarily unavailable, please try again", text.Text)
	assert.NotContains(t, text.Text, "no backend in test")
}

func TestRunCodeReturnsStructuredResult(t *testing.T) {
	s := testServer(t, true)

	// No sandbox exists for this session; Execute normalizes that into a
	// failed result rather than a protocol error.
	result, err := s.handleRunCode(context.Background(), toolRequest(map[string]any{
		"session_id": "s1",
		"code":       "print(1)",
	}))
	require.NoError(t, err)
	require.NotNil(t, result)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var execResult orchestrator.ExecutionResult
	require.NoError(t, json.Unmarshal([]byte(text.Text), &execResult))
	assert.False(t, execResult.Success)
	assert.Contains(t, execResult.Error, "could not attach to a sandbox")
}

func TestTraceCodeReturnsStructuredTrace(t *testing.T) {
	s := testServer(t, true)

	result, err := s.handleTraceCode(context.Background(), toolRequest(map[string]any{
		"session_id": "s1",
		"code":       "print(1)",
	}))
	require.NoError(t, err)
	require.NotNil(t, result)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var trace orchestrator.Trace
	require.NoError(t, json.Unmarshal([]byte(text.Text), &trace))
	assert.Equal(t, 1, trace.ExitCode)
	assert.Empty(t, trace.Steps)
}

func TestCleanupSessionAlwaysSucceeds(t *testing.T) {
	s := testServer(t, true)

	result, err := s.handleCleanupSession(context.Background(), toolRequest(map[string]any{"session_id": "never-provisioned"}))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.JSONEq(t, `{"cleaned":true}`, text.Text)
}

func TestAsInt64(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int64
		ok   bool
	}{
		{"Float64", float64(42), 42, true},
		{"Int", 7, 7, true},
		{"Int64", int64(9), 9, true},
		{"JSONNumber", json.Number("123"), 123, true},
		{"BadJSONNumber", json.Number("1.5"), 0, false},
		{"String", "42", 0, false},
		{"Nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := asInt64(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
