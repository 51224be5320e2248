package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jdelfino/coding-tool-sub001/config"
	"github.com/jdelfino/coding-tool-sub001/provider"
	"github.com/jdelfino/coding-tool-sub001/store"
)

// fakeProvider implements provider.Provider for testing. It is safe for
// concurrent use so resolver race tests can hammer it.
type fakeProvider struct {
	mu        sync.Mutex
	sandboxes map[string]*fakeSandbox
	seq       int
	createErr error
	runFunc   func(ctx context.Context, req provider.CommandRequest) (provider.CommandResult, error)

	// onCreate, if set, runs after each Create returns a new sandbox.
	// Used to interleave a concurrent "other caller" into the recreation
	// window.
	onCreate func()

	getCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sandboxes: make(map[string]*fakeSandbox)}
}

// add injects a sandbox with a fixed id, bypassing Create.
func (p *fakeProvider) add(id string, status provider.Status) *fakeSandbox {
	p.mu.Lock()
	defer p.mu.Unlock()
	sb := &fakeSandbox{id: id, status: status, files: make(map[string][]byte), run: p.runFunc}
	p.sandboxes[id] = sb
	return sb
}

func (p *fakeProvider) get(id string) *fakeSandbox {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sandboxes[id]
}

func (p *fakeProvider) Create(_ context.Context, _ provider.CreateConfig) (provider.Handle, error) {
	p.mu.Lock()
	if p.createErr != nil {
		p.mu.Unlock()
		return nil, p.createErr
	}
	p.seq++
	id := fmt.Sprintf("sbx-%d", p.seq)
	sb := &fakeSandbox{id: id, status: provider.StatusRunning, files: make(map[string][]byte), run: p.runFunc}
	p.sandboxes[id] = sb
	hook := p.onCreate
	p.mu.Unlock()

	if hook != nil {
		hook()
	}
	return &fakeHandle{sb: sb, observed: provider.StatusRunning}, nil
}

func (p *fakeProvider) Get(_ context.Context, id string) (provider.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.getCalls++
	sb, ok := p.sandboxes[id]
	if !ok {
		return nil, fmt.Errorf("unknown sandbox: %s", id)
	}
	return &fakeHandle{sb: sb, observed: sb.status}, nil
}

type fakeSandbox struct {
	mu      sync.Mutex
	id      string
	status  provider.Status
	files   map[string][]byte
	run     func(ctx context.Context, req provider.CommandRequest) (provider.CommandResult, error)
	stopped bool
	lastCmd provider.CommandRequest
}

// fakeHandle snapshots the status observed at Get/Create time, matching
// the real provider contract.
type fakeHandle struct {
	sb       *fakeSandbox
	observed provider.Status
}

func (h *fakeHandle) ID() string              { return h.sb.id }
func (h *fakeHandle) Status() provider.Status { return h.observed }
func (h *fakeHandle) Workdir() string         { return "/workdir" }

func (h *fakeHandle) Stop(_ context.Context) error {
	h.sb.mu.Lock()
	defer h.sb.mu.Unlock()
	h.sb.stopped = true
	h.sb.status = provider.StatusStopped
	return nil
}

func (h *fakeHandle) WriteFiles(_ context.Context, files []provider.File) error {
	h.sb.mu.Lock()
	defer h.sb.mu.Unlock()
	for _, f := range files {
		h.sb.files[f.Path] = f.Content
	}
	return nil
}

func (h *fakeHandle) RunCommand(ctx context.Context, req provider.CommandRequest) (provider.CommandResult, error) {
	h.sb.mu.Lock()
	h.sb.lastCmd = req
	run := h.sb.run
	h.sb.mu.Unlock()

	if run != nil {
		return run(ctx, req)
	}
	return provider.CommandResult{ExitCode: 0}, nil
}

// failingStore wraps a real store and fails selected operations.
type failingStore struct {
	store.BindingStore
	insertErr error
}

func (s *failingStore) Insert(ctx context.Context, sessionID, sandboxID string) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.BindingStore.Insert(ctx, sessionID, sandboxID)
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Transport: "stdio", HTTPPort: 8080},
		Logging: config.LoggingConfig{Mode: "development", Level: "debug"},
		Sandbox: config.SandboxConfig{
			Capable:            true,
			Enabled:            true,
			Backend:            "local",
			Runtime:            "python:3.11-slim",
			SessionTimeoutSec:  1800,
			ExecTimeoutSec:     5,
			MaxTraceSteps:      500,
			EnableLocalBackend: true,
		},
		Store: config.StoreConfig{Path: ":memory:"},
	}
}

func newTestStore(t *testing.T) store.BindingStore {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, st store.BindingStore, p provider.Provider) *Orchestrator {
	t.Helper()
	return New(zaptest.NewLogger(t), cfg, st, p)
}
