package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdelfino/coding-tool-sub001/provider"
)

// provisionForTest sets up a session with a live sandbox and returns it.
func provisionForTest(t *testing.T, o *Orchestrator, p *fakeProvider, sessionID string) *fakeSandbox {
	t.Helper()
	sandboxID, err := o.Provision(context.Background(), sessionID)
	require.NoError(t, err)
	sb := p.get(sandboxID)
	require.NotNil(t, sb)
	return sb
}

func TestExecuteSuccessRule(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		exitCode int
		stderr   string
		success  bool
	}{
		{"ZeroExitEmptyStderr", 0, "", true},
		{"NonZeroExitEmptyStderr", 1, "", false},
		{"ZeroExitWithStderr", 0, "warning text", false},
		{"NonZeroExitWithStderr", 2, "Traceback", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider()
			p.runFunc = func(_ context.Context, _ provider.CommandRequest) (provider.CommandResult, error) {
				return provider.CommandResult{
					ExitCode: tt.exitCode,
					Stdout:   []byte("out"),
					Stderr:   []byte(tt.stderr),
				}, nil
			}
			st := newTestStore(t)
			o := newTestOrchestrator(t, testConfig(), st, p)
			provisionForTest(t, o, p, "session-1")

			result := o.Execute(ctx, "session-1", Submission{Code: "print('x')"})
			assert.Equal(t, tt.success, result.Success)
			assert.Equal(t, "out", result.Output)
			assert.Equal(t, tt.stderr, result.Error)
		})
	}
}

func TestExecuteStagesFiles(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	st := newTestStore(t)
	o := newTestOrchestrator(t, testConfig(), st, p)
	sb := provisionForTest(t, o, p, "session-1")

	seed := int64(42)
	result := o.Execute(ctx, "session-1", Submission{
		Code: "print(random.random())",
		Settings: &ExecutionSettings{
			Stdin:      "Alice\n25\n",
			RandomSeed: &seed,
			AttachedFiles: []AttachedFile{
				{Name: "data.csv", Content: "a,b\n1,2\n"},
				{Name: "../../etc/passwd", Content: "nope"},
			},
		},
	})
	assert.True(t, result.Success)
	assert.Equal(t, "Alice\n25\n", result.Stdin)

	// Seed initialization is prepended to the source, not passed as an
	// argument, so the command invocation stays uniform.
	entry := string(sb.files[entryFileName])
	assert.True(t, strings.HasPrefix(entry, "import random\nrandom.seed(42)\n"))
	assert.Contains(t, entry, "print(random.random())")

	assert.Equal(t, []byte("Alice\n25\n"), sb.files[stdinFileName])
	assert.Equal(t, []byte("a,b\n1,2\n"), sb.files["data.csv"])

	// Traversal attempts land inside the workdir under a safe name.
	assert.Equal(t, []byte("nope"), sb.files["passwd"])
	_, escaped := sb.files["../../etc/passwd"]
	assert.False(t, escaped)

	// Stdin is redirected from the staged input file.
	assert.Equal(t, "sh", sb.lastCmd.Cmd)
	require.Len(t, sb.lastCmd.Args, 2)
	assert.Contains(t, sb.lastCmd.Args[1], "python3 main.py < stdin.txt")
}

func TestExecuteWithoutStdinRunsDirectly(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	st := newTestStore(t)
	o := newTestOrchestrator(t, testConfig(), st, p)
	sb := provisionForTest(t, o, p, "session-1")

	o.Execute(ctx, "session-1", Submission{Code: "print(1)"})

	assert.Equal(t, "python3", sb.lastCmd.Cmd)
	assert.Equal(t, []string{entryFileName}, sb.lastCmd.Args)
	_, staged := sb.files[stdinFileName]
	assert.False(t, staged)
}

func TestExecuteTimeout(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Sandbox.ExecTimeoutSec = 1

	p := newFakeProvider()
	p.runFunc = func(runCtx context.Context, _ provider.CommandRequest) (provider.CommandResult, error) {
		<-runCtx.Done()
		return provider.CommandResult{}, runCtx.Err()
	}
	st := newTestStore(t)
	o := newTestOrchestrator(t, cfg, st, p)
	provisionForTest(t, o, p, "session-1")

	start := time.Now()
	result := o.Execute(ctx, "session-1", Submission{Code: "while True: pass"})
	elapsed := time.Since(start)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timed out")
	// Bounded by the configured timeout, within a margin.
	assert.Less(t, elapsed, 3*time.Second)
}

func TestExecuteResolutionFailure(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	st := newTestStore(t)
	o := newTestOrchestrator(t, testConfig(), st, p)

	// No provisioning happened for this session.
	result := o.Execute(ctx, "session-ghost", Submission{Code: "print(1)"})

	assert.False(t, result.Success)
	assert.Empty(t, result.Output)
	// Resolution failures read differently from execution failures.
	assert.Contains(t, result.Error, "could not attach to a sandbox")
}

func TestExecuteCommandTransportFailure(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	p.runFunc = func(_ context.Context, _ provider.CommandRequest) (provider.CommandResult, error) {
		return provider.CommandResult{}, errors.New("connection reset")
	}
	st := newTestStore(t)
	o := newTestOrchestrator(t, testConfig(), st, p)
	provisionForTest(t, o, p, "session-1")

	result := o.Execute(ctx, "session-1", Submission{Code: "print(1)"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "execution failed")
	assert.NotContains(t, result.Error, "could not attach")
}

func TestExecuteRecreatesExpiredSandbox(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	p.runFunc = func(_ context.Context, _ provider.CommandRequest) (provider.CommandResult, error) {
		return provider.CommandResult{ExitCode: 0, Stdout: []byte("1\n")}, nil
	}
	st := newTestStore(t)
	o := newTestOrchestrator(t, testConfig(), st, p)
	sb := provisionForTest(t, o, p, "session-1")

	// Simulate provider-side expiry between requests.
	sb.mu.Lock()
	sb.status = provider.StatusStopped
	sb.mu.Unlock()

	result := o.Execute(ctx, "session-1", Submission{Code: "print(1)"})
	assert.True(t, result.Success)
	assert.Equal(t, "1\n", result.Output)

	binding, err := st.Get(ctx, "session-1")
	require.NoError(t, err)
	assert.NotEqual(t, sb.id, binding.SandboxID)
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain", "data.csv", "data.csv"},
		{"Subdirectory", "dir/data.csv", "data.csv"},
		{"ParentTraversal", "../../etc/passwd", "passwd"},
		{"Backslashes", `..\..\windows\system32`, "system32"},
		{"LeadingDot", ".bashrc", "bashrc"},
		{"OnlyDots", "...", fallbackAttachmentName},
		{"Empty", "", fallbackAttachmentName},
		{"Slash", "/", fallbackAttachmentName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeFileName(tt.input))
		})
	}
}
