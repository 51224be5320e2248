package orchestrator

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jdelfino/coding-tool-sub001/provider"
)

// tracerScript is the instrumented runner staged into the sandbox. Its
// contract: given the source, stdin text, and a step cap as command-line
// arguments, it prints exactly one JSON document describing the run.
//
//go:embed tracer.py
var tracerScript []byte

// Trace runs the submission under the instrumented runner and parses its
// step-by-step output. Like Execute it never returns an error: a timeout,
// a lost sandbox, or unparseable tracer output all come back as a
// zero-step trace with exit code 1 and a human-readable message.
func (o *Orchestrator) Trace(ctx context.Context, sessionID, code string, opts TraceOptions) Trace {
	start := time.Now()

	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = o.cfg.Sandbox.MaxTraceSteps
	}

	handle, err := o.resolve(ctx, sessionID)
	if err != nil {
		tr := traceFailure(fmt.Sprintf("could not attach to a sandbox for this session: %v", err))
		o.recordEvent("code_trace", sessionID, start, err,
			zap.Int("code_len", len(code)))
		return tr
	}

	staged := []provider.File{{Path: tracerFileName, Content: tracerScript}}
	if stageErr := handle.WriteFiles(ctx, staged); stageErr != nil {
		tr := traceFailure(fmt.Sprintf("failed to stage tracer: %v", stageErr))
		o.recordEvent("code_trace", sessionID, start, stageErr,
			zap.Int("code_len", len(code)),
			zap.String("sandbox_id", handle.ID()))
		return tr
	}

	execCtx, cancel := context.WithTimeout(ctx, o.cfg.GetExecTimeout())
	defer cancel()

	// Source and stdin travel as arguments, not staged files.
	req := provider.CommandRequest{
		Cmd:  "python3",
		Args: []string{tracerFileName, "--max-steps", strconv.Itoa(maxSteps), "--stdin", opts.Stdin, code},
		Cwd:  handle.Workdir(),
	}

	cmdRes, runErr := handle.RunCommand(execCtx, req)
	if runErr != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			terr := newError(CodeTimeout, sessionID, runErr)
			tr := traceFailure(fmt.Sprintf("trace timed out after %s", o.cfg.GetExecTimeout()))
			o.recordEvent("code_trace", sessionID, start, terr,
				zap.Int("code_len", len(code)),
				zap.String("sandbox_id", handle.ID()))
			return tr
		}
		eerr := newError(CodeExecutionFailed, sessionID, runErr)
		tr := traceFailure(fmt.Sprintf("trace failed: %v", runErr))
		o.recordEvent("code_trace", sessionID, start, eerr,
			zap.Int("code_len", len(code)),
			zap.String("sandbox_id", handle.ID()))
		return tr
	}

	var tr Trace
	if jsonErr := json.Unmarshal(cmdRes.Stdout, &tr); jsonErr != nil {
		msg := strings.TrimSpace(string(cmdRes.Stderr))
		if msg == "" {
			msg = "tracer produced no parseable output"
		}
		tr = traceFailure(msg)
		o.recordEvent("code_trace", sessionID, start, jsonErr,
			zap.Int("code_len", len(code)),
			zap.String("sandbox_id", handle.ID()))
		return tr
	}
	if tr.Steps == nil {
		tr.Steps = []TraceStep{}
	}

	o.recordEvent("code_trace", sessionID, start, nil,
		zap.Int("code_len", len(code)),
		zap.String("sandbox_id", handle.ID()),
		zap.Int("total_steps", tr.TotalSteps),
		zap.Int("exit_code", tr.ExitCode),
		zap.Bool("truncated", tr.Truncated))
	return tr
}

func traceFailure(msg string) Trace {
	return Trace{Steps: []TraceStep{}, ExitCode: 1, Error: msg}
}
