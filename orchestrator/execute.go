package orchestrator

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jdelfino/coding-tool-sub001/provider"
)

// Execute stages a submission into the session's sandbox and runs it under
// the per-execution timeout. It never returns an error: timeouts, lost
// sandboxes, and failing user code are all expected outcomes and are
// normalized into the result shape.
func (o *Orchestrator) Execute(ctx context.Context, sessionID string, sub Submission) ExecutionResult {
	start := time.Now()
	stdin := ""
	if sub.Settings != nil {
		stdin = sub.Settings.Stdin
	}

	handle, err := o.resolve(ctx, sessionID)
	if err != nil {
		// Distinguish "couldn't even get a sandbox" from "sandbox ran but
		// code failed" in the user-visible message.
		res := ExecutionResult{
			Error:           fmt.Sprintf("could not attach to a sandbox for this session: %v", err),
			ExecutionTimeMS: time.Since(start).Milliseconds(),
			Stdin:           stdin,
		}
		o.recordEvent("code_execute", sessionID, start, err,
			zap.Int("code_len", len(sub.Code)))
		return res
	}

	if stageErr := handle.WriteFiles(ctx, buildFileSet(sub)); stageErr != nil {
		res := ExecutionResult{
			Error:           fmt.Sprintf("failed to stage submission: %v", stageErr),
			ExecutionTimeMS: time.Since(start).Milliseconds(),
			Stdin:           stdin,
		}
		o.recordEvent("code_execute", sessionID, start, stageErr,
			zap.Int("code_len", len(sub.Code)),
			zap.String("sandbox_id", handle.ID()))
		return res
	}

	// This bound covers one user command; the sandbox's own multi-minute
	// idle timeout is a separate concern.
	execCtx, cancel := context.WithTimeout(ctx, o.cfg.GetExecTimeout())
	defer cancel()

	req := provider.CommandRequest{Cwd: handle.Workdir()}
	if stdin != "" {
		req.Cmd = "sh"
		req.Args = []string{"-c", fmt.Sprintf("python3 %s < %s", entryFileName, stdinFileName)}
	} else {
		req.Cmd = "python3"
		req.Args = []string{entryFileName}
	}

	cmdRes, runErr := handle.RunCommand(execCtx, req)
	elapsed := time.Since(start)

	if runErr != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			terr := newError(CodeTimeout, sessionID, runErr)
			res := ExecutionResult{
				Error:           fmt.Sprintf("execution timed out after %s", o.cfg.GetExecTimeout()),
				ExecutionTimeMS: elapsed.Milliseconds(),
				Stdin:           stdin,
			}
			o.recordEvent("code_execute", sessionID, start, terr,
				zap.Int("code_len", len(sub.Code)),
				zap.String("sandbox_id", handle.ID()))
			return res
		}
		eerr := newError(CodeExecutionFailed, sessionID, runErr)
		res := ExecutionResult{
			Error:           fmt.Sprintf("execution failed: %v", runErr),
			ExecutionTimeMS: elapsed.Milliseconds(),
			Stdin:           stdin,
		}
		o.recordEvent("code_execute", sessionID, start, eerr,
			zap.Int("code_len", len(sub.Code)),
			zap.String("sandbox_id", handle.ID()))
		return res
	}

	stderr := string(cmdRes.Stderr)
	result := ExecutionResult{
		Success:         cmdRes.ExitCode == 0 && stderr == "",
		Output:          string(cmdRes.Stdout),
		Error:           stderr,
		ExecutionTimeMS: elapsed.Milliseconds(),
		Stdin:           stdin,
	}

	o.recordEvent("code_execute", sessionID, start, nil,
		zap.Int("code_len", len(sub.Code)),
		zap.String("sandbox_id", handle.ID()),
		zap.Int("exit_code", cmdRes.ExitCode),
		zap.Bool("run_success", result.Success))
	return result
}

// buildFileSet assembles the files to stage for a submission: the entry
// file (with seed initialization prepended when a deterministic seed is
// requested, keeping the command invocation uniform), an optional stdin
// file, and sanitized attachments.
func buildFileSet(sub Submission) []provider.File {
	code := sub.Code
	if sub.Settings != nil && sub.Settings.RandomSeed != nil {
		code = seedPreamble(*sub.Settings.RandomSeed) + code
	}

	files := []provider.File{{Path: entryFileName, Content: []byte(code)}}

	if sub.Settings == nil {
		return files
	}

	if sub.Settings.Stdin != "" {
		files = append(files, provider.File{Path: stdinFileName, Content: []byte(sub.Settings.Stdin)})
	}

	for _, af := range sub.Settings.AttachedFiles {
		files = append(files, provider.File{
			Path:    sanitizeFileName(af.Name),
			Content: []byte(af.Content),
		})
	}

	return files
}

func seedPreamble(seed int64) string {
	return fmt.Sprintf("import random\nrandom.seed(%d)\n", seed)
}

// sanitizeFileName rewrites an attached filename so the staged path cannot
// escape the sandbox working directory: separators are collapsed to the
// base name, leading dots and traversal sequences are stripped, and a
// degenerate result falls back to a deterministic placeholder.
func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(path.Clean("/" + name))
	name = strings.TrimLeft(name, ".")
	if name == "" || name == "/" {
		return fallbackAttachmentName
	}
	return name
}
