package orchestrator

// Staged filename constants
const (
	entryFileName  = "main.py"
	stdinFileName  = "stdin.txt"
	tracerFileName = "tracer.py"

	// Used when an attached filename sanitizes down to nothing.
	fallbackAttachmentName = "attachment.txt"
)

// AttachedFile is an extra file supplied alongside a submission. Name is
// sanitized before staging so it cannot escape the sandbox workdir.
type AttachedFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ExecutionSettings are the optional knobs on a submission.
type ExecutionSettings struct {
	Stdin         string         `json:"stdin,omitempty"`
	RandomSeed    *int64         `json:"randomSeed,omitempty"`
	AttachedFiles []AttachedFile `json:"attachedFiles,omitempty"`
}

// Submission is one user-supplied code execution request. It is never
// persisted.
type Submission struct {
	Code     string             `json:"code"`
	Settings *ExecutionSettings `json:"executionSettings,omitempty"`
}

// ExecutionResult is the structured outcome of one execution. Success is
// true only when the exit code is zero and stderr is empty.
type ExecutionResult struct {
	Success         bool   `json:"success"`
	Output          string `json:"output"`
	Error           string `json:"error"`
	ExecutionTimeMS int64  `json:"executionTimeMs"`
	Stdin           string `json:"stdin,omitempty"`
}

// TraceStep is one recorded step of an instrumented run.
type TraceStep struct {
	Line    int            `json:"line"`
	Event   string         `json:"event"`
	Locals  map[string]any `json:"locals"`
	Globals map[string]any `json:"globals"`
	Stack   []string       `json:"stack"`
	Stdout  string         `json:"stdout"`
}

// Trace is the full step-by-step record of an instrumented run. Truncated
// means the run hit the step cap before completing; that is a limit
// boundary, not an error.
type Trace struct {
	Steps      []TraceStep `json:"steps"`
	TotalSteps int         `json:"totalSteps"`
	ExitCode   int         `json:"exitCode"`
	Error      string      `json:"error,omitempty"`
	Truncated  bool        `json:"truncated"`
}

// TraceOptions are the optional knobs on a trace request.
type TraceOptions struct {
	Stdin    string
	MaxSteps int
}
