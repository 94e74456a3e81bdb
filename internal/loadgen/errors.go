package loadgen

import (
	"errors"
	"fmt"
)

// ToolErrorKind classifies how a load generation backend failed.
type ToolErrorKind string

const (
	// ToolProcessFailed marks a backend process that exited abnormally.
	ToolProcessFailed ToolErrorKind = "process_failed"

	// ToolTimeout marks a run that exceeded its deadline.
	ToolTimeout ToolErrorKind = "timeout"

	// ToolBadOutput marks output the adapter could not parse.
	ToolBadOutput ToolErrorKind = "bad_output"

	// ToolUnsupported marks a strategy or option combination the
	// backend cannot express.
	ToolUnsupported ToolErrorKind = "unsupported"
)

// ToolError reports a backend failure with the benchmark, the tool, and
// the failure stage attached. A run that fails mid-stream keeps its
// already-streamed samples; the error travels alongside the partial
// report, it does not void it.
type ToolError struct {
	Tool      string
	Benchmark string
	Kind      ToolErrorKind
	ExitCode  int
	Err       error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("tool %s: benchmark %q: %s", e.Tool, e.Benchmark, e.Kind)
	if e.Kind == ToolProcessFailed && e.ExitCode != 0 {
		msg = fmt.Sprintf("%s (exit code %d)", msg, e.ExitCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a backend timeout.
func IsTimeout(err error) bool {
	var te *ToolError
	return errors.As(err, &te) && te.Kind == ToolTimeout
}

func (s RunSpec) toolError(kind ToolErrorKind, err error) *ToolError {
	return &ToolError{
		Tool:      s.Tool,
		Benchmark: s.benchmarkName(),
		Kind:      kind,
		Err:       err,
	}
}
