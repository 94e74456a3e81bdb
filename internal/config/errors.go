package config

import (
	"fmt"
	"strings"
)

// ErrorKind classifies what is wrong with a configuration field.
type ErrorKind string

const (
	// KindMissingField marks a required field the variant demands but
	// the document does not carry.
	KindMissingField ErrorKind = "missing_field"

	// KindInvalidRange marks a present field whose value is out of
	// range or malformed (non-positive rate, unparseable duration).
	KindInvalidRange ErrorKind = "invalid_range"

	// KindUnknownStrategy marks an execution_strategy tag outside the
	// supported set.
	KindUnknownStrategy ErrorKind = "unknown_strategy"

	// KindUnknownTool marks a tool name outside the supported set.
	KindUnknownTool ErrorKind = "unknown_tool"
)

// ConfigError pinpoints one invalid piece of a benchmark definition:
// which benchmark, which field, and how it is wrong. Values are never
// silently coerced into validity.
type ConfigError struct {
	Benchmark string
	Field     string
	Kind      ErrorKind
	Message   string
}

func (e *ConfigError) Error() string {
	if e.Benchmark != "" {
		return fmt.Sprintf("benchmark %q: field %q: %s", e.Benchmark, e.Field, e.Message)
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Message)
}

// ConfigErrors collects every problem found in one validation pass, so
// a user fixes the whole file in one round trip instead of one error at
// a time.
type ConfigErrors struct {
	Errors []*ConfigError
}

func (e *ConfigErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no configuration errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d configuration errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add appends an error to the collection.
func (e *ConfigErrors) Add(benchmark, field string, kind ErrorKind, message string) {
	e.Errors = append(e.Errors, &ConfigError{
		Benchmark: benchmark,
		Field:     field,
		Kind:      kind,
		Message:   message,
	})
}

// HasErrors reports whether any error was collected.
func (e *ConfigErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// ByKind returns the collected errors matching kind.
func (e *ConfigErrors) ByKind(kind ErrorKind) []*ConfigError {
	var out []*ConfigError
	for _, err := range e.Errors {
		if err.Kind == kind {
			out = append(out, err)
		}
	}
	return out
}
