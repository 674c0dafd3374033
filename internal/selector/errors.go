package selector

import (
	"errors"
	"fmt"
)

// CompileError reports a selector that cannot be compiled: an unknown
// operator or field, an unsupported pattern, or a structurally invalid
// expression. Compile errors are detected before any I/O.
type CompileError struct {
	// Field names the offending field, empty for structural problems.
	Field string

	// Reason is a human-readable description.
	Reason string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("query compilation: field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("query compilation: %s", e.Reason)
}

// IsCompileError reports whether err is (or wraps) a CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// Errorf builds a CompileError. Shared with the sqlgen backend.
func Errorf(field, format string, args ...any) *CompileError {
	return &CompileError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
