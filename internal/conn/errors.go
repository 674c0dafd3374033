package conn

import (
	"errors"
	"fmt"
)

// ConnectionError reports a failure to open, share or close a registered
// database. Connection errors are fatal to the affected collection
// instances until they are closed and reopened.
type ConnectionError struct {
	// Name is the registered database name.
	Name string

	// Op is the failing operation: "open", "close" or "exec".
	Op string

	// Reason is a human-readable description.
	Reason string

	cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s %q: %s", e.Op, e.Name, e.Reason)
}

// Unwrap exposes the underlying driver error, if any.
func (e *ConnectionError) Unwrap() error { return e.cause }

// IsConnectionError reports whether err is (or wraps) a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
