package store

import (
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// ErrClosed is returned by every operation after Close or Remove.
var ErrClosed = errors.New("collection is closed")

// ConflictError reports a revision mismatch during bulk write validation.
// The surrounding batch is rejected as a whole; nothing was applied.
type ConflictError struct {
	// DocumentID identifies the conflicting document.
	DocumentID any

	// Expected is the revision the caller assumed (empty = new document).
	Expected string

	// Actual is the revision currently stored (empty = no row).
	Actual string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("write conflict on %v: expected revision %q, have %q",
		e.DocumentID, e.Expected, e.Actual)
}

// IsConflictError reports whether err is (or wraps) a ConflictError.
func IsConflictError(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// ConstraintError reports an engine-level constraint violation raised
// while applying a batch. The transaction was rolled back; no write of
// the batch is visible.
type ConstraintError struct {
	cause error
}

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint violation: %v", e.cause)
}

// Unwrap exposes the underlying driver error.
func (e *ConstraintError) Unwrap() error { return e.cause }

// IsConstraintError reports whether err is (or wraps) a ConstraintError.
func IsConstraintError(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}

// classifyExecError maps driver errors raised during the apply phase
// onto the error taxonomy.
func classifyExecError(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return &ConstraintError{cause: err}
	}
	return err
}
