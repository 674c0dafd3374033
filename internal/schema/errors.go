package schema

import (
	"errors"
	"fmt"
)

// MappingError reports a document schema (or a document value) that cannot
// be mapped onto the relational layout.
//
// Mapping errors are detected before any statement is issued against the
// database, so a MappingError never leaves partially-applied state behind.
type MappingError struct {
	// Field names the offending field, empty for schema-level problems.
	Field string

	// Reason is a human-readable description.
	Reason string
}

// Error implements the error interface.
func (e *MappingError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema mapping: field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("schema mapping: %s", e.Reason)
}

// IsMappingError reports whether err is (or wraps) a MappingError.
func IsMappingError(err error) bool {
	var me *MappingError
	return errors.As(err, &me)
}

func mappingErr(field, format string, args ...any) *MappingError {
	return &MappingError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
