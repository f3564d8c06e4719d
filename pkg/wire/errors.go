package wire

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification; wrap with fmt.Errorf("...: %w", ...)
// to attach context.
var (
	ErrValidation    = errors.New("wire: schema validation failed")
	ErrSerialization = errors.New("wire: serialization failed")
)

// ValidationError carries the dotted path at which schema validation
// failed, so a log line points at the offending entry, not just the set.
type ValidationError struct {
	Path string
	Err  error
}

func NewValidationError(path string, err error) *ValidationError {
	return &ValidationError{Path: path, Err: err}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
