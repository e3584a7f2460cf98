// ABOUTME: Error kinds shared by storage, session, and transport layers.
// ABOUTME: Callers match them with errors.Is and errors.As.
package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an unknown driver, session, or record.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a uniqueness violation such as a second active session.
	ErrConflict = errors.New("conflict")
)

// ValidationError rejects malformed input before anything is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError formats a reason for the named field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StorageError wraps a persistence failure. Its message never includes the cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage failure: " + e.Op
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorage reports whether err is or wraps a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// WrapStorage leaves domain errors untouched and wraps anything else in a StorageError.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || IsValidation(err) || IsStorage(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
