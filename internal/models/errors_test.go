// ABOUTME: Tests for error kinds and storage wrapping.
// ABOUTME: Storage messages must never leak their cause.
package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStorageErrorHidesCause(t *testing.T) {
	cause := errors.New("disk full at /var/lib/secret")
	err := WrapStorage("end session", cause)

	if !IsStorage(err) {
		t.Fatalf("expected storage error, got %T", err)
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("message leaks cause: %q", err.Error())
	}
	if err.Error() != "storage failure: end session" {
		t.Errorf("message = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
}

func TestWrapStorageKeepsDomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", fmt.Errorf("driver abc: %w", ErrNotFound)},
		{"conflict", fmt.Errorf("session: %w", ErrConflict)},
		{"validation", NewValidationError("eye_closure_pct", "must be between 0 and 100")},
		{"already storage", &StorageError{Op: "x", Err: errors.New("y")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WrapStorage("op", tt.err); got != tt.err {
				t.Errorf("WrapStorage changed %v into %v", tt.err, got)
			}
		})
	}

	if WrapStorage("op", nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("blink_frequency", "must not be negative, got %v", -1)
	if err.Error() != "invalid blink_frequency: must not be negative, got -1" {
		t.Errorf("message = %q", err.Error())
	}
	if !IsValidation(fmt.Errorf("wrapped: %w", err)) {
		t.Error("IsValidation should see through wrapping")
	}
}
