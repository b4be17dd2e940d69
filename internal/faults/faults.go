// Package faults defines the error taxonomy shared by the portal automation
// engine. Every component classifies failures into one of these types so the
// job adapter can decide between fatal, retryable, and best-effort handling
// without string matching.
package faults

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// InitializationError means the browser process could not start or the portal
// was unreachable within the page-load timeout. Always fatal.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialization failed: %v", e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// AuthenticationError means the portal rejected the credentials or the login
// surface was unavailable. Retried a bounded number of times, then fatal.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// NavigationError is a timeout or missing element while moving between views.
type NavigationError struct {
	Step string
	Err  error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation failed at %q: %v", e.Step, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// InteractionError means every fallback technique for one logical action was
// exhausted. Attempted carries the number of techniques tried.
type InteractionError struct {
	Context   string
	Attempted int
	Err       error
}

func (e *InteractionError) Error() string {
	return fmt.Sprintf("interaction %q failed after %d techniques: %v", e.Context, e.Attempted, e.Err)
}

func (e *InteractionError) Unwrap() error { return e.Err }

// ExtractionError means a loaded view could not be parsed into the expected
// shape.
type ExtractionError struct {
	View string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s view: %v", e.View, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ValidationError means a required job parameter is missing. Returned before
// any session is opened.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Field)
}

// transientError marks a wrapped error as retryable.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so IsTransient reports it as retryable. Used by the
// driver layer to flag timeouts and transport faults.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is worth retrying: an explicitly flagged
// transient fault, a deadline expiry, or a transport-level failure talking to
// the driver. Validation and authentication rejections are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return false
}
