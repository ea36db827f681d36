// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. These errors should be used by use cases
// and mapped to appropriate severities by callers.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates a transient failure talking to an external
	// system (platform API, provider, cache). Operations wrapping this error
	// are safe to retry under the bounded retry policies.
	ErrUnavailable = errors.New("unavailable")

	// ErrConfiguration indicates invalid or missing startup configuration.
	// Not recoverable at runtime.
	ErrConfiguration = errors.New("configuration error")
)

// New creates an error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap adds context to err while keeping the chain intact for Is/As checks.
// Returns nil when err is nil so call sites can wrap unconditionally.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
