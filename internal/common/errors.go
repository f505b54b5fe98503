// Package common defines shared constants and sentinel errors used across
// client and server layers of PaperVault. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Validation errors: bad MIME type or size, user-fixable, never retried.
	ErrValidation = errors.New("validation error")

	// Auth errors: missing or expired credential, no retry without re-auth.
	ErrAuth = errors.New("unauthorized")

	// Transient network errors: retried on the next drain cycle only.
	ErrUnavailable = errors.New("server unavailable")

	// Storage errors.
	ErrStorage          = errors.New("storage error")
	ErrStorageExhausted = errors.New("local storage exhausted")

	// ErrAborted marks a user-initiated cancellation. It is never retried
	// automatically and is distinct from a network failure.
	ErrAborted = errors.New("aborted")

	ErrInvalidToken = errors.New("invalid token")
)

// ServerError wraps a server-side failure that is neither validation nor
// auth, preserving the HTTP status code for diagnostics.
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: status %d", e.Status)
}
