// Package apperr defines the error taxonomy shared by the registry, ledger
// and projection components. Handlers map these onto HTTP status codes;
// services wrap them with operation context via fmt.Errorf and %w.
package apperr

import "errors"

var (
	// ErrValidation marks a declined operation: required identifying fields
	// (email pair, amounts) are missing or unusable. No partial effect.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an identifier that resolves to no document.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a write that contradicts existing state, such as
	// onboarding an account under an email that is already registered.
	ErrConflict = errors.New("state conflict")

	// ErrUpstream marks an unavailable collaborator (document store,
	// notifier broker).
	ErrUpstream = errors.New("upstream unavailable")
)
