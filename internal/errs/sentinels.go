// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates a malformed request rejected before any mutation.
	ErrValidation = errors.New("validation")

	// ErrInvalidIdentity indicates an empty identity where a concrete one is required.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrInvalidConversation indicates an empty conversation id.
	ErrInvalidConversation = errors.New("invalid conversation id")

	// ErrPaymentRequired indicates the requested plan change needs a completed checkout.
	ErrPaymentRequired = errors.New("payment required")
)
