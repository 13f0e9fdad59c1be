// Package sentinel defines the infrastructure errors stores return.
// Services map them to domain-errors codes; handlers never see them directly.
package sentinel

import "errors"

var (
	// ErrNotFound means the session or verification record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState means the record exists but cannot accept the operation,
	// such as a frame for a session that already completed.
	ErrInvalidState = errors.New("invalid state")
)
