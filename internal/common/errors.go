// Package common contains shared sentinel errors used across the client
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository/cache-level errors.
	ErrorNotFound = errors.New("not found")

	// Remote API errors.
	ErrorUnavailable  = errors.New("server unavailable")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrorConflict means the server already holds attendance for the
	// registration: a legitimate, terminal outcome, not a failure to retry.
	ErrorConflict = errors.New("attendance already registered")

	// ErrorRejected covers any other definitive 4xx rejection (validation,
	// unknown registration). Terminal like a conflict.
	ErrorRejected = errors.New("rejected by server")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
)
