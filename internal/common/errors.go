// Package common defines shared constants and sentinel errors used across
// client and server layers of GophAuth. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound       = errors.New("not found")
	ErrorDuplicateEmail = errors.New("email already registered")

	// Service-level errors.
	ErrorValidation         = errors.New("validation error")
	ErrorInvalidCredentials = errors.New("invalid credentials")
	ErrorUnauthenticated    = errors.New("could not validate credentials")
	ErrorForbidden          = errors.New("operator access required")
	ErrorInternal           = errors.New("internal error")

	// Token errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
