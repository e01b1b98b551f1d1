package service

import "errors"

// Sentinel errors for the auth service; the HTTP handler maps them to status codes and error codes.
// Repository and infrastructure failures are returned wrapped and are never one of these.
var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInactiveAccount     = errors.New("account is inactive")
	ErrMissingRefreshToken = errors.New("refresh token is required")

	// ErrInvalidRefreshToken covers bad signature, unknown, expired, rotated and revoked refresh tokens alike.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrEmailInUse      = errors.New("email already registered")
	ErrAccountNotFound = errors.New("account not found")

	// ErrValidation is wrapped with the failing rule, e.g. fmt.Errorf("%w: email is required", ErrValidation).
	ErrValidation = errors.New("validation failed")
)
