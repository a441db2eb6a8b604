package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication and token lifecycle errors
	ErrAuthExpired    = fmt.Errorf("authentication expired")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrNoHandshake    = fmt.Errorf("no handshake data")
	ErrStateMismatch  = fmt.Errorf("authorization state mismatch")

	// Session errors
	ErrSessionNotFound = fmt.Errorf("session not found")
	ErrSessionExpired  = fmt.Errorf("session expired")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
