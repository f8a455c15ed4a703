package auth

import "errors"

// Sentinel errors used across the repository/service/handler layers for
// stable error mapping.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation
	// (username or email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidCredentials covers unknown usernames and wrong passwords
	// without distinguishing the two.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDisabled indicates a login attempt against an account that
	// has not completed verification.
	ErrAccountDisabled = errors.New("account not verified")

	// ErrInvalidRefreshToken covers unknown, expired and already-rotated
	// refresh tokens.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrInvalidVerificationToken indicates an unknown or already-redeemed
	// verification token.
	ErrInvalidVerificationToken = errors.New("invalid verification token")
)
