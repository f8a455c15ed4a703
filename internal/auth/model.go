package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is an account row. Accounts start disabled and become enabled once
// the verification token is redeemed.
type User struct {
	ID                uuid.UUID
	Username          string
	Email             string
	PasswordHash      string
	Enabled           bool
	VerificationToken string
	CreatedAt         time.Time
}

// RefreshToken is the only durable state owned by the authentication core:
// an opaque token value bound to a user with an expiry instant.
type RefreshToken struct {
	ID        uuid.UUID
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPair is the login/refresh response body.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Username     string `json:"username"`
}

// Principal is the request-scoped authenticated identity. It is created by
// the middleware from a validated access token, attached to the request
// context, and discarded when the request ends.
type Principal struct {
	UserID      uuid.UUID
	Username    string
	Authorities []string
}

// HasAuthority reports whether the principal carries the given label.
func (p Principal) HasAuthority(label string) bool {
	for _, a := range p.Authorities {
		if a == label {
			return true
		}
	}
	return false
}
