package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository provides account persistence. The reconciler consumes it
// through the narrower reconciler.AccountStore interface.
type UserRepository interface {
	// Create inserts a new account row.
	Create(ctx context.Context, u *User) error
	// GetByID loads an account by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByUsername loads an account by username.
	GetByUsername(ctx context.Context, username string) (*User, error)
	// EnableByVerificationToken atomically flips enabled to true for the
	// account holding the token and returns its username.
	EnableByVerificationToken(ctx context.Context, token string) (string, error)
	// DeleteUnverifiedCreatedBefore removes accounts that are still
	// disabled and older than the cutoff, as a single conditional delete.
	DeleteUnverifiedCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RefreshTokenRepository persists refresh tokens. Multiple live tokens per
// user are permitted; the token value itself is the only uniqueness.
type RefreshTokenRepository interface {
	// Create inserts a new refresh token row.
	Create(ctx context.Context, rt *RefreshToken) error
	// GetByToken loads a row by its token value.
	GetByToken(ctx context.Context, tokenValue string) (*RefreshToken, error)
	// DeleteByToken removes a row if present. Deleting an absent token is
	// not an error.
	DeleteByToken(ctx context.Context, tokenValue string) error
	// DeleteByTokenForUser removes a row only when the user owns it.
	// Deleting an absent or foreign token is not an error; it is a no-op.
	DeleteByTokenForUser(ctx context.Context, tokenValue string, userID uuid.UUID) error
	// DeleteAllForUser removes every token owned by the user.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
	// ForEachExpiredBefore streams rows whose expiry precedes the cutoff,
	// invoking fn once per row without materializing the full set.
	ForEachExpiredBefore(ctx context.Context, cutoff time.Time, fn func(RefreshToken) error) error
}
