package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sreckoN/redditclone-sub001/internal/storage"
)

// PgUserRepo implements UserRepository over PostgreSQL.
type PgUserRepo struct{ db *storage.DB }

// NewPgUserRepo constructs the user repository.
func NewPgUserRepo(db *storage.DB) *PgUserRepo { return &PgUserRepo{db: db} }

func (r *PgUserRepo) Create(ctx context.Context, u *User) error {
	const q = `
INSERT INTO users (id, username, email, password_hash, enabled, verification_token, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Pool.Exec(ctx, q,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Enabled, u.VerificationToken, u.CreatedAt)
	if storage.IsUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	const q = `
SELECT id, username, email, password_hash, enabled, created_at
FROM users WHERE id = $1`
	return r.scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

func (r *PgUserRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	const q = `
SELECT id, username, email, password_hash, enabled, created_at
FROM users WHERE username = $1`
	return r.scanUser(r.db.Pool.QueryRow(ctx, q, username))
}

func (r *PgUserRepo) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Enabled, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *PgUserRepo) EnableByVerificationToken(ctx context.Context, token string) (string, error) {
	const q = `
UPDATE users
SET enabled = true, verification_token = NULL
WHERE verification_token = $1
RETURNING username`
	var username string
	err := r.db.Pool.QueryRow(ctx, q, token).Scan(&username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("enable user: %w", err)
	}
	return username, nil
}

// DeleteUnverifiedCreatedBefore embeds both predicates in one statement so
// an account verified between selection and deletion can never be lost.
func (r *PgUserRepo) DeleteUnverifiedCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM users WHERE enabled = false AND created_at < $1`
	tag, err := r.db.Pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete unverified users: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PgRefreshTokenRepo implements RefreshTokenRepository over PostgreSQL.
type PgRefreshTokenRepo struct{ db *storage.DB }

// NewPgRefreshTokenRepo constructs the refresh token repository.
func NewPgRefreshTokenRepo(db *storage.DB) *PgRefreshTokenRepo {
	return &PgRefreshTokenRepo{db: db}
}

func (r *PgRefreshTokenRepo) Create(ctx context.Context, rt *RefreshToken) error {
	const q = `
INSERT INTO refresh_tokens (id, token, user_id, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, rt.ID, rt.Token, rt.UserID, rt.ExpiresAt, rt.CreatedAt)
	if storage.IsUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (r *PgRefreshTokenRepo) GetByToken(ctx context.Context, tokenValue string) (*RefreshToken, error) {
	const q = `
SELECT id, token, user_id, expires_at, created_at
FROM refresh_tokens WHERE token = $1`
	var rt RefreshToken
	err := r.db.Pool.QueryRow(ctx, q, tokenValue).
		Scan(&rt.ID, &rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	return &rt, nil
}

func (r *PgRefreshTokenRepo) DeleteByToken(ctx context.Context, tokenValue string) error {
	const q = `DELETE FROM refresh_tokens WHERE token = $1`
	if _, err := r.db.Pool.Exec(ctx, q, tokenValue); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *PgRefreshTokenRepo) DeleteByTokenForUser(ctx context.Context, tokenValue string, userID uuid.UUID) error {
	const q = `DELETE FROM refresh_tokens WHERE token = $1 AND user_id = $2`
	if _, err := r.db.Pool.Exec(ctx, q, tokenValue, userID); err != nil {
		return fmt.Errorf("delete refresh token for user: %w", err)
	}
	return nil
}

func (r *PgRefreshTokenRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	const q = `DELETE FROM refresh_tokens WHERE user_id = $1`
	if _, err := r.db.Pool.Exec(ctx, q, userID); err != nil {
		return fmt.Errorf("delete refresh tokens for user: %w", err)
	}
	return nil
}

// ForEachExpiredBefore iterates the expired set row by row, so the sweep
// may start deleting before the query finishes.
func (r *PgRefreshTokenRepo) ForEachExpiredBefore(ctx context.Context, cutoff time.Time, fn func(RefreshToken) error) error {
	const q = `
SELECT id, token, user_id, expires_at, created_at
FROM refresh_tokens WHERE expires_at < $1`
	rows, err := r.db.Pool.Query(ctx, q, cutoff)
	if err != nil {
		return fmt.Errorf("query expired refresh tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rt RefreshToken
		if err := rows.Scan(&rt.ID, &rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt); err != nil {
			return fmt.Errorf("scan expired refresh token: %w", err)
		}
		if err := fn(rt); err != nil {
			return err
		}
	}
	return rows.Err()
}
