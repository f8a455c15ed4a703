package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/sreckoN/redditclone-sub001/internal/storage"
)

func newDB(t *testing.T) (*storage.DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &storage.DB{Pool: mock}, mock
}

func TestPgUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPgUserRepo(db)
	ctx := context.Background()
	u := &User{
		ID:                uuid.New(),
		Username:          "alice",
		Email:             "alice@example.com",
		PasswordHash:      "$2a$10$hash",
		Enabled:           false,
		VerificationToken: "vtok",
		CreatedAt:         time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(u.ID, u.Username, u.Email, u.PasswordHash, u.Enabled, u.VerificationToken, u.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, u))

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(u.ID, u.Username, u.Email, u.PasswordHash, u.Enabled, u.VerificationToken, u.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, u), ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUserRepo_GetByUsername(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPgUserRepo(db)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectQuery(`SELECT id, username, email, password_hash, enabled, created_at FROM users WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "password_hash", "enabled", "created_at"}).
			AddRow(id, "alice", "alice@example.com", "$2a$10$hash", true, time.Now().UTC()))
	u, err := r.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
	require.True(t, u.Enabled)

	mock.ExpectQuery(`SELECT id, username, email, password_hash, enabled, created_at FROM users WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByUsername(ctx, "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPgUserRepo_EnableByVerificationToken(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPgUserRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`UPDATE users SET enabled = true, verification_token = NULL WHERE verification_token = \$1 RETURNING username`).
		WithArgs("vtok").
		WillReturnRows(pgxmock.NewRows([]string{"username"}).AddRow("alice"))
	username, err := r.EnableByVerificationToken(ctx, "vtok")
	require.NoError(t, err)
	require.Equal(t, "alice", username)

	// Redeeming twice finds no row: the token was cleared by the first call.
	mock.ExpectQuery(`UPDATE users SET enabled = true, verification_token = NULL WHERE verification_token = \$1 RETURNING username`).
		WithArgs("vtok").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.EnableByVerificationToken(ctx, "vtok")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPgUserRepo_DeleteUnverifiedCreatedBefore(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPgUserRepo(db)
	ctx := context.Background()
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	mock.ExpectExec(`DELETE FROM users WHERE enabled = false AND created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	deleted, err := r.DeleteUnverifiedCreatedBefore(ctx, cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 3, deleted)
}

func TestPgRefreshTokenRepo_CreateAndGet(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPgRefreshTokenRepo(db)
	ctx := context.Background()
	rt := &RefreshToken{
		ID:        uuid.New(),
		Token:     "opaque-token",
		UserID:    uuid.New(),
		ExpiresAt: time.Now().UTC().Add(7 * 24 * time.Hour),
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(rt.ID, rt.Token, rt.UserID, rt.ExpiresAt, rt.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, rt))

	mock.ExpectQuery(`SELECT id, token, user_id, expires_at, created_at FROM refresh_tokens WHERE token = \$1`).
		WithArgs(rt.Token).
		WillReturnRows(pgxmock.NewRows([]string{"id", "token", "user_id", "expires_at", "created_at"}).
			AddRow(rt.ID, rt.Token, rt.UserID, rt.ExpiresAt, rt.CreatedAt))
	got, err := r.GetByToken(ctx, rt.Token)
	require.NoError(t, err)
	require.Equal(t, rt.UserID, got.UserID)

	mock.ExpectQuery(`SELECT id, token, user_id, expires_at, created_at FROM refresh_tokens WHERE token = \$1`).
		WithArgs("unknown").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByToken(ctx, "unknown")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPgRefreshTokenRepo_Deletes(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPgRefreshTokenRepo(db)
	ctx := context.Background()
	userID := uuid.New()

	// Absent token: zero rows affected is still success.
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE token = \$1`).
		WithArgs("gone").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.NoError(t, r.DeleteByToken(ctx, "gone"))

	// Ownership-scoped delete: a foreign token matches zero rows.
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE token = \$1 AND user_id = \$2`).
		WithArgs("someone-elses", userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.NoError(t, r.DeleteByTokenForUser(ctx, "someone-elses", userID))

	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	require.NoError(t, r.DeleteAllForUser(ctx, userID))
}

func TestPgRefreshTokenRepo_ForEachExpiredBefore(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPgRefreshTokenRepo(db)
	ctx := context.Background()
	cutoff := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "token", "user_id", "expires_at", "created_at"}).
		AddRow(uuid.New(), "t1", uuid.New(), cutoff.Add(-time.Hour), cutoff.Add(-2*time.Hour)).
		AddRow(uuid.New(), "t2", uuid.New(), cutoff.Add(-5*time.Minute), cutoff.Add(-time.Hour))
	mock.ExpectQuery(`SELECT id, token, user_id, expires_at, created_at FROM refresh_tokens WHERE expires_at < \$1`).
		WithArgs(cutoff).
		WillReturnRows(rows)

	var seen []string
	err := r.ForEachExpiredBefore(ctx, cutoff, func(rt RefreshToken) error {
		seen = append(seen, rt.Token)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"t1", "t2"}, seen)
}

func TestPgRefreshTokenRepo_ForEachExpiredBefore_CallbackError(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPgRefreshTokenRepo(db)
	ctx := context.Background()
	cutoff := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "token", "user_id", "expires_at", "created_at"}).
		AddRow(uuid.New(), "t1", uuid.New(), cutoff.Add(-time.Hour), cutoff.Add(-2*time.Hour))
	mock.ExpectQuery(`SELECT id, token, user_id, expires_at, created_at FROM refresh_tokens WHERE expires_at < \$1`).
		WithArgs(cutoff).
		WillReturnRows(rows)

	boom := errors.New("boom")
	err := r.ForEachExpiredBefore(ctx, cutoff, func(RefreshToken) error { return boom })
	require.ErrorIs(t, err, boom)
}
