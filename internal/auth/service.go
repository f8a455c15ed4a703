package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sreckoN/redditclone-sub001/internal/token"
)

// Service owns the token-producing logic behind the signup, login, refresh
// and logout endpoints.
type Service struct {
	users  UserRepository
	tokens RefreshTokenRepository
	policy *token.Policy
	log    *zap.Logger
	now    func() time.Time
}

// NewService constructs the authentication service.
func NewService(users UserRepository, tokens RefreshTokenRepository, policy *token.Policy, log *zap.Logger) *Service {
	return &Service{users: users, tokens: tokens, policy: policy, log: log, now: time.Now}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Signup creates a disabled account with a fresh verification token. The
// notification collaborator picks the token up from the returned user.
func (s *Service) Signup(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	verification, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate verification token: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}

	u := &User{
		ID:                id,
		Username:          username,
		Email:             email,
		PasswordHash:      string(hash),
		Enabled:           false,
		VerificationToken: verification,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	// the notification collaborator picks the token up from the log stream
	s.log.Info("account created, verification pending",
		zap.String("username", username),
		zap.String("verification_token", verification),
	)
	return u, nil
}

// VerifyAccount redeems a verification token and returns the username of
// the now-enabled account.
func (s *Service) VerifyAccount(ctx context.Context, verificationToken string) (string, error) {
	verificationToken = strings.TrimSpace(verificationToken)
	if verificationToken == "" {
		return "", ErrInvalidVerificationToken
	}
	username, err := s.users.EnableByVerificationToken(ctx, verificationToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidVerificationToken
		}
		return "", err
	}
	s.log.Info("account verified", zap.String("username", username))
	return username, nil
}

// Login checks credentials against an enabled account and mints a token
// pair, persisting the refresh token. Concurrent logins for the same user
// each produce an independent refresh token row.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || password == "" {
		return TokenPair{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// hide account existence on unknown usernames
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	if !user.Enabled {
		return TokenPair{}, ErrAccountDisabled
	}

	return s.issuePair(ctx, user)
}

// Refresh exchanges a persisted refresh token for a new pair, rotating the
// old token out of the store.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	rec, err := s.tokens.GetByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, err
	}
	if !rec.ExpiresAt.After(s.now()) {
		// expired but not yet swept; remove it eagerly
		_ = s.tokens.DeleteByToken(ctx, refreshToken)
		return TokenPair{}, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = s.tokens.DeleteByToken(ctx, refreshToken)
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, err
	}

	if err := s.tokens.DeleteByToken(ctx, refreshToken); err != nil {
		return TokenPair{}, err
	}
	return s.issuePair(ctx, user)
}

// Logout deletes the presented refresh token, scoped to the calling user
// so one account cannot revoke another's session. Deleting an absent or
// foreign token is already satisfied.
func (s *Service) Logout(ctx context.Context, refreshToken string, userID uuid.UUID) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return ErrInvalidRefreshToken
	}
	return s.tokens.DeleteByTokenForUser(ctx, refreshToken, userID)
}

// LogoutAll deletes every refresh token owned by the user.
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return s.tokens.DeleteAllForUser(ctx, userID)
}

func (s *Service) issuePair(ctx context.Context, user *User) (TokenPair, error) {
	access, _, err := s.policy.IssueAccessToken(user.Username)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := s.policy.IssueRefreshToken(user.Username)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token id: %w", err)
	}
	if err := s.tokens.Create(ctx, &RefreshToken{
		ID:        id,
		Token:     refresh,
		UserID:    user.ID,
		ExpiresAt: refreshExp,
		CreatedAt: s.now().UTC(),
	}); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.policy.AccessTTL().Seconds()),
		Username:     user.Username,
	}, nil
}

func randomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
