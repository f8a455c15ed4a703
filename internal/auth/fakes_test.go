package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeUserRepo is an in-memory UserRepository for service and middleware
// tests.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return ErrAlreadyExists
		}
	}
	clone := *u
	f.users[u.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, ErrNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeUserRepo) EnableByVerificationToken(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.VerificationToken == token && token != "" {
			u.Enabled = true
			u.VerificationToken = ""
			return u.Username, nil
		}
	}
	return "", ErrNotFound
}

func (f *fakeUserRepo) DeleteUnverifiedCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, u := range f.users {
		if !u.Enabled && u.CreatedAt.Before(cutoff) {
			delete(f.users, id)
			deleted++
		}
	}
	return deleted, nil
}

// fakeTokenRepo is an in-memory RefreshTokenRepository.
type fakeTokenRepo struct {
	mu     sync.Mutex
	byTok  map[string]*RefreshToken
	failOn error
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{byTok: make(map[string]*RefreshToken)}
}

func (f *fakeTokenRepo) Create(_ context.Context, rt *RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != nil {
		return f.failOn
	}
	if _, ok := f.byTok[rt.Token]; ok {
		return ErrAlreadyExists
	}
	clone := *rt
	f.byTok[rt.Token] = &clone
	return nil
}

func (f *fakeTokenRepo) GetByToken(_ context.Context, tokenValue string) (*RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rt, ok := f.byTok[tokenValue]; ok {
		clone := *rt
		return &clone, nil
	}
	return nil, ErrNotFound
}

func (f *fakeTokenRepo) DeleteByToken(_ context.Context, tokenValue string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byTok, tokenValue)
	return nil
}

func (f *fakeTokenRepo) DeleteByTokenForUser(_ context.Context, tokenValue string, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rt, ok := f.byTok[tokenValue]; ok && rt.UserID == userID {
		delete(f.byTok, tokenValue)
	}
	return nil
}

func (f *fakeTokenRepo) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for tok, rt := range f.byTok {
		if rt.UserID == userID {
			delete(f.byTok, tok)
		}
	}
	return nil
}

func (f *fakeTokenRepo) ForEachExpiredBefore(_ context.Context, cutoff time.Time, fn func(RefreshToken) error) error {
	f.mu.Lock()
	expired := make([]RefreshToken, 0)
	for _, rt := range f.byTok {
		if rt.ExpiresAt.Before(cutoff) {
			expired = append(expired, *rt)
		}
	}
	f.mu.Unlock()

	for _, rt := range expired {
		if err := fn(rt); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeTokenRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byTok)
}
