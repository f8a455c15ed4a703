// Package reconciler runs the periodic sweeps that prune expired refresh
// tokens and never-verified accounts.
package reconciler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sreckoN/redditclone-sub001/internal/auth"
)

// RefreshTokenStore is the slice of the refresh token repository the
// sweeps need.
type RefreshTokenStore interface {
	ForEachExpiredBefore(ctx context.Context, cutoff time.Time, fn func(auth.RefreshToken) error) error
	DeleteByToken(ctx context.Context, tokenValue string) error
}

// AccountStore is the user-account collaborator: a single atomic
// conditional delete so a concurrent verification can never be lost.
type AccountStore interface {
	DeleteUnverifiedCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Reconciler schedules both sweeps on a shared interval. Sweeps are
// idempotent and safe to run concurrently with live authentication
// traffic: rows that vanish mid-sweep are treated as already handled.
type Reconciler struct {
	tokens   RefreshTokenStore
	accounts AccountStore
	log      *zap.Logger
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
}

// New constructs a reconciler sweeping every interval and deleting
// unverified accounts older than grace.
func New(tokens RefreshTokenStore, accounts AccountStore, log *zap.Logger, interval, grace time.Duration) *Reconciler {
	if interval <= 0 {
		interval = time.Hour
	}
	if grace <= 0 {
		grace = 24 * time.Hour
	}
	return &Reconciler{
		tokens:   tokens,
		accounts: accounts,
		log:      log,
		interval: interval,
		grace:    grace,
		now:      time.Now,
	}
}

// WithClock overrides the time source for tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Run blocks until ctx is cancelled, driving each sweep on its own timer.
// A failing sweep is logged and retried on the next tick.
func (r *Reconciler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		r.loop(ctx, "refresh_token_sweep", func(ctx context.Context) error {
			_, err := r.SweepRefreshTokens(ctx)
			return err
		})
	}()
	go func() {
		defer wg.Done()
		r.loop(ctx, "unverified_account_sweep", func(ctx context.Context) error {
			_, err := r.SweepUnverifiedAccounts(ctx)
			return err
		})
	}()

	wg.Wait()
}

func (r *Reconciler) loop(ctx context.Context, name string, sweep func(context.Context) error) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sweep(ctx); err != nil {
				r.log.Error("sweep failed", zap.String("sweep", name), zap.Error(err))
			}
		}
	}
}

// SweepRefreshTokens streams the expired set and deletes each row. A row
// deleted underneath us by a concurrent logout counts as already swept,
// and one failing delete never aborts the batch.
func (r *Reconciler) SweepRefreshTokens(ctx context.Context) (int, error) {
	cutoff := r.now().UTC()
	deleted := 0

	err := r.tokens.ForEachExpiredBefore(ctx, cutoff, func(rt auth.RefreshToken) error {
		if err := r.tokens.DeleteByToken(ctx, rt.Token); err != nil {
			r.log.Warn("expired refresh token not deleted",
				zap.String("token_id", rt.ID.String()), zap.Error(err))
			return nil
		}
		deleted++
		return nil
	})
	if err != nil {
		return deleted, err
	}

	if deleted > 0 {
		r.log.Info("expired refresh tokens removed", zap.Int("count", deleted))
	}
	return deleted, nil
}

// SweepUnverifiedAccounts removes accounts that never completed
// verification within the grace window.
func (r *Reconciler) SweepUnverifiedAccounts(ctx context.Context) (int64, error) {
	cutoff := r.now().UTC().Add(-r.grace)

	deleted, err := r.accounts.DeleteUnverifiedCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		r.log.Info("unverified accounts removed", zap.Int64("count", deleted))
	}
	return deleted, nil
}
