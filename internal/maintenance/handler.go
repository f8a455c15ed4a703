// Package maintenance exposes the on-demand sweep trigger used by cron
// jobs and operators.
package maintenance

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Sweeper runs the cleanup passes the scheduler normally drives.
type Sweeper interface {
	SweepRefreshTokens(ctx context.Context) (int, error)
	SweepUnverifiedAccounts(ctx context.Context) (int64, error)
}

type SweepHandler struct {
	sweeper Sweeper
	logger  *zap.Logger
	secret  string
}

func NewSweepHandler(sweeper Sweeper, logger *zap.Logger, secret string) *SweepHandler {
	return &SweepHandler{
		sweeper: sweeper,
		logger:  logger,
		secret:  strings.TrimSpace(secret),
	}
}

// Handle runs both sweeps immediately. With no secret configured the
// endpoint pretends not to exist.
func (h *SweepHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.secret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	tokensDeleted, err := h.sweeper.SweepRefreshTokens(r.Context())
	if err != nil {
		h.logger.Error("manual refresh token sweep failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sweep failed"})
		return
	}

	accountsDeleted, err := h.sweeper.SweepUnverifiedAccounts(r.Context())
	if err != nil {
		h.logger.Error("manual unverified account sweep failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sweep failed"})
		return
	}

	h.logger.Info("manual sweep completed",
		zap.Int("deleted_refresh_tokens", tokensDeleted),
		zap.Int64("deleted_unverified_accounts", accountsDeleted),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":                      "ok",
		"deleted_refresh_tokens":      tokensDeleted,
		"deleted_unverified_accounts": accountsDeleted,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
