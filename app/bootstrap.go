// Package app assembles the HTTP runtime from configuration.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sreckoN/redditclone-sub001/internal/auth"
	"github.com/sreckoN/redditclone-sub001/internal/config"
	"github.com/sreckoN/redditclone-sub001/internal/db"
	"github.com/sreckoN/redditclone-sub001/internal/maintenance"
	"github.com/sreckoN/redditclone-sub001/internal/observability"
	"github.com/sreckoN/redditclone-sub001/internal/reconciler"
	"github.com/sreckoN/redditclone-sub001/internal/storage"
	"github.com/sreckoN/redditclone-sub001/internal/token"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

// Runtime bundles everything main needs to serve and shut down cleanly.
type Runtime struct {
	Handler    http.Handler
	Reconciler *reconciler.Reconciler
	Logger     *zap.Logger
	Config     *config.Config
	Close      func() error
}

// Build wires the entire service: storage, token policy, auth service,
// middleware chain and the background reconciler.
func Build(ctx context.Context, options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := observability.NewLogger(cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		logger.Error("sentry init failed", zap.Error(err))
	}

	if options.RunMigrations {
		if err := db.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	database, err := storage.New(ctx, cfg.DatabaseURL, storage.Settings{
		MaxConns:        int32(cfg.DBMaxConns),
		MinConns:        int32(cfg.DBMinConns),
		MaxConnLifetime: cfg.DBConnMaxLifetime,
		MaxConnIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	userRepo := auth.NewPgUserRepo(database)
	tokenRepo := auth.NewPgRefreshTokenRepo(database)

	codec, err := token.NewCodec(cfg.JWTSecret)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("build token codec: %w", err)
	}
	policy := token.NewPolicy(codec, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	service := auth.NewService(userRepo, tokenRepo, policy, logger)
	authHandler := auth.NewHandler(service)

	authenticator := auth.NewAuthenticator(policy, userRepo, logger,
		[]string{
			"/api/auth/signup",
			"/api/auth/login",
			"/api/auth/refresh/token",
			"/health",
		},
		[]string{
			"/api/auth/accountVerification/",
			"/internal/",
		},
	)

	throttle := auth.NewThrottle(cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow)

	sweeps := reconciler.New(tokenRepo, userRepo, logger, cfg.SweepInterval, cfg.VerificationGrace)
	sweepHandler := maintenance.NewSweepHandler(sweeps, logger, cfg.MaintenanceSecret)

	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/signup", throttle.Middleware(http.HandlerFunc(authHandler.Signup)))
	mux.HandleFunc("GET /api/auth/accountVerification/{token}", authHandler.VerifyAccount)
	mux.Handle("POST /api/auth/login", throttle.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /api/auth/refresh/token", authHandler.Refresh)
	mux.Handle("POST /api/auth/logout", auth.RequireAuthenticated(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("POST /api/auth/logout/all", auth.RequireAuthenticated(http.HandlerFunc(authHandler.LogoutAll)))
	mux.Handle("GET /api/auth/me", auth.RequireAuthenticated(http.HandlerFunc(authHandler.Me)))
	mux.HandleFunc("POST /internal/maintenance/sweep", sweepHandler.Handle)
	mux.HandleFunc("GET /health", healthHandler(database))

	handler := observability.RecoverMiddleware(logger,
		observability.RequestLoggingMiddleware(logger,
			authenticator.Middleware(mux)))

	return &Runtime{
		Handler:    handler,
		Reconciler: sweeps,
		Logger:     logger,
		Config:     cfg,
		Close: func() error {
			observability.FlushSentry()
			database.Close()
			_ = logger.Sync()
			return nil
		},
	}, nil
}

func healthHandler(database *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}

		var one int
		if err := database.Pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
