// Package config collects every runtime knob from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the fully resolved runtime configuration. Zero values never
// leak out of Load: every optional field carries a default.
type Config struct {
	Addr        string
	Environment string

	DatabaseURL string
	SentryDSN   string

	JWTSecret string
	JWTIssuer string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	SweepInterval     time.Duration
	VerificationGrace time.Duration

	LoginRateLimitMax    int
	LoginRateLimitWindow time.Duration

	MaintenanceSecret string

	DBMaxConns        int
	DBMinConns        int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
}

// Load reads configuration from the environment. DATABASE_URL and
// JWT_SECRET are required; everything else falls back to a default when
// unset. A numeric variable that is set but unparsable (or non-positive)
// is a fatal startup error, never a silent default.
func Load() (*Config, error) {
	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}

	env := &envParser{}
	cfg := &Config{
		Addr:        ":" + envOrDefault("PORT", "8080"),
		Environment: envOrDefault("APP_ENV", "development"),

		DatabaseURL: databaseURL,
		SentryDSN:   os.Getenv("SENTRY_DSN"),

		JWTSecret: jwtSecret,
		JWTIssuer: envOrDefault("JWT_ISSUER", "redditclone"),

		AccessTokenTTL:  env.minutesOrDefault("ACCESS_TOKEN_TTL_MINUTES", 60),
		RefreshTokenTTL: env.hoursOrDefault("REFRESH_TOKEN_TTL_HOURS", 168),

		SweepInterval:     env.minutesOrDefault("SWEEP_INTERVAL_MINUTES", 60),
		VerificationGrace: env.hoursOrDefault("VERIFICATION_GRACE_HOURS", 24),

		LoginRateLimitMax:    env.intOrDefault("LOGIN_RATE_LIMIT_MAX", 10),
		LoginRateLimitWindow: env.secondsOrDefault("LOGIN_RATE_LIMIT_WINDOW_SECONDS", 60),

		MaintenanceSecret: os.Getenv("MAINTENANCE_SECRET"),

		DBMaxConns:        env.intOrDefault("DB_MAX_CONNS", 10),
		DBMinConns:        env.intOrDefault("DB_MIN_CONNS", 2),
		DBConnMaxLifetime: env.minutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		DBConnMaxIdleTime: env.minutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),
	}
	if env.err != nil {
		return nil, env.err
	}
	return cfg, nil
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

// envParser reads numeric variables and records the first failure so Load
// can report it once all fields are assembled.
type envParser struct {
	err error
}

func (p *envParser) intOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		if p.err == nil {
			p.err = fmt.Errorf("invalid value for %s: %q (want a positive integer)", name, value)
		}
		return fallback
	}
	return parsed
}

func (p *envParser) minutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(p.intOrDefault(name, fallback)) * time.Minute
}

func (p *envParser) hoursOrDefault(name string, fallback int) time.Duration {
	return time.Duration(p.intOrDefault(name, fallback)) * time.Hour
}

func (p *envParser) secondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(p.intOrDefault(name, fallback)) * time.Second
}
