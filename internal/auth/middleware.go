package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sreckoN/redditclone-sub001/internal/token"
)

// Outcome is the terminal state of the per-request authentication pipeline.
// Every state except OutcomeAuthenticated degrades to an anonymous request;
// none of them aborts it.
type Outcome string

const (
	OutcomeNoHeader        Outcome = "no_header"
	OutcomeMalformedHeader Outcome = "malformed_header"
	OutcomeParseError      Outcome = "parse_error"
	OutcomeAccountMissing  Outcome = "account_missing"
	OutcomeInvalid         Outcome = "invalid"
	OutcomeAuthenticated   Outcome = "authenticated"
)

// Authenticator resolves bearer tokens to principals. Paths on the skip
// list (registration, login, refresh, verification) bypass the pipeline so
// they stay reachable for clients that cannot yet authenticate.
type Authenticator struct {
	policy       *token.Policy
	users        UserRepository
	log          *zap.Logger
	skipExact    map[string]struct{}
	skipPrefixes []string
}

// NewAuthenticator constructs the middleware. skipExact lists paths matched
// verbatim; skipPrefixes lists path prefixes (for parameterized routes).
func NewAuthenticator(policy *token.Policy, users UserRepository, log *zap.Logger, skipExact []string, skipPrefixes []string) *Authenticator {
	exact := make(map[string]struct{}, len(skipExact))
	for _, p := range skipExact {
		exact[p] = struct{}{}
	}
	return &Authenticator{
		policy:       policy,
		users:        users,
		log:          log,
		skipExact:    exact,
		skipPrefixes: skipPrefixes,
	}
}

// Middleware runs the authentication pipeline and always forwards the
// request: authenticated requests carry a principal in context, everything
// else proceeds anonymously for the authorization layer to judge.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		principal, outcome := a.Authenticate(r)
		switch outcome {
		case OutcomeAuthenticated:
			r = r.WithContext(WithPrincipal(r.Context(), principal))
		case OutcomeNoHeader:
			// plain anonymous request, nothing to log
		default:
			a.log.Info("request degraded to anonymous",
				zap.String("path", r.URL.Path),
				zap.String("outcome", string(outcome)),
			)
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticate drives the state machine for a single request and returns
// its terminal state. It performs no writes and can be unit-tested per
// state without a handler chain.
func (a *Authenticator) Authenticate(r *http.Request) (Principal, Outcome) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return Principal{}, OutcomeNoHeader
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return Principal{}, OutcomeMalformedHeader
	}
	bearer := strings.TrimSpace(parts[1])

	// Extract first, then validate against the resolved account's current
	// username: tokens naming renamed or deleted accounts die here.
	subject, err := a.policy.ExtractSubject(bearer)
	if err != nil {
		a.log.Debug("bearer token unparseable", zap.String("kind", string(token.KindOf(err))))
		return Principal{}, OutcomeParseError
	}

	user, err := a.users.GetByUsername(r.Context(), subject)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.log.Error("account lookup failed", zap.Error(err))
		}
		return Principal{}, OutcomeAccountMissing
	}

	if err := a.policy.Check(bearer, user.Username); err != nil {
		a.log.Debug("bearer token rejected", zap.String("kind", string(token.KindOf(err))))
		return Principal{}, OutcomeInvalid
	}

	return Principal{
		UserID:      user.ID,
		Username:    user.Username,
		Authorities: []string{"ROLE_USER"},
	}, OutcomeAuthenticated
}

func (a *Authenticator) skip(path string) bool {
	if _, ok := a.skipExact[path]; ok {
		return true
	}
	for _, prefix := range a.skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// RequireAuthenticated is the authorization boundary: it rejects anonymous
// requests with a generic denial, leaking nothing about why authentication
// failed upstream.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromCtx(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
