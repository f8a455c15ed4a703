package token

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// ErrEmptySubject rejects issuance for an unnamed identity.
var ErrEmptySubject = errors.New("empty token subject")

// Policy applies issuance and validation rules on top of the codec:
// lifetimes, claim population and the expiry check.
type Policy struct {
	codec      *Codec
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewPolicy constructs a policy. Non-positive lifetimes fall back to the
// defaults (1h access, 7d refresh).
func NewPolicy(codec *Codec, issuer string, accessTTL, refreshTTL time.Duration) *Policy {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &Policy{
		codec:      codec,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Tests use this to advance a
// simulated clock past token expiry.
func (p *Policy) WithClock(now func() time.Time) *Policy {
	p.now = now
	return p
}

// AccessTTL reports the configured access-token lifetime.
func (p *Policy) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (p *Policy) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccessToken mints a short-lived token for the subject and returns
// the signed string with its expiry instant.
func (p *Policy) IssueAccessToken(subject string) (string, time.Time, error) {
	return p.issue(subject, p.accessTTL, "")
}

// IssueRefreshToken mints a long-lived token for the subject. The returned
// string is the value the caller persists in the refresh token store; a
// random token ID keeps same-instant issuances distinct.
func (p *Policy) IssueRefreshToken(subject string) (string, time.Time, error) {
	return p.issue(subject, p.refreshTTL, uuid.NewString())
}

func (p *Policy) issue(subject string, ttl time.Duration, id string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, ErrEmptySubject
	}
	now := p.now().UTC()
	exp := now.Add(ttl)
	signed, err := p.codec.Sign(Claims{
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: exp,
		Issuer:    p.issuer,
		ID:        id,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Check verifies a token against the expected subject. The three checks
// run in a fixed order so the first observable failure is stable across
// logs: parse, then expiry, then subject match.
func (p *Policy) Check(tokenStr, expectedSubject string) error {
	claims, err := p.codec.Parse(tokenStr)
	if err != nil {
		return err
	}
	if !claims.ExpiresAt.After(p.now()) {
		return newError(KindExpired, nil)
	}
	if claims.Subject != expectedSubject {
		return newError(KindSubjectMismatch, nil)
	}
	return nil
}

// Validate reports whether the token is currently valid for the expected
// subject.
func (p *Policy) Validate(tokenStr, expectedSubject string) bool {
	return p.Check(tokenStr, expectedSubject) == nil
}

// ExtractSubject returns the subject claim without judging expiry. The
// middleware uses it to resolve the candidate account before the full
// Check against that account's current username.
func (p *Policy) ExtractSubject(tokenStr string) (string, error) {
	claims, err := p.codec.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
