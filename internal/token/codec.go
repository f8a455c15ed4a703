// Package token implements signing, parsing and issuance policy for the
// bearer tokens used by the authentication subsystem.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretLength = 32

// ErrWeakSecret is a fatal configuration error: the process must not start
// with a missing or undersized signing secret.
var ErrWeakSecret = errors.New("signing secret missing or shorter than 32 bytes")

// Claims is the decoded content of a signed token. ID is set on refresh
// tokens only; it keeps two same-instant issuances for one subject from
// producing identical token strings.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
	ID        string
}

// Codec signs and parses compact HS256 tokens. Parsing verifies structure
// and signature only; expiry is judged by Policy so that Parse stays
// deterministic under a simulated clock.
type Codec struct {
	secret []byte
	parser *jwt.Parser
}

// NewCodec builds a codec over the shared signing secret.
func NewCodec(secret string) (*Codec, error) {
	if len(secret) < minSecretLength {
		return nil, ErrWeakSecret
	}
	return &Codec{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Sign produces a signed compact token for the given claims.
func (c *Codec) Sign(claims Claims) (string, error) {
	registered := jwt.RegisteredClaims{
		Subject:   claims.Subject,
		IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		Issuer:    claims.Issuer,
		ID:        claims.ID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, registered).SignedString(c.secret)
}

// Parse verifies the signature and structural validity of a token and
// returns its claims. It returns a *Error with KindMalformed when the
// string is not decodable and KindBadSignature when verification fails.
func (c *Codec) Parse(tokenStr string) (Claims, error) {
	var registered jwt.RegisteredClaims
	_, err := c.parser.ParseWithClaims(tokenStr, &registered, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Claims{}, newError(KindMalformed, err)
		}
		return Claims{}, newError(KindBadSignature, err)
	}

	claims := Claims{Subject: registered.Subject, Issuer: registered.Issuer, ID: registered.ID}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, nil
}
