package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/EgehanKilicarslan/mbs-auth/internal/security"
)

// Audience separates access tokens from refresh tokens.
type Audience string

const (
	AudienceAccess  Audience = "ACCESS"
	AudienceRefresh Audience = "REFRESH"
)

// Claims is the complete signed payload. For access tokens Subject is the
// user id; for refresh tokens it is the id of the parent access token.
type Claims struct {
	ID        string
	Audience  Audience
	Subject   string
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
}

// ErrWeakKey is returned when the signing key is too short for HMAC-SHA256.
var ErrWeakKey = errors.New("signing key must be at least 32 bytes")

// Codec signs and verifies compact JWS tokens with a shared HMAC key.
type Codec struct {
	key    []byte
	method jwt.SigningMethod
	parser *jwt.Parser
}

// NewCodec picks HS512, HS384 or HS256 from the key length. now is the clock
// used for exp, nbf and iat checks; leeway is the tolerated skew.
func NewCodec(key []byte, leeway time.Duration, now func() time.Time) (*Codec, error) {
	var method jwt.SigningMethod
	switch {
	case len(key) >= 64:
		method = jwt.SigningMethodHS512
	case len(key) >= 48:
		method = jwt.SigningMethodHS384
	case len(key) >= 32:
		method = jwt.SigningMethodHS256
	default:
		return nil, ErrWeakKey
	}

	if now == nil {
		now = time.Now
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	)

	return &Codec{
		key:    key,
		method: method,
		parser: parser,
	}, nil
}

// Algorithm returns the JWS alg header value produced by Encode.
func (c *Codec) Algorithm() string {
	return c.method.Alg()
}

// Encode signs claims. Times are carried with second precision.
func (c *Codec) Encode(claims Claims) (string, error) {
	registered := jwt.RegisteredClaims{
		ID:        claims.ID,
		Subject:   claims.Subject,
		Audience:  jwt.ClaimStrings{string(claims.Audience)},
		IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
		NotBefore: jwt.NewNumericDate(claims.NotBefore),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	}

	signed, err := jwt.NewWithClaims(c.method, registered).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and time window of raw and returns its claims.
// The audience is returned as found; checking it is up to the caller.
// Every failure wraps security.ErrInvalidToken.
func (c *Codec) Decode(raw string) (*Claims, error) {
	var registered jwt.RegisteredClaims
	_, err := c.parser.ParseWithClaims(raw, &registered, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", security.ErrInvalidToken, err)
	}

	switch {
	case registered.ID == "":
		return nil, fmt.Errorf("%w: missing jti", security.ErrInvalidToken)
	case registered.Subject == "":
		return nil, fmt.Errorf("%w: missing sub", security.ErrInvalidToken)
	case len(registered.Audience) != 1:
		return nil, fmt.Errorf("%w: expected exactly one audience", security.ErrInvalidToken)
	case registered.IssuedAt == nil, registered.NotBefore == nil:
		return nil, fmt.Errorf("%w: missing iat or nbf", security.ErrInvalidToken)
	}

	return &Claims{
		ID:        registered.ID,
		Audience:  Audience(registered.Audience[0]),
		Subject:   registered.Subject,
		IssuedAt:  registered.IssuedAt.UTC(),
		NotBefore: registered.NotBefore.UTC(),
		ExpiresAt: registered.ExpiresAt.UTC(),
	}, nil
}
