package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/toolyard-backend/pkg/config"
)

const clockSkew = 30 * time.Second

var (
	ErrNoCredentials = errors.New("missing bearer token")
	errNoSecret      = errors.New("jwt secret is required")
)

// Tokens signs and verifies HS256 access tokens for one issuer.
type Tokens struct {
	key    []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

func NewTokens(cfg config.JWTConfig) *Tokens {
	return &Tokens{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    time.Duration(cfg.ExpirationMinutes) * time.Minute,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

// Mint signs c with the issuer, issue time, expiry and a jti filled in when
// the caller left them blank.
func (t *Tokens) Mint(now time.Time, c Claims) (string, error) {
	switch {
	case len(t.key) == 0:
		return "", errNoSecret
	case t.issuer == "":
		return "", errors.New("jwt issuer is required")
	case t.ttl <= 0:
		return "", errors.New("jwt expiration must be positive")
	}
	if err := c.Validate(); err != nil {
		return "", err
	}

	c.Issuer = t.issuer
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	if strings.TrimSpace(c.ID) == "" {
		c.ID = uuid.NewString()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns its claims.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	if len(t.key) == 0 {
		return nil, errNoSecret
	}
	claims := &Claims{}
	if _, err := t.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}

// BearerToken pulls the token out of an Authorization header. A bare token
// without the scheme is accepted.
func BearerToken(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) > 0 && strings.EqualFold(parts[0], "bearer") {
		parts = parts[1:]
	}
	if len(parts) != 1 {
		return "", ErrNoCredentials
	}
	return parts[0], nil
}
