package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the access token lifetime when none is configured.
const DefaultTokenTTL = 30 * time.Minute

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrEmptySecret  = errors.New("jwt secret is required")
)

// Tokens issues and validates HS256 access tokens. The secret and algorithm
// are fixed for the lifetime of the value.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token service. A non-positive ttl uses DefaultTokenTTL
// and a nil now uses time.Now.
func NewTokens(secret []byte, ttl time.Duration, now func() time.Time) (*Tokens, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Tokens{secret: key, ttl: ttl, now: now}, nil
}

// TTL returns the configured token lifetime.
func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

// accessClaims always encodes "sub", so an empty username still yields a
// token; a missing "sub" decodes to nil.
type accessClaims struct {
	Subject *string `json:"sub"`
	jwt.RegisteredClaims
}

// Issue mints a token for subject expiring after the configured TTL.
func (t *Tokens) Issue(subject string) (string, error) {
	now := t.now()
	claims := accessClaims{
		Subject: &subject,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature and expiry and returns the token subject.
// Every failure is reported as ErrInvalidToken.
func (t *Tokens) Validate(tokenString string) (string, error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == nil {
		return "", ErrInvalidToken
	}
	return *claims.Subject, nil
}
