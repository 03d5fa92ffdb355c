// Package auth is the identity half of the backend client: password hashing,
// signed session tokens, the session cookie, and GitHub sign-in.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "estate-portal"

// ErrInvalidToken is returned by Validate for any token that must not be
// trusted: malformed, tampered, signed with another key, or expired.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenService issues and validates HS256 session tokens. The subject claim
// carries the identity ID, which is also the profile ID.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token lifetime must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime given to every issued token and its cookie.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate signs a token for identityID that expires after TTL.
func (s *TokenService) Generate(identityID string) (string, error) {
	return s.GenerateWithDuration(identityID, s.ttl)
}

// GenerateWithDuration signs a token with an explicit lifetime. A negative
// duration yields an already expired token, which tests rely on.
func (s *TokenService) GenerateWithDuration(identityID string, d time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		Subject:   identityID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate returns the identity ID carried by a valid token. Every failure
// wraps ErrInvalidToken.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || c.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return c.Subject, nil
}
