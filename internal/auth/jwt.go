// Package auth provides the credentials checks for the /user API.
//
// AUTHENTICATION OVERVIEW:
// Every /user request must carry one of:
//
//	Authorization: Basic base64(username:password)   → checked against the accounts table
//	Authorization: Bearer <jwt>                      → issued by POST /auth/token
//
// Basic is the primary scheme. A bearer token lets a client trade one Basic
// login for a short-lived token so the password (and its bcrypt check) is not
// repeated on every call.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"sub":"btriggiani","role":"USER","iss":"user-hobbies","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "user-hobbies"

// DefaultTokenTTL is the token lifetime used when none is configured.
const DefaultTokenTTL = 15 * time.Minute

// ErrTokenExpired is returned by Validate for a correctly signed but expired token.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// A ttl of 0 means DefaultTokenTTL.
// Example secret: USERHOBBIES_AUTH_JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl < 0 {
		return nil, errors.New("auth: token TTL must not be negative")
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload: the registered claims plus the account role,
// so a bearer request can be authorized without an accounts lookup.
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Generate signs a token for the principal using the configured lifetime.
func (s *TokenService) Generate(p Principal) (string, error) {
	return s.GenerateWithDuration(p, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime.
// A negative duration produces an already expired token (used in tests).
func (s *TokenService) GenerateWithDuration(p Principal, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// TTL is the lifetime of tokens from Generate.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Validate parses and verifies a JWT and returns the principal it names.
//
// The library checks the signature, expiry, issuer and algorithm.
// jwt.WithValidMethods rejects "alg":"none" and other algorithm swaps.
func (s *TokenService) Validate(tokenStr string) (Principal, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrTokenExpired
		}
		return Principal{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Principal{}, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return Principal{}, errors.New("auth: token has no subject")
	}

	return Principal{Username: c.Subject, Role: c.Role}, nil
}
