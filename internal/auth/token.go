// Package auth provides the pieces of the blog's session model:
//
//   - PasswordService: bcrypt hashing for registration and login
//   - TokenService:    signed session tokens (JWT) stored in an HttpOnly cookie
//   - Principal:       the identity attached to each request's context
//   - Policy:          the Authorizer deciding who may perform which action
//   - GitHubProvider:  optional OAuth sign-in
//
// SESSION FLOW:
//  1. Register/login succeeds → the handler calls TokenService.Generate(user.ID)
//     and sets the token in the "session" cookie.
//  2. On every request, LoadPrincipal validates the cookie, looks the user up
//     by the stored identifier and puts a Principal into the request context.
//  3. Handlers read it with PrincipalFrom(ctx); Require gates admin routes.
//  4. Logout expires the cookie.
//
// The token only carries the user id ("sub"). Name and email are re-read from
// the database on each request, so they are never stale.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "blog"

// TokenService handles session token creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and token lifetime.
// The secret must be at least 16 characters.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: session lifetime must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is how long a freshly generated token stays valid.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate signs a token for userID that expires after the configured TTL.
func (s *TokenService) Generate(userID int64) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration signs a token with a custom expiry duration.
// Negative durations produce already-expired tokens, which tests rely on.
func (s *TokenService) GenerateWithDuration(userID int64, d time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}

	// HS256: symmetric, the same secret signs and verifies.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token and returns the user id in its subject.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid and made with HS256 (WithValidMethods blocks "none")
//   - Token is not expired, and has an expiry at all
//   - Issuer is "blog"
func (s *TokenService) Validate(tokenStr string) (int64, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("auth: token expired")
		}
		return 0, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("auth: invalid token claims")
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("auth: token subject %q is not a user id", c.Subject)
	}

	return userID, nil
}
