package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"inventory/internal/apperrors"
)

// TokenType is returned alongside every access token.
const TokenType = "bearer"

// Claims is the JWT payload. Subject carries the username.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenManager issues and validates HMAC-signed access tokens.
type TokenManager struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// Option customizes a TokenManager.
type Option func(*TokenManager)

// WithClock replaces the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

// NewTokenManager builds a manager for one of HS256, HS384 or HS512.
func NewTokenManager(secret, algorithm string, ttl time.Duration, opts ...Option) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	tm := &TokenManager{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// Issue signs a token for subject that expires after the configured TTL.
func (tm *TokenManager) Issue(subject string) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(tm.ttl).Truncate(jwt.TimePrecision)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	tokenString, err := jwt.NewWithClaims(tm.method, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// Validate verifies signature, algorithm and expiry. Every failure is
// reported as an Unauthorized error whose cause names the actual reason.
func (tm *TokenManager) Validate(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{tm.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)

	parsed, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnauthorized, "invalid token", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apperrors.New(apperrors.KindUnauthorized, "invalid token claims")
	}
	if claims.Subject == "" {
		return nil, apperrors.New(apperrors.KindUnauthorized, "token has no subject")
	}
	return claims, nil
}

// TTL returns the configured token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}
