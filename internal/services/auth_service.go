package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"inventory/internal/apperrors"
	"inventory/internal/auth"
	"inventory/internal/models"
	"inventory/internal/observability"
	"inventory/internal/repositories"
)

// AccessToken is the result of a successful login.
type AccessToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Identity is the caller recovered from a valid bearer token.
type Identity struct {
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

// AuthService handles registration, login and token validation.
type AuthService struct {
	userRepo repositories.UserRepository
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenManager
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewAuthService creates a new AuthService. metrics may be nil.
func NewAuthService(
	userRepo repositories.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenManager,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger,
		metrics:  metrics,
	}
}

// Register stores a new credential. It fails with ErrDuplicateUsername when
// the username is already taken.
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	existing, err := s.userRepo.GetByUsername(ctx, username)
	switch {
	case err == nil && existing != nil:
		return apperrors.ErrDuplicateUsername
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	user := &models.User{Username: username, PasswordHash: hash}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateUsername) {
			return apperrors.ErrDuplicateUsername
		}
		return fmt.Errorf("failed to register user: %w", err)
	}

	s.metrics.RecordAuthEvent(observability.AuthEventRegister)
	s.logger.Info("user registered", zap.String("username", username))
	return nil
}

// Login verifies the credentials and issues an access token. Unknown users
// and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AccessToken, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.hasher.CompareDummy(password)
			return nil, s.loginFailed(username, "unknown user")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, s.loginFailed(username, "password mismatch")
	}

	token, expiresAt, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAuthEvent(observability.AuthEventLoginSuccess)
	return &AccessToken{
		AccessToken: token,
		TokenType:   auth.TokenType,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *AuthService) loginFailed(username, reason string) error {
	s.metrics.RecordAuthEvent(observability.AuthEventLoginFailure)
	s.logger.Info("login failed", zap.String("username", username), zap.String("reason", reason))
	return apperrors.ErrInvalidCredentials
}

// ValidateToken returns the identity carried by a bearer token. All failure
// modes are reported as ErrUnauthorized; the reason is only logged.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*Identity, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		s.metrics.RecordAuthEvent(observability.AuthEventTokenRejected)
		s.logger.Debug("token rejected", zap.Error(err))
		return nil, apperrors.ErrUnauthorized
	}

	identity := &Identity{
		Username: claims.Subject,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}
