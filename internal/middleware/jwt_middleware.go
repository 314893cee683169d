package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"inventory/internal/apperrors"
	"inventory/internal/services"
)

const identityKey = "identity"

// TokenValidator resolves a bearer token to the caller's identity.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*services.Identity, error)
}

// RevocationChecker reports whether a token id was revoked before expiry.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token. revoked
// may be nil when no denylist is configured.
func AuthRequired(validator TokenValidator, revoked RevocationChecker, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperrors.New(apperrors.KindUnauthorized, "not authenticated")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return apperrors.New(apperrors.KindUnauthorized, "not authenticated")
		}

		identity, err := validator.ValidateToken(c.UserContext(), strings.TrimSpace(parts[1]))
		if err != nil {
			return apperrors.ErrUnauthorized
		}

		if revoked != nil && identity.TokenID != "" {
			isRevoked, err := revoked.IsRevoked(c.UserContext(), identity.TokenID)
			if err != nil {
				logger.Error("revocation check failed", zap.Error(err))
				return apperrors.NewInternal(err)
			}
			if isRevoked {
				return apperrors.ErrUnauthorized
			}
		}

		c.Locals(identityKey, identity)
		c.Locals("username", identity.Username)

		return c.Next()
	}
}

// IdentityFromContext returns the identity stored by AuthRequired.
func IdentityFromContext(c *fiber.Ctx) (*services.Identity, bool) {
	identity, ok := c.Locals(identityKey).(*services.Identity)
	return identity, ok && identity != nil
}
