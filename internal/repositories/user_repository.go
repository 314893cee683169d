package repositories

import (
	"context"

	"inventory/internal/models"
)

// UserRepository defines the interface for credential data access.
// Create returns apperrors.ErrDuplicateUsername when the username is taken and
// GetByUsername returns apperrors.ErrNotFound for unknown usernames.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
