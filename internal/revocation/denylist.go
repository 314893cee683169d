package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"inventory/internal/config"
)

const keyPrefix = "inventory:revoked:"

// Denylist records revoked token ids in Redis until the token would have
// expired anyway. Token validation itself stays stateless; the denylist is an
// extra check layered in front of protected routes.
type Denylist struct {
	client *redis.Client
	now    func() time.Time
}

// NewDenylist wraps an existing client.
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client, now: time.Now}
}

// Connect creates a client from configuration and pings it.
func Connect(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Denylist, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	return NewDenylist(client), nil
}

// Revoke denies tokenID until expiresAt. Tokens that already expired are ignored.
func (d *Denylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return errors.New("token has no id")
	}
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, keyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID has been revoked.
func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return n > 0, nil
}

// Ping verifies Redis connectivity.
func (d *Denylist) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Close closes the client.
func (d *Denylist) Close() error {
	return d.client.Close()
}
