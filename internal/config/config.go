package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSecretKey is the signing secret used when SECRET_KEY is not set.
const DefaultSecretKey = "your-super-secret-key"

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Store      StoreConfig
	Auth       AuthConfig
	Log        LogConfig
	Pagination PaginationConfig
	RabbitMQ   RabbitMQConfig
	Redis      RedisConfig
	Stock      StockConfig
}

// AppConfig controls the HTTP server.
type AppConfig struct {
	Port                  string
	Env                   string
	RequestTimeoutSeconds int
	CORSAllowOrigins      string
}

// StoreConfig selects and locates the backing store.
type StoreConfig struct {
	Driver       string
	MongoURL     string
	DatabaseName string
	DSN          string
}

// AuthConfig holds token and password hashing parameters.
type AuthConfig struct {
	SecretKey                string
	Algorithm                string
	AccessTokenExpireMinutes int
	BcryptCost               int
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string
}

// PaginationConfig bounds GET /products.
type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// RabbitMQConfig enables product events when URL is set.
type RabbitMQConfig struct {
	URL   string
	Queue string
}

// RedisConfig enables the token denylist when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StockConfig is read by the stock watcher.
type StockConfig struct {
	LowStockThreshold int
}

// Load reads configuration from the environment (and an optional .env file),
// applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	return FromViper(v)
}

// SetDefaults registers every known key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_REQUEST_TIMEOUT_SECONDS", 15)
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")

	v.SetDefault("STORE_DRIVER", DriverMongo)
	v.SetDefault("MONGODB_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "inventory_db")
	v.SetDefault("DATABASE_DSN", "file:inventory.db?cache=shared")

	v.SetDefault("SECRET_KEY", DefaultSecretKey)
	v.SetDefault("ALGORITHM", "HS256")
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 30)
	v.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)

	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("PAGINATION_DEFAULT_LIMIT", 100)
	v.SetDefault("PAGINATION_MAX_LIMIT", 1000)

	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_QUEUE", "product_events")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOW_STOCK_THRESHOLD", 5)
}

// FromViper builds and validates a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Port:                  v.GetString("APP_PORT"),
			Env:                   v.GetString("APP_ENV"),
			RequestTimeoutSeconds: v.GetInt("HTTP_REQUEST_TIMEOUT_SECONDS"),
			CORSAllowOrigins:      v.GetString("CORS_ALLOW_ORIGINS"),
		},
		Store: StoreConfig{
			Driver:       strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
			MongoURL:     v.GetString("MONGODB_URL"),
			DatabaseName: v.GetString("DATABASE_NAME"),
			DSN:          v.GetString("DATABASE_DSN"),
		},
		Auth: AuthConfig{
			SecretKey:                v.GetString("SECRET_KEY"),
			Algorithm:                strings.ToUpper(strings.TrimSpace(v.GetString("ALGORITHM"))),
			AccessTokenExpireMinutes: v.GetInt("ACCESS_TOKEN_EXPIRE_MINUTES"),
			BcryptCost:               v.GetInt("BCRYPT_COST"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Pagination: PaginationConfig{
			DefaultLimit: v.GetInt("PAGINATION_DEFAULT_LIMIT"),
			MaxLimit:     v.GetInt("PAGINATION_MAX_LIMIT"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   v.GetString("RABBITMQ_URL"),
			Queue: v.GetString("RABBITMQ_QUEUE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Stock: StockConfig{
			LowStockThreshold: v.GetInt("LOW_STOCK_THRESHOLD"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMongo:
		if c.Store.MongoURL == "" || c.Store.DatabaseName == "" {
			return fmt.Errorf("MONGODB_URL and DATABASE_NAME are required for the mongo driver")
		}
	case DriverPostgres, DriverSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for the %s driver", c.Store.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Auth.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY must not be empty")
	}
	switch c.Auth.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported ALGORITHM %q", c.Auth.Algorithm)
	}
	if c.Auth.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", c.Auth.AccessTokenExpireMinutes)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if c.Pagination.DefaultLimit <= 0 || c.Pagination.MaxLimit <= 0 {
		return fmt.Errorf("pagination limits must be positive")
	}
	if c.Pagination.DefaultLimit > c.Pagination.MaxLimit {
		return fmt.Errorf("PAGINATION_DEFAULT_LIMIT (%d) exceeds PAGINATION_MAX_LIMIT (%d)",
			c.Pagination.DefaultLimit, c.Pagination.MaxLimit)
	}
	return nil
}

// AccessTokenTTL returns the configured token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

// RequestTimeout returns the per-request deadline, or zero when disabled.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// IsDevelopment reports whether the service runs in development mode.
func (a AppConfig) IsDevelopment() bool {
	return a.Env == "" || strings.EqualFold(a.Env, "development")
}

// UsesDefaultSecret reports whether the signing secret was left at its default.
func (a AuthConfig) UsesDefaultSecret() bool {
	return a.SecretKey == DefaultSecretKey
}
