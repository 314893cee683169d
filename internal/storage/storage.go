package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"inventory/internal/config"
	"inventory/internal/models"
	"inventory/internal/repositories"
)

const connectTimeout = 10 * time.Second

// Store is the handle to the backing store. It is opened once on startup,
// handed to the components that need repositories, and closed on shutdown.
type Store struct {
	driver   string
	users    repositories.UserRepository
	products repositories.ProductRepository

	mongoClient *mongo.Client
	mongoDB     *mongo.Database
	gormDB      *gorm.DB

	logger *zap.Logger
}

// Open connects to the configured backend and verifies it is reachable.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		return openMongo(ctx, cfg, logger)
	case config.DriverPostgres:
		return openGORM(ctx, cfg.Driver, postgres.Open(cfg.DSN), logger)
	case config.DriverSQLite:
		return openGORM(ctx, cfg.Driver, sqlite.Open(cfg.DSN), logger)
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return &Store{
			driver:   config.DriverMemory,
			users:    repositories.NewMemoryUserRepository(),
			products: repositories.NewMemoryProductRepository(),
			logger:   logger,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func openMongo(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(cfg.DatabaseName)
	logger.Info("connected to mongodb", zap.String("database", cfg.DatabaseName))

	return &Store{
		driver:      config.DriverMongo,
		users:       repositories.NewMongoUserRepository(db),
		products:    repositories.NewMongoProductRepository(db),
		mongoClient: client,
		mongoDB:     db,
		logger:      logger,
	}, nil
}

func openGORM(ctx context.Context, driver string, dialector gorm.Dialector, logger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access %s connection pool: %w", driver, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}

	logger.Info("connected to database", zap.String("driver", driver))

	return &Store{
		driver:   driver,
		users:    repositories.NewGORMUserRepository(db),
		products: repositories.NewGORMProductRepository(db),
		gormDB:   db,
		logger:   logger,
	}, nil
}

// Driver returns the backend name.
func (s *Store) Driver() string {
	return s.driver
}

// Users returns the credential repository.
func (s *Store) Users() repositories.UserRepository {
	return s.users
}

// Products returns the product repository.
func (s *Store) Products() repositories.ProductRepository {
	return s.products
}

// EnsureSchema creates indexes (MongoDB) or migrates tables (GORM). It is
// idempotent and returns a human readable description of what it ensured.
func (s *Store) EnsureSchema(ctx context.Context) ([]string, error) {
	switch {
	case s.mongoDB != nil:
		return ensureMongoIndexes(ctx, s.mongoDB)
	case s.gormDB != nil:
		if err := s.gormDB.WithContext(ctx).AutoMigrate(&models.User{}, &models.Product{}); err != nil {
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
		return []string{
			"table users (username unique)",
			"table products (sku indexed)",
		}, nil
	default:
		return []string{"in-memory store, nothing to create"}, nil
	}
}

func ensureMongoIndexes(ctx context.Context, db *mongo.Database) ([]string, error) {
	users := db.Collection(repositories.UsersCollection)
	name, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("username_unique"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create users.username index: %w", err)
	}
	report := []string{fmt.Sprintf("%s.%s (unique)", repositories.UsersCollection, name)}

	products := db.Collection(repositories.ProductsCollection)
	name, err = products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sku", Value: 1}},
		Options: options.Index().SetName("sku"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create products.sku index: %w", err)
	}
	report = append(report, fmt.Sprintf("%s.%s", repositories.ProductsCollection, name))
	return report, nil
}

// Ping verifies the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	switch {
	case s.mongoClient != nil:
		return s.mongoClient.Ping(ctx, readpref.Primary())
	case s.gormDB != nil:
		sqlDB, err := s.gormDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	default:
		return nil
	}
}

// Close releases the backend connection.
func (s *Store) Close(ctx context.Context) error {
	var errs []error
	if s.mongoClient != nil {
		if err := s.mongoClient.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to disconnect mongodb: %w", err))
		}
	}
	if s.gormDB != nil {
		sqlDB, err := s.gormDB.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", s.driver, err))
		}
	}
	return errors.Join(errs...)
}
