// Command initdb connects to the configured store, verifies it is reachable
// and creates the indexes or tables the API relies on. It is safe to run
// repeatedly.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"inventory/internal/config"
	"inventory/internal/observability"
	"inventory/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	report, err := initialize(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("database initialization failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	fmt.Printf("Initialized %s store:\n", cfg.Store.Driver)
	for _, item := range report {
		fmt.Printf("  - %s\n", item)
	}
}

func initialize(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) ([]string, error) {
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	if err := store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("store is not reachable: %w", err)
	}
	return store.EnsureSchema(ctx)
}
