package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"inventory/internal/auth"
	"inventory/internal/config"
	"inventory/internal/handlers"
	"inventory/internal/observability"
	"inventory/internal/revocation"
	"inventory/internal/server"
	"inventory/internal/services"
	"inventory/internal/storage"
	"inventory/pkg/rabbitmq"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Auth.UsesDefaultSecret() && !cfg.App.IsDevelopment() {
		logger.Warn("SECRET_KEY is the built-in default; set a private value outside development",
			zap.String("env", cfg.App.Env))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run serves the API until ctx is cancelled or the listener fails, then shuts
// down and releases every backend.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// --- Initialize Store ---
	store, err := storage.Open(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	closers := []func(context.Context) error{store.Close}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](closeCtx); err != nil {
				logger.Error("error releasing resource", zap.Error(err))
			}
		}
	}()

	report, err := store.EnsureSchema(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare schema: %w", err)
	}
	logger.Info("store ready", zap.String("driver", store.Driver()), zap.Strings("schema", report))

	healthChecks := map[string]handlers.Pinger{"store": store}

	// --- Optional RabbitMQ publisher ---
	var publisher services.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		mqClient, err := rabbitmq.NewClient(cfg.RabbitMQ, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		closers = append(closers, func(context.Context) error { return mqClient.Close() })
		publisher = mqClient
	}

	// --- Optional Redis token denylist ---
	var denylist *revocation.Denylist
	if cfg.Redis.Addr != "" {
		denylist, err = revocation.Connect(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize token denylist: %w", err)
		}
		closers = append(closers, func(context.Context) error { return denylist.Close() })
		healthChecks["redis"] = denylist
	}

	// --- Initialize Services ---
	metrics := observability.NewMetrics()
	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenManager(cfg.Auth.SecretKey, cfg.Auth.Algorithm, cfg.Auth.AccessTokenTTL())
	if err != nil {
		return err
	}
	authService := services.NewAuthService(store.Users(), hasher, tokens, logger, metrics)
	productService := services.NewProductService(store.Products(), publisher, logger)

	// --- Initialize Fiber App ---
	app := server.New(server.Deps{
		Config:         cfg,
		Logger:         logger,
		Metrics:        metrics,
		AuthService:    authService,
		ProductService: productService,
		Denylist:       denylist,
		HealthChecks:   healthChecks,
	})

	// --- Start HTTP Server ---
	listenErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.App.Port), zap.String("env", cfg.App.Env))
		listenErr <- app.Listen(cfg.App.Port)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("error during Fiber shutdown", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
	return nil
}
