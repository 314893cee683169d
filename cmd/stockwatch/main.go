// Command stockwatch consumes product events from RabbitMQ and logs a warning
// whenever a product's quantity drops below LOW_STOCK_THRESHOLD.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"inventory/internal/config"
	"inventory/internal/observability"
	"inventory/internal/stockwatch"
	"inventory/pkg/rabbitmq"
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

	if cfg.RabbitMQ.URL == "" {
		logger.Fatal("RABBITMQ_URL must be set for stockwatch")
	}

	client, err := rabbitmq.NewClient(cfg.RabbitMQ, logger)
	if err != nil {
		logger.Fatal("Failed to initialize RabbitMQ client", zap.Error(err))
	}
	defer client.Close()

	watcher := stockwatch.NewWatcher(cfg.Stock.LowStockThreshold, logger)
	if err := client.ConsumeProductEvents(watcher.HandleEvent); err != nil {
		logger.Fatal("Failed to start consumer", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("stockwatch running", zap.Int("threshold", cfg.Stock.LowStockThreshold))
	select {
	case <-ctx.Done():
		logger.Info("stockwatch stopping")
	case amqpErr := <-client.NotifyClose():
		logger.Error("RabbitMQ connection closed", zap.Any("error", amqpErr))
	}
}
