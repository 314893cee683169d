package stockwatch

import (
	"sync"

	"go.uber.org/zap"

	"inventory/internal/models"
)

// Watcher flags products whose quantity drops below a threshold.
type Watcher struct {
	threshold int
	logger    *zap.Logger

	mu  sync.Mutex
	low map[string]bool
}

// NewWatcher creates a Watcher. Quantities strictly below threshold are low.
func NewWatcher(threshold int, logger *zap.Logger) *Watcher {
	return &Watcher{
		threshold: threshold,
		logger:    logger,
		low:       make(map[string]bool),
	}
}

// HandleEvent records the product's latest quantity. A warning is logged when
// a product becomes low on stock and an info line when it recovers.
func (w *Watcher) HandleEvent(event models.ProductEvent) error {
	isLow := event.Quantity < w.threshold

	w.mu.Lock()
	wasLow := w.low[event.ProductID]
	if isLow {
		w.low[event.ProductID] = true
	} else {
		delete(w.low, event.ProductID)
	}
	w.mu.Unlock()

	fields := []zap.Field{
		zap.String("product_id", event.ProductID),
		zap.String("sku", event.SKU),
		zap.String("name", event.Name),
		zap.Int("quantity", event.Quantity),
		zap.Int("threshold", w.threshold),
	}
	switch {
	case isLow && !wasLow:
		w.logger.Warn("product low on stock", fields...)
	case !isLow && wasLow:
		w.logger.Info("product restocked", fields...)
	}
	return nil
}

// LowStock returns the ids of products currently below the threshold.
func (w *Watcher) LowStock() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.low))
	for id := range w.low {
		ids = append(ids, id)
	}
	return ids
}
