package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"inventory/internal/models"
	"inventory/internal/repositories"
)

// EventPublisher delivers product events to interested consumers.
type EventPublisher interface {
	PublishProductEvent(ctx context.Context, event models.ProductEvent) error
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo      repositories.ProductRepository
	publisher EventPublisher
	logger    *zap.Logger
}

// NewProductService creates a new ProductService. publisher may be nil, in
// which case no events are emitted.
func NewProductService(repo repositories.ProductRepository, publisher EventPublisher, logger *zap.Logger) *ProductService {
	return &ProductService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateProduct stores product and returns its new identifier.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) (string, error) {
	if err := s.repo.Create(ctx, product); err != nil {
		return "", err
	}
	s.publish(ctx, models.EventProductCreated, product)
	return product.ID, nil
}

// ListProducts returns one page of products.
func (s *ProductService) ListProducts(ctx context.Context, filter repositories.ProductFilter) ([]models.Product, error) {
	return s.repo.List(ctx, filter)
}

// UpdateQuantity replaces the quantity of the product with the given id.
func (s *ProductService) UpdateQuantity(ctx context.Context, id string, quantity int) (*models.Product, error) {
	product, err := s.repo.UpdateQuantity(ctx, id, quantity)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.EventProductQuantityUpdated, product)
	return product, nil
}

// publish never fails the calling operation; delivery problems are logged.
func (s *ProductService) publish(ctx context.Context, eventType string, product *models.Product) {
	if s.publisher == nil {
		return
	}
	event := models.NewProductEvent(eventType, product, time.Now())
	if err := s.publisher.PublishProductEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish product event",
			zap.String("type", eventType),
			zap.String("product_id", product.ID),
			zap.Error(err))
	}
}
