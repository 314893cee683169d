package repositories

import (
	"context"

	"inventory/internal/models"
)

// ProductFilter selects a page of products. An empty SKU matches every product.
type ProductFilter struct {
	Skip  int
	Limit int
	SKU   string
}

// ProductRepository defines the interface for product data access.
//
// Identifier formats are owned by each implementation; an id the
// implementation cannot parse yields apperrors.ErrMalformedIdentifier and a
// well-formed but unknown id yields apperrors.ErrNotFound.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	UpdateQuantity(ctx context.Context, id string, quantity int) (*models.Product, error)
}
