package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"inventory/internal/apperrors"
	"inventory/internal/models"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
// Products are listed in insertion order.
type MemoryProductRepository struct {
	products map[string]models.Product
	order    []string
	mu       sync.RWMutex
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products: make(map[string]models.Product),
	}
}

// Create adds a new product under a fresh UUID.
func (r *MemoryProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	product.ID = uuid.NewString()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.products[product.ID] = *product
	r.order = append(r.order, product.ID)
	return nil
}

// List returns a page of products in insertion order.
func (r *MemoryProductRepository) List(_ context.Context, filter ProductFilter) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]models.Product, 0)
	if filter.Limit <= 0 {
		return products, nil
	}

	skipped := 0
	for _, id := range r.order {
		p := r.products[id]
		if filter.SKU != "" && p.SKU != filter.SKU {
			continue
		}
		if skipped < filter.Skip {
			skipped++
			continue
		}
		products = append(products, p)
		if len(products) == filter.Limit {
			break
		}
	}
	return products, nil
}

// UpdateQuantity replaces the quantity of an existing product.
func (r *MemoryProductRepository) UpdateQuantity(_ context.Context, id string, quantity int) (*models.Product, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.NewMalformedIdentifier(id, err)
	}
	key := parsed.String()

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[key]
	if !ok {
		return nil, apperrors.NewNotFound("product", id)
	}
	product.Quantity = quantity
	product.UpdatedAt = time.Now().UTC()
	r.products[key] = product
	return &product, nil
}
