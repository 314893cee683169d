package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inventory/internal/apperrors"
	"inventory/internal/models"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
// Identifiers are UUID strings.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// Create inserts a new product under a fresh UUID.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	product.ID = uuid.NewString()
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// List returns a page of products ordered by creation time.
func (r *GORMProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	products := make([]models.Product, 0)
	if filter.Limit <= 0 {
		return products, nil
	}

	query := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Offset(filter.Skip).
		Limit(filter.Limit)
	if filter.SKU != "" {
		query = query.Where("sku = ?", filter.SKU)
	}

	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// UpdateQuantity sets the quantity of one product and returns the updated row.
func (r *GORMProductRepository) UpdateQuantity(ctx context.Context, id string, quantity int) (*models.Product, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.NewMalformedIdentifier(id, err)
	}
	key := parsed.String()

	var product models.Product
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).
			Where("id = ?", key).
			Updates(map[string]interface{}{
				"quantity":   quantity,
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update product quantity: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NewNotFound("product", id)
		}
		if err := tx.First(&product, "id = ?", key).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFound("product", id)
			}
			return fmt.Errorf("failed to reload product %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}
