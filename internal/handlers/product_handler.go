package handlers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"inventory/internal/config"
	"inventory/internal/models"
	"inventory/internal/repositories"
	"inventory/internal/services"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	productService *services.ProductService
	pagination     config.PaginationConfig
	validate       *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(productService *services.ProductService, pagination config.PaginationConfig) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		pagination:     pagination,
		validate:       newValidator(),
	}
}

// RegisterRoutes registers the product routes. Every route requires a valid
// bearer token.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	productRoutes := router.Group("/products", requireAuth)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Put("/:id/quantity", h.HandleUpdateQuantity)
}

// ProductRequest represents the request body for creating a product.
type ProductRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Type        string   `json:"type" validate:"max=100"`
	SKU         string   `json:"sku" validate:"required,max=100"`
	ImageURL    string   `json:"image_url" validate:"max=2048"`
	Description string   `json:"description" validate:"max=5000"`
	Quantity    *int     `json:"quantity" validate:"required"`
	Price       *float64 `json:"price" validate:"required"`
}

func (r ProductRequest) toModel() *models.Product {
	return &models.Product{
		Name:        r.Name,
		Type:        r.Type,
		SKU:         r.SKU,
		ImageURL:    r.ImageURL,
		Description: r.Description,
		Quantity:    *r.Quantity,
		Price:       *r.Price,
	}
}

// HandleCreateProduct stores a new product and returns its id.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	if err := validateStruct(h.validate, req); err != nil {
		return err
	}

	id, err := h.productService.CreateProduct(c.UserContext(), req.toModel())
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"product_id": id})
}

// ListProductsQuery holds the query parameters of GET /products.
type ListProductsQuery struct {
	Skip  int    `query:"skip" validate:"gte=0"`
	Limit *int   `query:"limit" validate:"omitempty,gte=0"`
	SKU   string `query:"sku" validate:"max=100"`
}

// HandleListProducts returns one page of products.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	var query ListProductsQuery
	if err := c.QueryParser(&query); err != nil {
		return invalidQuery(err)
	}
	if err := validateStruct(h.validate, query); err != nil {
		return err
	}

	limit := h.pagination.DefaultLimit
	if query.Limit != nil {
		limit = *query.Limit
	}
	if limit > h.pagination.MaxLimit {
		limit = h.pagination.MaxLimit
	}

	products, err := h.productService.ListProducts(c.UserContext(), repositories.ProductFilter{
		Skip:  query.Skip,
		Limit: limit,
		SKU:   strings.TrimSpace(query.SKU),
	})
	if err != nil {
		return err
	}

	return c.JSON(products)
}

// QuantityUpdateRequest represents the request body for a quantity update.
type QuantityUpdateRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// HandleUpdateQuantity replaces the quantity of a product.
func (h *ProductHandler) HandleUpdateQuantity(c *fiber.Ctx) error {
	var req QuantityUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	if err := validateStruct(h.validate, req); err != nil {
		return err
	}

	product, err := h.productService.UpdateQuantity(c.UserContext(), c.Params("id"), *req.Quantity)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"id":       product.ID,
		"quantity": product.Quantity,
	})
}
