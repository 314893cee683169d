package models

import "time"

// Product event types published to the message broker.
const (
	EventProductCreated         = "product.created"
	EventProductQuantityUpdated = "product.quantity_updated"
)

// ProductEvent is the message body for product lifecycle events.
type ProductEvent struct {
	Type       string    `json:"type"`
	ProductID  string    `json:"product_id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewProductEvent builds an event describing p.
func NewProductEvent(eventType string, p *Product, at time.Time) ProductEvent {
	return ProductEvent{
		Type:       eventType,
		ProductID:  p.ID,
		SKU:        p.SKU,
		Name:       p.Name,
		Quantity:   p.Quantity,
		OccurredAt: at.UTC(),
	}
}
