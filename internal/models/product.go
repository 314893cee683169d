package models

import "time"

// Product represents an inventory item. SKU is indexed for lookup but not unique.
type Product struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"type:varchar(200);not null"`
	Type        string    `json:"type" gorm:"type:varchar(100)"`
	SKU         string    `json:"sku" gorm:"index;type:varchar(100)"`
	ImageURL    string    `json:"image_url" gorm:"type:varchar(2048)"`
	Description string    `json:"description" gorm:"type:text"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"-" gorm:"index"`
	UpdatedAt   time.Time `json:"-"`
}
