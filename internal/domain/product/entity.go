// internal/domain/product/entity.go
package product

import (
	"time"
)

// Product is the catalog entry the cart and reconciliation flow depend on.
// Catalog administration lives elsewhere; this service only reads products
// and applies stock decrements for paid orders.
type Product struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SKU           string    `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name          string    `gorm:"not null;size:255" json:"name"`
	Price         int64     `gorm:"not null" json:"price"` // Price in cents
	StockQuantity int       `gorm:"not null;default:0" json:"stock_quantity"`
	IsActive      bool      `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Product) TableName() string {
	return "products"
}

// InStock reports whether any units remain
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}
