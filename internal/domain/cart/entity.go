// internal/domain/cart/entity.go
package cart

import (
	"time"
)

// Line is one product in a cart. UnitPrice is the price captured when the
// product was last added; it is what the order snapshot freezes.
type Line struct {
	ProductID uint      `json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice int64     `json:"unit_price"` // cents
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// Subtotal returns UnitPrice x Quantity
func (l Line) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Cart is the persistent cart row of a registered user
type Cart struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Cart) TableName() string {
	return "carts"
}

// CartItem is a line of a persistent cart, unique per (cart, product)
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_items_cart_product" json:"cart_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_items_cart_product;index" json:"product_id"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	UnitPrice int64     `gorm:"not null" json:"unit_price"` // Price at time of adding
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

func (i CartItem) line() Line {
	return Line{
		ProductID: i.ProductID,
		Name:      i.Name,
		UnitPrice: i.UnitPrice,
		Quantity:  i.Quantity,
		AddedAt:   i.CreatedAt,
	}
}

// SessionCart represents a cart session for guest users (stored in Redis)
type SessionCart struct {
	SessionID string    `json:"session_id"`
	Items     []Line    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *SessionCart) find(productID uint) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *SessionCart) remove(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// View is the display projection of a cart
type View struct {
	Items             []Line `json:"items"`
	ItemCount         int    `json:"item_count"`
	Subtotal          int64  `json:"subtotal"`
	FormattedSubtotal string `json:"formatted_subtotal"`
	Currency          string `json:"currency"`
}

// CountOf sums line quantities
func CountOf(lines []Line) int {
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total
}

// SubtotalOf sums line subtotals
func SubtotalOf(lines []Line) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}
