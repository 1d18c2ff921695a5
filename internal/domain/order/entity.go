// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/your-org/storefront/internal/domain/address"
	"github.com/your-org/storefront/internal/pkg/money"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

// Order is the ledger record of one purchase attempt. Total is computed
// once at creation from the line snapshot and never recomputed.
type Order struct {
	ID               uint            `gorm:"primaryKey" json:"-"`
	PublicID         uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"public_id"`
	UserID           uint            `gorm:"not null;index" json:"-"`
	Total            int64           `gorm:"not null" json:"total"` // In cents
	Currency         string          `gorm:"size:3;not null" json:"currency"`
	PaymentStatus    PaymentStatus   `gorm:"size:20;not null;index" json:"payment_status"`
	PaymentProvider  string          `gorm:"size:50;not null" json:"payment_provider"`
	PaymentSessionID string          `gorm:"size:255" json:"-"`
	TransactionID    string          `gorm:"size:255" json:"transaction_id,omitempty"`
	ShippingAddress  address.Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	Lines []Line `gorm:"foreignKey:OrderID" json:"lines"`
}

// Line is an immutable snapshot of one cart line at order creation
type Line struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	OrderID   uint   `gorm:"not null;index" json:"-"`
	ProductID uint   `gorm:"not null;index" json:"product_id"`
	Name      string `gorm:"not null;size:255" json:"name"`
	Quantity  int    `gorm:"not null" json:"quantity"`
	UnitPrice int64  `gorm:"not null" json:"unit_price"` // Price per unit in cents
}

// TableName overrides
func (Order) TableName() string { return "orders" }
func (Line) TableName() string  { return "order_lines" }

// Subtotal returns UnitPrice x Quantity
func (l Line) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// View is the display projection of an order. It carries the public id
// only; the internal key never leaves the service.
type View struct {
	OrderID         string          `json:"order_id"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	Total           int64           `json:"total"`
	FormattedTotal  string          `json:"formatted_total"`
	Currency        string          `json:"currency"`
	PaymentProvider string          `json:"payment_provider"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	ShippingAddress address.Address `json:"shipping_address"`
	Lines           []LineView      `json:"lines"`
	CreatedAt       time.Time       `json:"created_at"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
}

// LineView is the display projection of an order line
type LineView struct {
	ProductID         uint   `json:"product_id"`
	Name              string `json:"name"`
	Quantity          int    `json:"quantity"`
	UnitPrice         int64  `json:"unit_price"`
	Subtotal          int64  `json:"subtotal"`
	FormattedSubtotal string `json:"formatted_subtotal"`
}

// ToView builds the display projection
func (o *Order) ToView() View {
	lines := make([]LineView, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = LineView{
			ProductID:         l.ProductID,
			Name:              l.Name,
			Quantity:          l.Quantity,
			UnitPrice:         l.UnitPrice,
			Subtotal:          l.Subtotal(),
			FormattedSubtotal: money.Format(l.Subtotal(), o.Currency),
		}
	}
	return View{
		OrderID:         o.PublicID.String(),
		PaymentStatus:   o.PaymentStatus,
		Total:           o.Total,
		FormattedTotal:  money.Format(o.Total, o.Currency),
		Currency:        o.Currency,
		PaymentProvider: o.PaymentProvider,
		TransactionID:   o.TransactionID,
		ShippingAddress: o.ShippingAddress,
		Lines:           lines,
		CreatedAt:       o.CreatedAt,
		PaidAt:          o.PaidAt,
	}
}

// Views projects a slice of orders
func Views(orders []Order) []View {
	views := make([]View, len(orders))
	for i := range orders {
		views[i] = orders[i].ToView()
	}
	return views
}
