// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/address"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"github.com/your-org/storefront/internal/pkg/telemetry"
	"gorm.io/gorm"
)

var (
	ErrEmptyCart          = apperror.Validation("cart is empty")
	ErrInvalidLine        = apperror.Validation("order line is invalid")
	ErrOrderNotFound      = apperror.NotFound("order not found")
	ErrMissingOrder       = apperror.Integrity("referenced order does not exist")
	ErrInvalidTransaction = apperror.Validation("transaction id is required")
	ErrConflictingPayment = apperror.Conflict("order already paid with a different transaction")
	ErrInvalidTransition  = apperror.Conflict("order status does not allow this transition")
	ErrConcurrentUpdate   = apperror.Conflict("order was modified concurrently, try again")
)

// Service is the order ledger
type Service struct {
	db      *gorm.DB
	logger  logrus.FieldLogger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewService creates a new order service
func NewService(db *gorm.DB, logger logrus.FieldLogger, metrics *telemetry.Metrics) *Service {
	return &Service{
		db:      db,
		logger:  logger,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithTx returns a ledger bound to tx
func (s *Service) WithTx(tx *gorm.DB) *Service {
	clone := *s
	clone.db = tx
	return &clone
}

// NewOrder carries everything CreatePending needs
type NewOrder struct {
	UserID          uint
	Lines           []Line
	ShippingAddress address.Address
	Provider        string
	Currency        string
}

// ListRequest represents order list query parameters
type ListRequest struct {
	Page   int           `form:"page,default=1"`
	Limit  int           `form:"limit,default=20"`
	Status PaymentStatus `form:"status"`
}

// ListResponse represents paginated orders
type ListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// CreatePending records a new Pending order with a fresh public id. The
// order and its lines are written in one transaction.
func (s *Service) CreatePending(ctx context.Context, req NewOrder) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	for _, l := range req.Lines {
		if l.Quantity < 1 || l.UnitPrice < 0 || l.ProductID == 0 {
			return nil, ErrInvalidLine.WithDetail("product_id", l.ProductID)
		}
	}

	lines := make([]Line, len(req.Lines))
	copy(lines, req.Lines)
	for i := range lines {
		lines[i].ID = 0
		lines[i].OrderID = 0
	}

	order := Order{
		PublicID:        uuid.New(),
		UserID:          req.UserID,
		Total:           TotalOf(lines),
		Currency:        req.Currency,
		PaymentStatus:   PaymentStatusPending,
		PaymentProvider: req.Provider,
		ShippingAddress: req.ShippingAddress.Normalize(),
		Lines:           lines,
	}

	// Start transaction
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := tx.Omit("Lines").Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
	}
	if err := tx.Create(&order.Lines).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create order lines: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit order transaction: %w", err)
	}

	s.metrics.OrderCreated(order.Total)
	s.logger.WithFields(logrus.Fields{
		"order_id": order.PublicID.String(),
		"user_id":  order.UserID,
		"total":    order.Total,
		"lines":    len(order.Lines),
	}).Info("Order created")

	return &order, nil
}

// GetByID retrieves an order with its lines by internal id
func (s *Service) GetByID(ctx context.Context, id uint) (*Order, error) {
	return s.first(ctx, "id = ?", id)
}

// GetByPublicID retrieves an order with its lines by public id
func (s *Service) GetByPublicID(ctx context.Context, publicID string) (*Order, error) {
	parsed, err := uuid.Parse(publicID)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	return s.first(ctx, "public_id = ?", parsed)
}

// GetForUser retrieves an order only if userID owns it
func (s *Service) GetForUser(ctx context.Context, userID uint, publicID string) (*Order, error) {
	order, err := s.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// MarkPaid moves a Pending order to Paid with transactionID. It is
// idempotent: repeating it with the same transaction returns applied=false
// and no error. A different transaction on a Paid order is
// ErrConflictingPayment; Failed and Cancelled orders are ErrInvalidTransition.
func (s *Service) MarkPaid(ctx context.Context, orderID uint, transactionID string) (*Order, bool, error) {
	if transactionID == "" {
		return nil, false, ErrInvalidTransaction
	}

	// a lost compare-and-swap means another writer moved the order out of
	// Pending, so the second pass always resolves
	for attempt := 0; attempt < 2; attempt++ {
		order, err := s.GetByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return nil, false, ErrMissingOrder.WithDetail("order_id", orderID)
			}
			return nil, false, err
		}

		switch order.PaymentStatus {
		case PaymentStatusPaid:
			if order.TransactionID == transactionID {
				return order, false, nil
			}
			return order, false, ErrConflictingPayment.WithDetail("order_id", order.PublicID.String())
		case PaymentStatusFailed, PaymentStatusCancelled:
			return order, false, ErrInvalidTransition.WithDetail("status", string(order.PaymentStatus))
		}

		now := s.now()
		result := s.db.WithContext(ctx).Model(&Order{}).
			Where("id = ? AND payment_status = ?", orderID, PaymentStatusPending).
			Updates(map[string]interface{}{
				"payment_status": PaymentStatusPaid,
				"transaction_id": transactionID,
				"paid_at":        now,
			})
		if result.Error != nil {
			return nil, false, fmt.Errorf("failed to mark order paid: %w", result.Error)
		}
		if result.RowsAffected == 1 {
			order.PaymentStatus = PaymentStatusPaid
			order.TransactionID = transactionID
			order.PaidAt = &now
			return order, true, nil
		}
	}

	return nil, false, ErrConcurrentUpdate.WithDetail("order_id", orderID)
}

// MarkFailed moves a Pending order to Failed. An order already Failed
// returns applied=false.
func (s *Service) MarkFailed(ctx context.Context, orderID uint) (*Order, bool, error) {
	return s.transition(ctx, orderID, PaymentStatusFailed)
}

// Cancel moves a Pending order to Cancelled. An order already Cancelled
// returns applied=false.
func (s *Service) Cancel(ctx context.Context, orderID uint) (*Order, bool, error) {
	return s.transition(ctx, orderID, PaymentStatusCancelled)
}

func (s *Service) transition(ctx context.Context, orderID uint, to PaymentStatus) (*Order, bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		order, err := s.GetByID(ctx, orderID)
		if err != nil {
			return nil, false, err
		}

		if order.PaymentStatus == to {
			return order, false, nil
		}
		if order.PaymentStatus != PaymentStatusPending {
			return order, false, ErrInvalidTransition.WithDetail("status", string(order.PaymentStatus))
		}

		result := s.db.WithContext(ctx).Model(&Order{}).
			Where("id = ? AND payment_status = ?", orderID, PaymentStatusPending).
			Update("payment_status", to)
		if result.Error != nil {
			return nil, false, fmt.Errorf("failed to update order status: %w", result.Error)
		}
		if result.RowsAffected == 1 {
			order.PaymentStatus = to
			s.logger.WithFields(logrus.Fields{
				"order_id": order.PublicID.String(),
				"status":   to,
			}).Info("Order status updated")
			return order, true, nil
		}
	}

	return nil, false, ErrConcurrentUpdate.WithDetail("order_id", orderID)
}

// RecordPaymentSession stores the latest provider session id on a Pending order
func (s *Service) RecordPaymentSession(ctx context.Context, orderID uint, sessionID string) error {
	result := s.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND payment_status = ?", orderID, PaymentStatusPending).
		Update("payment_session_id", sessionID)
	if result.Error != nil {
		return fmt.Errorf("failed to record payment session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// ListForUser retrieves a user's orders, newest first
func (s *Service) ListForUser(ctx context.Context, userID uint, req ListRequest) (*ListResponse, error) {
	return s.list(ctx, s.db.WithContext(ctx).Model(&Order{}).Where("user_id = ?", userID), req)
}

// ListAll retrieves every order, newest first
func (s *Service) ListAll(ctx context.Context, req ListRequest) (*ListResponse, error) {
	return s.list(ctx, s.db.WithContext(ctx).Model(&Order{}), req)
}

func (s *Service) list(ctx context.Context, query *gorm.DB, req ListRequest) (*ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Status != "" {
		query = query.Where("payment_status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	offset := (req.Page - 1) * req.Limit
	if err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(req.Limit).
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

func (s *Service) first(ctx context.Context, query string, args ...interface{}) (*Order, error) {
	var order Order
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where(query, args...).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &order, nil
}
