// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/address"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/identity"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"github.com/your-org/storefront/internal/pkg/telemetry"
	"gorm.io/gorm"
)

var (
	ErrUnauthenticated = apperror.Unauthenticated("sign in to check out")
	ErrNotPending      = apperror.Conflict("order is no longer awaiting payment")
)

// CartReader is the part of the cart the checkout flow reads
type CartReader interface {
	Get(ctx context.Context, id identity.Identity) ([]cart.Line, error)
}

// Config holds checkout settings
type Config struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

// Result is what the buyer needs to continue to the payment page
type Result struct {
	Order       order.View `json:"order"`
	RedirectURL string     `json:"redirect_url"`
	SessionID   string     `json:"session_id"`
}

// Service turns a registered user's cart into a Pending order and starts a
// hosted payment session for it.
type Service struct {
	db       *gorm.DB
	carts    CartReader
	orders   *order.Service
	users    *user.Service
	provider payment.Provider
	cfg      Config
	logger   logrus.FieldLogger
	metrics  *telemetry.Metrics
}

// NewService creates a new checkout service
func NewService(
	db *gorm.DB,
	carts CartReader,
	orders *order.Service,
	users *user.Service,
	provider payment.Provider,
	cfg Config,
	logger logrus.FieldLogger,
	metrics *telemetry.Metrics,
) *Service {
	return &Service{
		db:       db,
		carts:    carts,
		orders:   orders,
		users:    users,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Checkout snapshots the cart into a Pending order, saves the shipping
// address on the user's profile and creates a payment session.
//
// When the provider fails the order stays Pending and the returned error
// carries its public id so the buyer can call RetryPayment.
func (s *Service) Checkout(ctx context.Context, id identity.Identity, shipping address.Address) (*Result, error) {
	s.metrics.CheckoutStart()

	userID, ok := id.UserID()
	if !ok || !id.Valid() {
		s.metrics.CheckoutReject("unauthenticated")
		return nil, ErrUnauthenticated
	}

	shipping = shipping.Normalize()
	if err := address.Validate(shipping); err != nil {
		s.metrics.CheckoutReject("invalid_address")
		return nil, err
	}

	lines, err := s.carts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		s.metrics.CheckoutReject("empty_cart")
		return nil, order.ErrEmptyCart
	}

	var created *order.Order
	var email string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)

		profile, err := users.GetProfile(ctx, userID)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				return user.ErrMissingUser.WithDetail("user_id", userID)
			}
			return err
		}
		email = profile.Email

		if err := users.SaveShippingAddress(ctx, userID, shipping); err != nil {
			return err
		}

		created, err = s.orders.WithTx(tx).CreatePending(ctx, order.NewOrder{
			UserID:          userID,
			Lines:           order.SnapshotLines(lines),
			ShippingAddress: shipping,
			Provider:        s.provider.Name(),
			Currency:        s.cfg.Currency,
		})
		return err
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.KindUser {
			s.metrics.CheckoutReject("invalid_cart")
		}
		return nil, err
	}

	result, err := s.startPayment(ctx, created, email)
	if err != nil {
		return nil, err
	}

	s.metrics.CheckoutComplete()
	return result, nil
}

// RetryPayment creates a fresh payment session for a Pending order owned
// by userID.
func (s *Service) RetryPayment(ctx context.Context, userID uint, publicID string) (*Result, error) {
	o, err := s.orders.GetForUser(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus != order.PaymentStatusPending {
		return nil, ErrNotPending.WithDetail("status", string(o.PaymentStatus))
	}

	var email string
	if profile, err := s.users.GetProfile(ctx, userID); err == nil {
		email = profile.Email
	}

	return s.startPayment(ctx, o, email)
}

// Prefill returns the shipping address on file for the checkout form
func (s *Service) Prefill(ctx context.Context, userID uint) (address.Address, error) {
	return s.users.GetShippingAddress(ctx, userID)
}

// PaymentStatus reports where an order stands. It backs the page the buyer
// lands on after the provider redirect and never changes the order.
func (s *Service) PaymentStatus(ctx context.Context, userID uint, publicID string) (*order.View, error) {
	o, err := s.orders.GetForUser(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	view := o.ToView()
	return &view, nil
}

// startPayment runs with no transaction open
func (s *Service) startPayment(ctx context.Context, o *order.Order, email string) (*Result, error) {
	publicID := o.PublicID.String()

	successURL, err := withOrderParam(s.cfg.SuccessURL, publicID)
	if err != nil {
		return nil, err
	}

	items := make([]payment.LineItem, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, payment.LineItem{
			Name:       l.Name,
			UnitAmount: l.UnitPrice,
			Quantity:   int64(l.Quantity),
		})
	}

	session, err := s.provider.CreateSession(ctx, payment.SessionRequest{
		CorrelationID:   publicID,
		LineItems:       items,
		TotalMinorUnits: o.Total,
		Currency:        o.Currency,
		SuccessURL:      successURL,
		CancelURL:       s.cfg.CancelURL,
		CustomerEmail:   email,
	})
	if err != nil {
		s.metrics.PaymentSession(s.provider.Name(), false)
		s.logger.WithError(err).WithField("order_id", publicID).Error("Failed to create payment session")
		return nil, providerError(err).WithDetail("order_id", publicID)
	}
	s.metrics.PaymentSession(s.provider.Name(), true)

	if err := s.orders.RecordPaymentSession(ctx, o.ID, session.ID); err != nil {
		// the session exists at the provider; its events still resolve by public id
		s.logger.WithError(err).WithField("order_id", publicID).Warn("Failed to record payment session")
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":   publicID,
		"user_id":    o.UserID,
		"session_id": session.ID,
	}).Info("Payment session created")

	return &Result{
		Order:       o.ToView(),
		RedirectURL: session.RedirectURL,
		SessionID:   session.ID,
	}, nil
}

func providerError(err error) *apperror.Error {
	if appErr := apperror.As(err); appErr != nil && appErr.Code() == apperror.CodeProvider {
		return appErr
	}
	return apperror.Wrap(apperror.CodeProvider, err, payment.ErrSessionCreation.Message())
}

func withOrderParam(rawURL, publicID string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid success url: %w", err)
	}
	q := u.Query()
	q.Set("order", publicID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
