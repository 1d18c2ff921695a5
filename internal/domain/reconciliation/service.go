// internal/domain/reconciliation/service.go
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"github.com/your-org/storefront/internal/pkg/telemetry"
	"gorm.io/gorm"
)

// Outcome describes what handling an event did
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeAlreadyApplied Outcome = "already_applied"
	OutcomeDuplicateEvent Outcome = "duplicate_event"
	OutcomeConflict       Outcome = "conflict"
	OutcomeIgnored        Outcome = "ignored"
	OutcomeFailedRecorded Outcome = "failed_recorded"
)

// EventGuard remembers provider event ids that were already handled.
// Seen reports whether id was marked; Mark records it once the event has
// been applied.
type EventGuard interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

const guardMarkTimeout = 2 * time.Second

// Config holds reconciliation settings
type Config struct {
	WebhookSecret string
}

// Service applies verified payment events to the order ledger. A confirmed
// payment marks the order Paid, decrements stock and deletes the buyer's
// cart as one unit of work.
type Service struct {
	db       *gorm.DB
	orders   *order.Service
	products *product.Service
	carts    *cart.Service
	provider payment.Provider
	guard    EventGuard
	cfg      Config
	logger   logrus.FieldLogger
	metrics  *telemetry.Metrics
}

// NewService creates a new reconciliation service. guard may be nil; the
// ledger's own idempotence still holds without it.
func NewService(
	db *gorm.DB,
	orders *order.Service,
	products *product.Service,
	carts *cart.Service,
	provider payment.Provider,
	guard EventGuard,
	cfg Config,
	logger logrus.FieldLogger,
	metrics *telemetry.Metrics,
) *Service {
	return &Service{
		db:       db,
		orders:   orders,
		products: products,
		carts:    carts,
		provider: provider,
		guard:    guard,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// HandleWebhook verifies payload and applies the event it carries. A
// verification failure returns payment.ErrVerification before any state
// is read or written.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (Outcome, error) {
	event, err := s.provider.VerifyAndParseEvent(payload, signatureHeader, s.cfg.WebhookSecret)
	if err != nil {
		s.metrics.Webhook("unverified")
		s.logger.WithError(err).Warn("Rejected unverified payment event")
		if !apperror.HasCode(err, apperror.CodeVerification) {
			err = apperror.Wrap(apperror.CodeVerification, err, payment.ErrVerification.Message())
		}
		return "", err
	}
	s.metrics.Webhook(event.ProviderType)

	log := s.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.ProviderType,
		"order_id":   event.CorrelationID,
	})

	if event.Type == payment.EventIgnored {
		if event.CorrelationID != "" {
			log.Info("Ignoring payment event")
		} else {
			log.Debug("Ignoring payment event")
		}
		s.metrics.Reconciled(string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}

	if s.guard != nil && event.ID != "" {
		seen, err := s.guard.Seen(ctx, event.ID)
		switch {
		case err != nil:
			log.WithError(err).Warn("Event guard unavailable, relying on ledger idempotency")
		case seen:
			log.Info("Duplicate payment event delivery")
			s.metrics.Reconciled(string(OutcomeDuplicateEvent))
			return OutcomeDuplicateEvent, nil
		}
	}

	// nothing is marked until the ledger has committed, so a failed or
	// interrupted delivery is always processed again on redelivery
	outcome, err := s.Apply(ctx, event)
	if err != nil {
		log.WithError(err).Error("Failed to apply payment event")
		return "", err
	}

	if s.guard != nil && event.ID != "" {
		markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), guardMarkTimeout)
		if err := s.guard.Mark(markCtx, event.ID); err != nil {
			log.WithError(err).Warn("Failed to mark payment event as handled")
		}
		cancel()
	}

	s.metrics.Reconciled(string(outcome))
	log.WithField("outcome", outcome).Info("Payment event reconciled")
	return outcome, nil
}

// Apply routes a verified event to the ledger
func (s *Service) Apply(ctx context.Context, event *payment.Event) (Outcome, error) {
	switch event.Type {
	case payment.EventPaymentSucceeded:
		return s.Finalize(ctx, event.CorrelationID, event.TransactionID)
	case payment.EventPaymentFailed:
		return s.recordFailure(ctx, event.CorrelationID)
	default:
		return OutcomeIgnored, nil
	}
}

// Finalize marks the order Paid with transactionID, decrements stock for
// every line and deletes the owner's cart. Either all three happen or
// none do. A repeated confirmation is a no-op.
func (s *Service) Finalize(ctx context.Context, publicID, transactionID string) (Outcome, error) {
	o, err := s.resolve(ctx, publicID)
	if err != nil {
		return "", err
	}

	outcome := OutcomeApplied
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, applied, err := s.orders.WithTx(tx).MarkPaid(ctx, o.ID, transactionID)
		if err != nil {
			return err
		}
		if !applied {
			outcome = OutcomeAlreadyApplied
			return nil
		}

		products := s.products.WithTx(tx)
		for _, line := range o.Lines {
			if err := products.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		return s.carts.WithTx(tx).DeleteUserCart(ctx, o.UserID)
	})

	switch {
	case err == nil:
	case errors.Is(err, order.ErrConflictingPayment), errors.Is(err, order.ErrInvalidTransition):
		// money moved for an order that can no longer take it; needs manual refund
		s.logger.WithError(err).WithFields(logrus.Fields{
			"order_id":       publicID,
			"transaction_id": transactionID,
		}).Error("Payment confirmation conflicts with order state")
		return OutcomeConflict, nil
	case apperror.As(err) != nil:
		return "", err
	default:
		return "", fmt.Errorf("failed to finalize order %s: %w", publicID, err)
	}

	if outcome == OutcomeApplied {
		for range o.Lines {
			s.metrics.StockDecremented()
		}
		s.logger.WithFields(logrus.Fields{
			"order_id":       publicID,
			"user_id":        o.UserID,
			"transaction_id": transactionID,
			"total":          o.Total,
		}).Info("Order paid")
	}
	return outcome, nil
}

func (s *Service) recordFailure(ctx context.Context, publicID string) (Outcome, error) {
	o, err := s.resolve(ctx, publicID)
	if err != nil {
		return "", err
	}

	_, applied, err := s.orders.MarkFailed(ctx, o.ID)
	if err != nil {
		if errors.Is(err, order.ErrInvalidTransition) {
			s.logger.WithError(err).WithField("order_id", publicID).Warn("Payment failure for an order that is no longer pending")
			return OutcomeConflict, nil
		}
		return "", err
	}
	if !applied {
		return OutcomeAlreadyApplied, nil
	}
	return OutcomeFailedRecorded, nil
}

func (s *Service) resolve(ctx context.Context, publicID string) (*order.Order, error) {
	o, err := s.orders.GetByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil, order.ErrMissingOrder.WithDetail("order_id", publicID)
		}
		return nil, err
	}
	return o, nil
}
