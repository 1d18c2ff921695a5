// internal/domain/cart/service.go
package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/identity"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"github.com/your-org/storefront/internal/pkg/money"
	"github.com/your-org/storefront/internal/pkg/telemetry"
	"gorm.io/gorm"
)

var (
	ErrInvalidQuantity  = apperror.Validation("quantity must be greater than zero")
	ErrLineNotFound     = apperror.NotFound("item not found in cart")
	ErrNoIdentity       = apperror.Unauthenticated("cart owner is required")
	ErrConcurrentUpdate = apperror.Conflict("cart was modified concurrently, try again")
)

// Catalog is the product lookup the cart needs to price new lines
type Catalog interface {
	GetActiveProduct(ctx context.Context, id uint) (*product.Product, error)
}

// Config holds cart settings
type Config struct {
	GuestTTL time.Duration
	Currency string
}

// Service is the single cart abstraction over guest (Redis) and registered
// (database) carts, addressed by identity.
type Service struct {
	db      *gorm.DB
	guest   *guestStore
	users   *userStore
	catalog Catalog
	cfg     Config
	logger  logrus.FieldLogger
	metrics *telemetry.Metrics
}

// NewService creates a new cart service
func NewService(db *gorm.DB, redisClient *redis.Client, catalog Catalog, cfg Config, logger logrus.FieldLogger, metrics *telemetry.Metrics) *Service {
	if cfg.GuestTTL <= 0 {
		cfg.GuestTTL = 24 * time.Hour
	}
	return &Service{
		db: db,
		guest: &guestStore{
			rdb: redisClient,
			ttl: cfg.GuestTTL,
			now: func() time.Time { return time.Now().UTC() },
		},
		users:   &userStore{db: db},
		catalog: catalog,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// WithTx returns a service whose registered-cart operations run in tx
func (s *Service) WithTx(tx *gorm.DB) *Service {
	clone := *s
	clone.db = tx
	clone.users = &userStore{db: tx}
	return &clone
}

// Get returns the cart lines in insertion order. A missing cart is empty.
func (s *Service) Get(ctx context.Context, id identity.Identity) ([]Line, error) {
	if userID, ok := id.UserID(); ok && id.Valid() {
		return s.users.lines(ctx, userID)
	}
	if token, ok := id.Token(); ok && id.Valid() {
		return s.guest.lines(ctx, token)
	}
	return nil, ErrNoIdentity
}

// View returns the lines with derived count and subtotal
func (s *Service) View(ctx context.Context, id identity.Identity) (*View, error) {
	lines, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	subtotal := SubtotalOf(lines)
	return &View{
		Items:             lines,
		ItemCount:         CountOf(lines),
		Subtotal:          subtotal,
		FormattedSubtotal: money.Format(subtotal, s.cfg.Currency),
		Currency:          s.cfg.Currency,
	}, nil
}

// Count returns the sum of line quantities, recomputed on every call
func (s *Service) Count(ctx context.Context, id identity.Identity) (int, error) {
	lines, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return CountOf(lines), nil
}

// AddOrIncrement adds line to the cart, or accumulates its quantity onto an
// existing line for the same product and refreshes name and unit price.
func (s *Service) AddOrIncrement(ctx context.Context, id identity.Identity, line Line) error {
	if line.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if line.UnitPrice < 0 {
		return apperror.Validation("unit price cannot be negative")
	}

	err := s.dispatch(id,
		func(userID uint) error { return s.users.add(ctx, userID, line) },
		func(token string) error { return s.guest.add(ctx, token, line) },
	)
	if err != nil {
		return err
	}
	s.metrics.CartMutation("add", id.Kind().String())
	return nil
}

// AddProduct prices the line from the catalog and adds it
func (s *Service) AddProduct(ctx context.Context, id identity.Identity, productID uint, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !id.Valid() {
		return ErrNoIdentity
	}

	p, err := s.catalog.GetActiveProduct(ctx, productID)
	if err != nil {
		return err
	}
	return s.AddOrIncrement(ctx, id, Line{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
	})
}

// SetQuantity sets a line's quantity. Zero or less removes the line; a
// positive quantity for a product not in the cart is ErrLineNotFound.
func (s *Service) SetQuantity(ctx context.Context, id identity.Identity, productID uint, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, id, productID)
	}

	err := s.dispatch(id,
		func(userID uint) error { return s.users.set(ctx, userID, productID, quantity) },
		func(token string) error { return s.guest.set(ctx, token, productID, quantity) },
	)
	if err != nil {
		return err
	}
	s.metrics.CartMutation("set", id.Kind().String())
	return nil
}

// Increment adds one unit to an existing line
func (s *Service) Increment(ctx context.Context, id identity.Identity, productID uint) error {
	return s.adjust(ctx, id, productID, 1, "increment")
}

// Decrement removes one unit from an existing line, removing it at zero
func (s *Service) Decrement(ctx context.Context, id identity.Identity, productID uint) error {
	return s.adjust(ctx, id, productID, -1, "decrement")
}

func (s *Service) adjust(ctx context.Context, id identity.Identity, productID uint, delta int, op string) error {
	err := s.dispatch(id,
		func(userID uint) error { return s.users.adjust(ctx, userID, productID, delta) },
		func(token string) error { return s.guest.adjust(ctx, token, productID, delta) },
	)
	if err != nil {
		return err
	}
	s.metrics.CartMutation(op, id.Kind().String())
	return nil
}

// Remove deletes a line. Removing a product that is not in the cart is a no-op.
func (s *Service) Remove(ctx context.Context, id identity.Identity, productID uint) error {
	err := s.dispatch(id,
		func(userID uint) error { return s.users.removeLine(ctx, userID, productID) },
		func(token string) error { return s.guest.removeLine(ctx, token, productID) },
	)
	if err != nil {
		return err
	}
	s.metrics.CartMutation("remove", id.Kind().String())
	return nil
}

// Clear empties the cart
func (s *Service) Clear(ctx context.Context, id identity.Identity) error {
	err := s.dispatch(id,
		func(userID uint) error { return s.users.clear(ctx, userID) },
		func(token string) error { return s.guest.clear(ctx, token) },
	)
	if err != nil {
		return err
	}
	s.metrics.CartMutation("clear", id.Kind().String())
	return nil
}

// MergeGuestCart folds the guest cart for token into the user's cart and
// deletes the guest cart. Quantities are added; name and unit price come
// from the guest line. Returns the number of lines merged.
func (s *Service) MergeGuestCart(ctx context.Context, token string, userID uint) (int, error) {
	if token == "" || userID == 0 {
		return 0, ErrNoIdentity
	}

	guestLines, err := s.guest.lines(ctx, token)
	if err != nil {
		return 0, err
	}
	if len(guestLines) == 0 {
		return 0, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := &userStore{db: tx}
		for _, line := range guestLines {
			if line.Quantity <= 0 {
				continue
			}
			if err := store.add(ctx, userID, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to merge guest cart: %w", err)
	}

	if err := s.guest.clear(ctx, token); err != nil {
		// the lines are already merged; a stale guest cart only expires
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to delete merged guest cart")
	}

	s.metrics.CartMutation("merge", identity.KindRegistered.String())
	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"lines":   len(guestLines),
	}).Info("Merged guest cart into user cart")
	return len(guestLines), nil
}

// DeleteUserCart removes a registered user's cart: its lines, then the cart
// row. Used by payment finalization through WithTx.
func (s *Service) DeleteUserCart(ctx context.Context, userID uint) error {
	deleted, err := s.users.deleteCart(ctx, userID)
	if err != nil {
		return err
	}
	if deleted {
		s.metrics.CartMutation("delete", identity.KindRegistered.String())
	}
	return nil
}

func (s *Service) dispatch(id identity.Identity, registered func(uint) error, guest func(string) error) error {
	if !id.Valid() {
		return ErrNoIdentity
	}
	if userID, ok := id.UserID(); ok {
		return registered(userID)
	}
	token, _ := id.Token()
	return guest(token)
}
