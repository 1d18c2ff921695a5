package checkout

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/address"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/identity"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/testutil"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	carts    *cart.Service
	orders   *order.Service
	users    *user.Service
	provider *payment.MockProvider
	svc      *Service
	buyer    identity.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t, &user.User{}, &cart.Cart{}, &cart.CartItem{}, &order.Order{}, &order.Line{})
	rdb, _ := testutil.NewRedis(t)
	log := logger.Discard()

	require.NoError(t, db.Create(&user.User{ID: 7, Email: "Buyer@Example.com"}).Error)

	f := &fixture{
		db:       db,
		carts:    cart.NewService(db, rdb, nil, cart.Config{GuestTTL: time.Hour, Currency: "usd"}, log, nil),
		orders:   order.NewService(db, log, nil),
		users:    user.NewService(db),
		provider: payment.NewMockProvider(),
		buyer:    identity.Registered(7),
	}
	f.svc = NewService(db, f.carts, f.orders, f.users, f.provider, Config{
		Currency:   "usd",
		SuccessURL: "https://shop.test/checkout/success",
		CancelURL:  "https://shop.test/cart",
	}, log, nil)
	return f
}

func (f *fixture) fillCart(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.carts.AddOrIncrement(ctx, f.buyer, cart.Line{ProductID: 1, Name: "A", UnitPrice: 1000, Quantity: 2}))
	require.NoError(t, f.carts.AddOrIncrement(ctx, f.buyer, cart.Line{ProductID: 2, Name: "B", UnitPrice: 500, Quantity: 1}))
}

func validAddress() address.Address {
	return address.Address{Line1: " 1 Main St ", City: "Springfield", PostalCode: "62701", Country: "us"}
}

func TestCheckoutCreatesPendingOrderAndSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t)

	result, err := f.svc.Checkout(ctx, f.buyer, validAddress())
	require.NoError(t, err)

	assert.Equal(t, int64(2500), result.Order.Total)
	assert.Equal(t, order.PaymentStatusPending, result.Order.PaymentStatus)
	require.Len(t, result.Order.Lines, 2)
	assert.Equal(t, int64(1000), result.Order.Lines[0].UnitPrice)
	assert.NotEmpty(t, result.SessionID)

	req, ok := f.provider.LastSession()
	require.True(t, ok)
	assert.Equal(t, result.Order.OrderID, req.CorrelationID)
	assert.Equal(t, int64(2500), req.TotalMinorUnits)
	assert.Equal(t, "buyer@example.com", req.CustomerEmail)
	assert.Len(t, req.LineItems, 2)

	success, err := url.Parse(req.SuccessURL)
	require.NoError(t, err)
	assert.Equal(t, result.Order.OrderID, success.Query().Get("order"))

	stored, err := f.orders.GetByPublicID(ctx, result.Order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, result.SessionID, stored.PaymentSessionID)
	assert.Equal(t, "1 Main St", stored.ShippingAddress.Line1)
	assert.Equal(t, "US", stored.ShippingAddress.Country)

	onFile, err := f.svc.Prefill(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "1 Main St", onFile.Line1)

	// the cart is only cleared once payment is confirmed
	count, err := f.carts.Count(ctx, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCheckoutTotalIgnoresLaterPriceChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t)

	result, err := f.svc.Checkout(ctx, f.buyer, validAddress())
	require.NoError(t, err)

	require.NoError(t, f.carts.AddOrIncrement(ctx, f.buyer, cart.Line{ProductID: 1, Name: "A", UnitPrice: 9999, Quantity: 1}))

	stored, err := f.orders.GetByPublicID(ctx, result.Order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), stored.Total)
	assert.Equal(t, int64(1000), stored.Lines[0].UnitPrice)
}

func assertNothingCreated(t *testing.T, f *fixture) {
	t.Helper()
	var orders int64
	require.NoError(t, f.db.Model(&order.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
	assert.Zero(t, f.provider.SessionCount())
}

func TestCheckoutRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("guest", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Checkout(ctx, identity.Anonymous("session-1"), validAddress())
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assertNothingCreated(t, f)
	})

	t.Run("invalid address", func(t *testing.T) {
		f := newFixture(t)
		f.fillCart(t)
		_, err := f.svc.Checkout(ctx, f.buyer, address.Address{City: "Springfield"})
		assert.ErrorIs(t, err, address.ErrInvalidAddress)
		assertNothingCreated(t, f)
	})

	t.Run("empty cart", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Checkout(ctx, f.buyer, validAddress())
		assert.ErrorIs(t, err, order.ErrEmptyCart)
		assert.Equal(t, apperror.KindUser, apperror.KindOf(err))
		assertNothingCreated(t, f)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)
		ghost := identity.Registered(99)
		require.NoError(t, f.carts.AddOrIncrement(ctx, ghost, cart.Line{ProductID: 1, Name: "A", UnitPrice: 100, Quantity: 1}))
		_, err := f.svc.Checkout(ctx, ghost, validAddress())
		assert.ErrorIs(t, err, user.ErrMissingUser)
		assertNothingCreated(t, f)
	})
}

func TestProviderFailureLeavesOrderPendingAndRetrySucceeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t)

	f.provider.CreateSessionFunc = func(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
		return nil, errors.New("connection reset")
	}

	_, err := f.svc.Checkout(ctx, f.buyer, validAddress())
	require.Error(t, err)
	assert.Equal(t, apperror.CodeProvider, apperror.CodeOf(err))

	publicID, ok := apperror.As(err).Details()["order_id"].(string)
	require.True(t, ok)

	stored, err := f.orders.GetByPublicID(ctx, publicID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPending, stored.PaymentStatus)
	assert.Empty(t, stored.PaymentSessionID)

	f.provider.CreateSessionFunc = nil
	result, err := f.svc.RetryPayment(ctx, 7, publicID)
	require.NoError(t, err)
	assert.Equal(t, publicID, result.Order.OrderID)
	assert.Equal(t, 2, f.provider.SessionCount())

	// another user cannot retry it
	_, err = f.svc.RetryPayment(ctx, 8, publicID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestRetryPaymentRequiresPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t)

	result, err := f.svc.Checkout(ctx, f.buyer, validAddress())
	require.NoError(t, err)

	stored, err := f.orders.GetByPublicID(ctx, result.Order.OrderID)
	require.NoError(t, err)
	_, _, err = f.orders.Cancel(ctx, stored.ID)
	require.NoError(t, err)

	_, err = f.svc.RetryPayment(ctx, 7, result.Order.OrderID)
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestPaymentStatusDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t)

	result, err := f.svc.Checkout(ctx, f.buyer, validAddress())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		view, err := f.svc.PaymentStatus(ctx, 7, result.Order.OrderID)
		require.NoError(t, err)
		assert.Equal(t, order.PaymentStatusPending, view.PaymentStatus)
	}

	_, err = f.svc.PaymentStatus(ctx, 8, result.Order.OrderID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}
