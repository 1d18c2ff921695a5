package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/address"
	"github.com/your-org/storefront/internal/pkg/testutil"
)

func TestSaveAndGetShippingAddress(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t, &User{})
	svc := NewService(db)

	u := &User{Email: "  Buyer@Example.com "}
	require.NoError(t, db.Create(u).Error)
	assert.Equal(t, "buyer@example.com", u.Email)

	addr, err := svc.GetShippingAddress(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, addr.IsZero())

	require.NoError(t, svc.SaveShippingAddress(ctx, u.ID, address.Address{
		Line1: "1 Main St", Line2: "Apt 2", City: "Springfield", PostalCode: "62701", Country: "us",
	}))

	addr, err = svc.GetShippingAddress(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "US", addr.Country)
	assert.Equal(t, "Apt 2", addr.Line2)

	// optional fields are cleared on overwrite
	require.NoError(t, svc.SaveShippingAddress(ctx, u.ID, address.Address{
		Line1: "9 Elm St", City: "Shelbyville", PostalCode: "62565", Country: "US",
	}))
	addr, err = svc.GetShippingAddress(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "9 Elm St", addr.Line1)
	assert.Empty(t, addr.Line2)
}

func TestSaveShippingAddressMissingUser(t *testing.T) {
	svc := NewService(testutil.NewDB(t, &User{}))

	err := svc.SaveShippingAddress(context.Background(), 42, address.Address{Line1: "x"})
	assert.ErrorIs(t, err, ErrMissingUser)

	_, err = svc.GetProfile(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
