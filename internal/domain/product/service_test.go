package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"github.com/your-org/storefront/internal/pkg/testutil"
)

func seedProduct(t *testing.T, svc *Service, sku string, price int64, stock int, active bool) *Product {
	t.Helper()
	p := &Product{SKU: sku, Name: "Product " + sku, Price: price, StockQuantity: stock, IsActive: active}
	require.NoError(t, svc.db.Create(p).Error)
	return p
}

func TestDecrementStockClampsAtZero(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.NewDB(t, &Product{}))
	p := seedProduct(t, svc, "A", 1000, 1, true)

	require.NoError(t, svc.DecrementStock(ctx, p.ID, 3))

	got, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)

	// already at zero stays at zero
	require.NoError(t, svc.DecrementStock(ctx, p.ID, 1))
	got, err = svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)
}

func TestDecrementStockSubtracts(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.NewDB(t, &Product{}))
	p := seedProduct(t, svc, "A", 1000, 10, true)

	require.NoError(t, svc.DecrementStock(ctx, p.ID, 4))

	got, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.StockQuantity)
}

func TestDecrementStockMissingProductIsIntegrityError(t *testing.T) {
	svc := NewService(testutil.NewDB(t, &Product{}))

	err := svc.DecrementStock(context.Background(), 999, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingProduct)
	assert.Equal(t, apperror.CodeIntegrity, apperror.CodeOf(err))
}

func TestDecrementStockRejectsNonPositiveAmount(t *testing.T) {
	svc := NewService(testutil.NewDB(t, &Product{}))
	assert.ErrorIs(t, svc.DecrementStock(context.Background(), 1, 0), ErrInvalidAmount)
}

func TestGetActiveProduct(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.NewDB(t, &Product{}))
	active := seedProduct(t, svc, "A", 1000, 1, true)
	inactive := seedProduct(t, svc, "B", 500, 1, false)

	got, err := svc.GetActiveProduct(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "Product A", got.Name)

	_, err = svc.GetActiveProduct(ctx, inactive.ID)
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = svc.GetActiveProduct(ctx, 12345)
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = svc.GetProduct(ctx, 12345)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestListActivePaginates(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.NewDB(t, &Product{}))
	seedProduct(t, svc, "A", 100, 1, true)
	seedProduct(t, svc, "B", 200, 1, true)
	seedProduct(t, svc, "C", 300, 1, true)
	seedProduct(t, svc, "D", 400, 1, false)

	page, err := svc.ListActive(ctx, ListRequest{Page: 1, Limit: 2, SortBy: "price", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNext)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "A", page.Products[0].SKU)

	page, err = svc.ListActive(ctx, ListRequest{Page: 1, Limit: 10, Search: "product c"})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "C", page.Products[0].SKU)
}
