package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/pkg/testutil"
)

func TestEventGuard(t *testing.T) {
	ctx := context.Background()
	rdb, mr := testutil.NewRedis(t)
	guard, err := NewEventGuard(NewClient(rdb), time.Hour, "stripe")
	require.NoError(t, err)

	seen, err := guard.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.False(t, mr.Exists("storefront:idempotency:stripe:evt_1"), "checking does not mark")

	require.NoError(t, guard.Mark(ctx, "evt_1"))
	assert.True(t, mr.Exists("storefront:idempotency:stripe:evt_1"))
	assert.Equal(t, time.Hour, mr.TTL("storefront:idempotency:stripe:evt_1"))

	seen, err = guard.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	// marking twice keeps the first ttl
	mr.FastForward(30 * time.Minute)
	require.NoError(t, guard.Mark(ctx, "evt_1"))
	assert.Equal(t, 30*time.Minute, mr.TTL("storefront:idempotency:stripe:evt_1"))

	mr.FastForward(time.Hour)
	seen, err = guard.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	_, err = guard.Seen(ctx, "")
	assert.Error(t, err)
	assert.Error(t, guard.Mark(ctx, ""))
}

func TestEventGuardReportsOutage(t *testing.T) {
	rdb, mr := testutil.NewRedis(t)
	guard, err := NewEventGuard(NewClient(rdb), time.Hour, "stripe")
	require.NoError(t, err)

	mr.Close()
	_, err = guard.Seen(context.Background(), "evt_1")
	assert.Error(t, err)
	assert.Error(t, guard.Mark(context.Background(), "evt_1"))
}

func TestNewEventGuardValidates(t *testing.T) {
	rdb, _ := testutil.NewRedis(t)
	_, err := NewEventGuard(nil, time.Hour, "stripe")
	assert.Error(t, err)
	_, err = NewEventGuard(NewClient(rdb), 0, "stripe")
	assert.Error(t, err)
	_, err = NewEventGuard(NewClient(rdb), time.Hour, "")
	assert.Error(t, err)
}

func TestIncrWithTTL(t *testing.T) {
	ctx := context.Background()
	rdb, mr := testutil.NewRedis(t)
	client := NewClient(rdb)
	key := client.Key("rate_limit", "1.2.3.4")

	for i := int64(1); i <= 3; i++ {
		count, err := client.IncrWithTTL(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(2 * time.Minute)
	count, err := client.IncrWithTTL(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
