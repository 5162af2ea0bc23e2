package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCacheService(t *testing.T, ttl time.Duration) (*CacheService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheService(NewRedisCacheFromClient(client), ttl), mr
}

func TestCacheService_BalanceRoundTrip(t *testing.T) {
	cache, _ := newTestCacheService(t, time.Minute)
	ctx := context.Background()

	balance := decimal.RequireFromString("10.05")
	require.NoError(t, cache.SetBalance(ctx, "u1", balance))

	got, err := cache.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.Equal(balance), "got %s", got)
}

func TestCacheService_MissIsDistinctError(t *testing.T) {
	cache, _ := newTestCacheService(t, time.Minute)

	_, err := cache.GetBalance(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheService_CorruptValueIsMiss(t *testing.T) {
	cache, mr := newTestCacheService(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, mr.Set(cache.GenerateBalanceKey("u1"), "not-a-decimal"))

	_, err := cache.GetBalance(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheService_InvalidateUser(t *testing.T) {
	cache, _ := newTestCacheService(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.SetBalance(ctx, "u1", decimal.NewFromInt(10)))
	require.NoError(t, cache.InvalidateUser(ctx, "u1"))

	_, err := cache.GetBalance(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheService_TTLExpiry(t *testing.T) {
	cache, mr := newTestCacheService(t, time.Second)
	ctx := context.Background()

	require.NoError(t, cache.SetBalance(ctx, "u1", decimal.NewFromInt(10)))

	mr.FastForward(2 * time.Second)

	_, err := cache.GetBalance(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheService_KeyFormat(t *testing.T) {
	cache, _ := newTestCacheService(t, time.Minute)

	assert.Equal(t, "balance:u1", cache.GenerateBalanceKey("u1"))
	assert.Equal(t, "balance:a:b", cache.GenerateCacheKey(CacheKeyBalance, "a", "b"))
}
