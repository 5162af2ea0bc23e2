package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// ErrCacheMiss is returned when a key is absent from the cache.
var ErrCacheMiss = errors.New("cache miss")

// CacheService provides read caching for derived per-user values. Writes to
// the ledger or site counters must invalidate the affected user's keys before
// returning, which preserves read-your-writes for polling clients.
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{
		redis: redis,
		ttl:   ttl,
	}
}

// CacheKeyType represents different types of cache keys
type CacheKeyType string

const (
	// CacheKeyBalance is for derived user balances
	CacheKeyBalance CacheKeyType = "balance"
)

// GenerateCacheKey generates a cache key for a given type and parameters.
// Format: <type>:<param1>:<param2>:...
func (c *CacheService) GenerateCacheKey(keyType CacheKeyType, params ...string) string {
	parts := append([]string{string(keyType)}, params...)
	return strings.Join(parts, ":")
}

// GenerateBalanceKey generates a cache key for a user's balance.
// Format: balance:<userId>
func (c *CacheService) GenerateBalanceKey(userID string) string {
	return c.GenerateCacheKey(CacheKeyBalance, userID)
}

// GetBalance retrieves a cached balance. Returns ErrCacheMiss when absent.
func (c *CacheService) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	value, err := c.redis.Get(ctx, c.GenerateBalanceKey(userID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, ErrCacheMiss
		}
		return decimal.Zero, err
	}

	balance, err := decimal.NewFromString(value)
	if err != nil {
		// Corrupt entry; treat as a miss so it gets overwritten
		return decimal.Zero, ErrCacheMiss
	}

	return balance, nil
}

// SetBalance caches a user's balance with the configured TTL.
func (c *CacheService) SetBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	return c.redis.Set(ctx, c.GenerateBalanceKey(userID), balance.String(), c.ttl)
}

// InvalidateUser removes all cached values for a user.
func (c *CacheService) InvalidateUser(ctx context.Context, userID string) error {
	return c.redis.Del(ctx, c.GenerateBalanceKey(userID))
}
