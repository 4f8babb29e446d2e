package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// TieredCache implements a three-tier caching strategy:
//   - L1: in-process ristretto cache (always on)
//   - L2: Redis cache (optional, shared between instances)
//   - L3: database callback supplied by the caller
//
// Set DECORCHAT_CACHE_REDIS_ADDR to enable the Redis tier.
type TieredCache struct {
	l1 *MemoryCache
	l2 RedisCacheInterface
}

// L3Fetcher fetches a value from the database (L3).
// It returns found=false when the key does not exist there either.
type L3Fetcher func(ctx context.Context, key string) (value []byte, found bool, err error)

// TieredCacheConfig holds the configuration for the tiered cache.
type TieredCacheConfig struct {
	L1MaxCost int64         // Max total bytes in L1
	L1TTL     time.Duration // TTL for L1 entries
	L2TTL     time.Duration // TTL for L2 Redis entries
	// Redis enables the L2 tier when non-nil.
	Redis *RedisCacheConfig
}

// DefaultTieredConfig returns the default tiered cache configuration.
// The Redis tier is enabled when DECORCHAT_CACHE_REDIS_ADDR is set.
func DefaultTieredConfig() *TieredCacheConfig {
	config := &TieredCacheConfig{
		L1MaxCost: 64 << 20,
		L1TTL:     30 * time.Minute,
		L2TTL:     24 * time.Hour,
	}
	if IsRedisEnabled() {
		config.Redis = RedisConfigFromEnv()
	}
	return config
}

// NewTieredCache creates a new three-tier cache.
func NewTieredCache(ctx context.Context, config *TieredCacheConfig) (*TieredCache, error) {
	if config == nil {
		config = DefaultTieredConfig()
	}

	l1, err := NewMemoryCache(config.L1MaxCost, config.L1TTL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create memory cache")
	}
	tc := &TieredCache{l1: l1}

	if config.Redis != nil {
		redisConfig := *config.Redis
		if config.L2TTL > 0 {
			redisConfig.DefaultTTL = config.L2TTL
		}
		l2, err := NewRedisCache(ctx, &redisConfig)
		if err != nil {
			l1.Close()
			return nil, err
		}
		tc.l2 = l2
	}

	return tc, nil
}

// NewTieredCacheWithL2 wires an arbitrary L2 implementation. l2 may be nil.
func NewTieredCacheWithL2(l1 *MemoryCache, l2 RedisCacheInterface) *TieredCache {
	return &TieredCache{l1: l1, l2: l2}
}

// Get retrieves a value from the cache, checking L1, then L2, then L3.
// Hits on a lower tier are promoted to the tiers above it.
func (t *TieredCache) Get(ctx context.Context, key string, fetcher L3Fetcher) ([]byte, bool, error) {
	if value, found := t.l1.Get(ctx, key); found {
		return value, true, nil
	}

	if t.l2 != nil {
		if value, found := t.l2.Get(ctx, key); found {
			t.l1.Set(ctx, key, value)
			return value, true, nil
		}
	}

	if fetcher == nil {
		return nil, false, nil
	}
	value, found, err := fetcher(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	t.Set(ctx, key, value)
	return value, true, nil
}

// GetShared is Get for values other instances may rewrite. When L2 is wired,
// the per-process L1 is bypassed so every instance reads the latest write;
// without L2 it behaves like Get.
func (t *TieredCache) GetShared(ctx context.Context, key string, fetcher L3Fetcher) ([]byte, bool, error) {
	if t.l2 == nil {
		return t.Get(ctx, key, fetcher)
	}
	if value, found := t.l2.Get(ctx, key); found {
		return value, true, nil
	}

	if fetcher == nil {
		return nil, false, nil
	}
	value, found, err := fetcher(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	t.l2.Set(ctx, key, value)
	return value, true, nil
}

// Set stores a value in both L1 and L2.
func (t *TieredCache) Set(ctx context.Context, key string, value []byte) {
	t.l1.Set(ctx, key, value)
	if t.l2 != nil {
		t.l2.Set(ctx, key, value)
	}
}

// Delete removes a value from both L1 and L2.
func (t *TieredCache) Delete(ctx context.Context, key string) {
	t.l1.Delete(ctx, key)
	if t.l2 != nil {
		t.l2.Delete(ctx, key)
	}
}

// Clear clears all caches.
func (t *TieredCache) Clear(ctx context.Context) {
	t.l1.Clear(ctx)
	if t.l2 != nil {
		t.l2.Clear(ctx)
	}
}

// RedisEnabled reports whether the L2 tier is wired.
func (t *TieredCache) RedisEnabled() bool {
	return t.l2 != nil
}

// Close closes all cache connections.
func (t *TieredCache) Close() error {
	var errs []error
	if t.l2 != nil {
		if err := t.l2.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := t.l1.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Errorf("multiple errors: %v", errs)
	}
	return nil
}
