package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// MemoryCache is the in-process L1 tier backed by ristretto.
// Entries cost their length in bytes.
type MemoryCache struct {
	c          *ristretto.Cache[string, []byte]
	defaultTTL time.Duration
}

// NewMemoryCache creates a ristretto-backed cache holding at most maxCostBytes of values.
func NewMemoryCache(maxCostBytes int64, defaultTTL time.Duration) (*MemoryCache, error) {
	if maxCostBytes <= 0 {
		maxCostBytes = 64 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &MemoryCache{c: c, defaultTTL: defaultTTL}, nil
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	return m.c.Get(key)
}

// Set stores value and waits until it is visible to readers.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte) {
	m.SetWithTTL(ctx, key, value, m.defaultTTL)
}

func (m *MemoryCache) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.c.SetWithTTL(key, value, int64(len(value)), ttl)
	m.c.Wait()
}

func (m *MemoryCache) Delete(_ context.Context, key string) {
	m.c.Del(key)
}

func (m *MemoryCache) Clear(context.Context) {
	m.c.Clear()
}

func (m *MemoryCache) Close() error {
	m.c.Close()
	return nil
}
