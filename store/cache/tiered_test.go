package cache

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapL2 struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMapL2() *mapL2 {
	return &mapL2{data: map[string][]byte{}}
}

func (m *mapL2) Set(ctx context.Context, key string, value []byte) {
	m.SetWithTTL(ctx, key, value, 0)
}

func (m *mapL2) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
}

func (m *mapL2) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mapL2) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *mapL2) Clear(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = map[string][]byte{}
}

func (*mapL2) Close() error { return nil }

func newTestTiered(t *testing.T, l2 RedisCacheInterface) *TieredCache {
	t.Helper()
	l1, err := NewMemoryCache(1<<20, time.Minute)
	require.NoError(t, err)
	tc := NewTieredCacheWithL2(l1, l2)
	t.Cleanup(func() { _ = tc.Close() })
	return tc
}

func TestTieredCache_FetchesFromL3Once(t *testing.T) {
	ctx := context.Background()
	tc := newTestTiered(t, nil)

	calls := 0
	fetch := func(context.Context, string) ([]byte, bool, error) {
		calls++
		return []byte("messages"), true, nil
	}

	v, found, err := tc.Get(ctx, "thread:1", fetch)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "messages", string(v))

	v, found, err = tc.Get(ctx, "thread:1", fetch)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "messages", string(v))
	assert.Equal(t, 1, calls)
}

func TestTieredCache_MissEverywhere(t *testing.T) {
	tc := newTestTiered(t, nil)

	v, found, err := tc.Get(context.Background(), "thread:404", func(context.Context, string) ([]byte, bool, error) {
		return nil, false, nil
	})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, v)

	_, found, err = tc.Get(context.Background(), "thread:404", nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTieredCache_PromotesFromL2(t *testing.T) {
	ctx := context.Background()
	l2 := newMapL2()
	l2.data["thread:7"] = []byte("from-redis")
	tc := newTestTiered(t, l2)

	v, found, err := tc.Get(ctx, "thread:7", nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "from-redis", string(v))

	// Gone from L2, still served from L1.
	l2.Delete(ctx, "thread:7")
	v, found, _ = tc.Get(ctx, "thread:7", nil)
	require.True(t, found)
	assert.Equal(t, "from-redis", string(v))
}

func TestTieredCache_GetSharedBypassesL1(t *testing.T) {
	ctx := context.Background()
	l2 := newMapL2()
	first := newTestTiered(t, l2)
	second := newTestTiered(t, l2)

	first.Set(ctx, "thread:1", []byte("v1"))
	second.Set(ctx, "thread:1", []byte("v2"))

	v, found, err := first.GetShared(ctx, "thread:1", nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v2", string(v))

	// Plain Get still answers from the stale L1 entry.
	v, _, _ = first.Get(ctx, "thread:1", nil)
	assert.Equal(t, "v1", string(v))

	// Misses go to the database and land in L2 only.
	l2.Clear(ctx)
	v, found, err = first.GetShared(ctx, "thread:1", func(context.Context, string) ([]byte, bool, error) {
		return []byte("db"), true, nil
	})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "db", string(v))
	inL2, _ := l2.Get(ctx, "thread:1")
	assert.Equal(t, "db", string(inL2))
}

func TestTieredCache_GetSharedWithoutL2(t *testing.T) {
	ctx := context.Background()
	tc := newTestTiered(t, nil)
	tc.Set(ctx, "thread:1", []byte("local"))

	v, found, err := tc.GetShared(ctx, "thread:1", nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "local", string(v))
}

func TestTieredCache_SetAndDelete(t *testing.T) {
	ctx := context.Background()
	l2 := newMapL2()
	tc := newTestTiered(t, l2)

	tc.Set(ctx, "k", []byte("v"))
	_, inL2 := l2.Get(ctx, "k")
	assert.True(t, inL2)

	tc.Delete(ctx, "k")
	_, found, err := tc.Get(ctx, "k", nil)
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, tc.RedisEnabled())
}

func TestRedisConfigFromEnv(t *testing.T) {
	t.Setenv("DECORCHAT_CACHE_REDIS_ADDR", "redis:6380")
	t.Setenv("DECORCHAT_CACHE_REDIS_DB", "3")
	t.Setenv("DECORCHAT_CACHE_REDIS_PREFIX", "test:")

	config := RedisConfigFromEnv()
	assert.Equal(t, "redis:6380", config.Addr)
	assert.Equal(t, 3, config.DB)
	assert.Equal(t, "test:", config.KeyPrefix)
	assert.True(t, IsRedisEnabled())
	assert.NotNil(t, DefaultTieredConfig().Redis)
}

// TestRedisCache runs against a live server when DECORCHAT_TEST_REDIS_ADDR is set.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("DECORCHAT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DECORCHAT_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	config := DefaultRedisConfig()
	config.Addr = addr
	config.KeyPrefix = "decorchat-test:"

	rc, err := NewRedisCache(ctx, config)
	require.NoError(t, err)
	defer rc.Close()
	defer rc.Clear(ctx)

	rc.Set(ctx, "a", []byte("1"))
	v, found := rc.Get(ctx, "a")
	require.True(t, found)
	assert.Equal(t, "1", string(v))

	rc.Delete(ctx, "a")
	_, found = rc.Get(ctx, "a")
	assert.False(t, found)
}
