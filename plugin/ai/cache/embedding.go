// Package cache memoizes query embeddings so repeated searches skip the
// embedding provider.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strings"
	"time"

	storecache "github.com/hrygo/decorchat/store/cache"
)

// Embedder embeds one text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config configures an EmbeddingCache.
type Config struct {
	MaxCostBytes int64         // Total vector bytes kept (default: 16 MiB)
	TTL          time.Duration // Entry lifetime (default: 1 hour)
	// Namespace separates models whose vectors are not interchangeable.
	Namespace string
}

// DefaultConfig returns the default embedding cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxCostBytes: 16 << 20,
		TTL:          time.Hour,
	}
}

// EmbeddingCache wraps an Embedder with an in-memory cache keyed by the
// normalized query text.
type EmbeddingCache struct {
	next      Embedder
	store     *storecache.MemoryCache
	namespace string
}

// NewEmbeddingCache creates an EmbeddingCache in front of next.
func NewEmbeddingCache(next Embedder, cfg Config) (*EmbeddingCache, error) {
	defaults := DefaultConfig()
	if cfg.MaxCostBytes <= 0 {
		cfg.MaxCostBytes = defaults.MaxCostBytes
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	mem, err := storecache.NewMemoryCache(cfg.MaxCostBytes, cfg.TTL)
	if err != nil {
		return nil, err
	}
	return &EmbeddingCache{next: next, store: mem, namespace: cfg.Namespace}, nil
}

// Embed returns the cached vector for text or computes and caches it.
// Errors are never cached.
func (c *EmbeddingCache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if data, ok := c.store.Get(ctx, key); ok {
		if vec, ok := decodeVector(data); ok {
			return vec, nil
		}
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) > 0 {
		c.store.Set(ctx, key, encodeVector(vec))
	}
	return vec, nil
}

// Close releases the cache.
func (c *EmbeddingCache) Close() error {
	return c.store.Close()
}

func (c *EmbeddingCache) key(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return "embedding:" + c.namespace + ":" + hex.EncodeToString(sum[:])
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, bool) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, false
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, true
}
