// Package checkpoint persists agent conversation state per thread.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/hrygo/decorchat/plugin/ai/agent"
	"github.com/hrygo/decorchat/store"
	"github.com/hrygo/decorchat/store/cache"
)

const cachePrefix = "thread:"

// ThreadStore is the persistence Saver writes through to.
type ThreadStore interface {
	GetThread(ctx context.Context, id string) (*store.Thread, error)
	UpsertThread(ctx context.Context, upsert *store.Thread) (*store.Thread, error)
}

// Saver stores thread logs in the database, fronted by an optional tiered cache.
// With a Redis tier, reads skip the in-process tier so instances sharing a
// thread never resume from a stale log.
type Saver struct {
	store ThreadStore
	cache *cache.TieredCache
}

// NewSaver creates a Saver. c may be nil to always read from the database.
func NewSaver(s ThreadStore, c *cache.TieredCache) *Saver {
	return &Saver{store: s, cache: c}
}

// Load returns the saved messages of threadID, or none if the thread is unknown.
func (s *Saver) Load(ctx context.Context, threadID string) ([]agent.Message, error) {
	var (
		data  []byte
		found bool
		err   error
	)
	if s.cache != nil {
		data, found, err = s.cache.GetShared(ctx, cachePrefix+threadID, func(ctx context.Context, _ string) ([]byte, bool, error) {
			return s.fetch(ctx, threadID)
		})
	} else {
		data, found, err = s.fetch(ctx, threadID)
	}
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return decode(threadID, data)
}

// Save replaces the saved messages of threadID.
func (s *Saver) Save(ctx context.Context, threadID string, messages []agent.Message) error {
	data, err := encode(messages)
	if err != nil {
		return err
	}
	if _, err := s.store.UpsertThread(ctx, &store.Thread{ID: threadID, Messages: data}); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Set(ctx, cachePrefix+threadID, data)
	}
	return nil
}

func (s *Saver) fetch(ctx context.Context, threadID string) ([]byte, bool, error) {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, false, err
	}
	if thread == nil {
		return nil, false, nil
	}
	return thread.Messages, true, nil
}

// MemorySaver keeps thread logs in process memory.
type MemorySaver struct {
	mu      sync.RWMutex
	threads map[string][]agent.Message
}

// NewMemorySaver creates an empty MemorySaver.
func NewMemorySaver() *MemorySaver {
	return &MemorySaver{threads: map[string][]agent.Message{}}
}

func (m *MemorySaver) Load(_ context.Context, threadID string) ([]agent.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.threads[threadID]), nil
}

func (m *MemorySaver) Save(_ context.Context, threadID string, messages []agent.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[threadID] = slices.Clone(messages)
	return nil
}

func encode(messages []agent.Message) ([]byte, error) {
	if messages == nil {
		messages = []agent.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal messages: %w", err)
	}
	return data, nil
}

func decode(threadID string, data []byte) ([]agent.Message, error) {
	var messages []agent.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages of thread %s: %w", threadID, err)
	}
	return messages, nil
}
