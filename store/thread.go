package store

import (
	"context"
)

// Thread is the persisted message log of one conversation.
type Thread struct {
	ID string
	// Messages is the JSON encoded, ordered message log.
	Messages  []byte
	CreatedTs int64
	UpdatedTs int64
}

// UpsertThread creates the thread or replaces its message log.
func (s *Store) UpsertThread(ctx context.Context, upsert *Thread) (*Thread, error) {
	return s.driver.UpsertThread(ctx, upsert)
}

// GetThread returns the thread with the given id, or nil if none exists.
func (s *Store) GetThread(ctx context.Context, id string) (*Thread, error) {
	return s.driver.GetThread(ctx, id)
}
