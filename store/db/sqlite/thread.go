package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/decorchat/store"
)

func (d *DB) UpsertThread(ctx context.Context, upsert *store.Thread) (*store.Thread, error) {
	if upsert.ID == "" {
		return nil, errors.New("thread id is required")
	}
	messages := upsert.Messages
	if len(messages) == 0 {
		messages = []byte("[]")
	}
	now := time.Now().Unix()

	stmt := `
		INSERT INTO thread (thread_id, messages, created_ts, updated_ts)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (thread_id)
		DO UPDATE SET
			messages = excluded.messages,
			updated_ts = excluded.updated_ts
		RETURNING created_ts, updated_ts
	`
	if err := d.db.QueryRowContext(ctx, stmt, upsert.ID, string(messages), now, now).Scan(&upsert.CreatedTs, &upsert.UpdatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to upsert thread")
	}
	return upsert, nil
}

func (d *DB) GetThread(ctx context.Context, id string) (*store.Thread, error) {
	thread := &store.Thread{}
	var messages string
	err := d.db.QueryRowContext(ctx,
		`SELECT thread_id, messages, created_ts, updated_ts FROM thread WHERE thread_id = ?`, id,
	).Scan(&thread.ID, &messages, &thread.CreatedTs, &thread.UpdatedTs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get thread")
	}
	thread.Messages = []byte(messages)
	return thread, nil
}
