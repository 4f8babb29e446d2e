package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/decorchat/store"
)

func TestThreadStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	thread, err := ts.GetThread(ctx, "1700000000000")
	require.NoError(t, err)
	assert.Nil(t, thread)

	created, err := ts.UpsertThread(ctx, &store.Thread{
		ID:       "1700000000000",
		Messages: []byte(`[{"role":"user","content":"hi"}]`),
	})
	require.NoError(t, err)
	assert.NotZero(t, created.CreatedTs)

	_, err = ts.UpsertThread(ctx, &store.Thread{
		ID:       "1700000000000",
		Messages: []byte(`[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`),
	})
	require.NoError(t, err)

	thread, err = ts.GetThread(ctx, "1700000000000")
	require.NoError(t, err)
	require.NotNil(t, thread)
	assert.JSONEq(t, `[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`, string(thread.Messages))

	_, err = ts.UpsertThread(ctx, &store.Thread{})
	require.Error(t, err)
}
