// ABOUTME: Tests for the SQLite KV backend
// ABOUTME: Covers get/put/delete round trips, overwrite, and missing keys

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKV(t *testing.T) *SQLiteKV {
	t.Helper()
	kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestSQLiteKV_RoundTrip(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "tenant:alice", `{"backend_id":"bk_1"}`))

	got, err := kv.Get(ctx, "tenant:alice")
	require.NoError(t, err)
	assert.Equal(t, `{"backend_id":"bk_1"}`, got)
}

func TestSQLiteKV_GetMissing(t *testing.T) {
	kv := newTestKV(t)

	_, err := kv.Get(context.Background(), "tenant:nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteKV_PutOverwrites(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "gate:alice", "1"))
	require.NoError(t, kv.Put(ctx, "gate:alice", "2"))

	got, err := kv.Get(ctx, "gate:alice")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestSQLiteKV_Delete(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "exchange:tok", "rec"))
	require.NoError(t, kv.Delete(ctx, "exchange:tok"))

	_, err := kv.Get(ctx, "exchange:tok")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is not an error
	assert.NoError(t, kv.Delete(ctx, "exchange:tok"))
}
