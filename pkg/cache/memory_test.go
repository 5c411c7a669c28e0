package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", "value", 0))

	value, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "value", value)
}

func TestMemoryStoreMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreTTL(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", "value", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := store.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDel(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", "1", 0))
	require.NoError(t, store.Set(ctx, "b", "2", 0))
	require.NoError(t, store.Del(ctx, "a", "b"))

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorePing(t *testing.T) {
	assert.NoError(t, NewMemoryStore().Ping(context.Background()))
}
