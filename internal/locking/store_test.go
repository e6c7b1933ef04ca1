package locking

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func TestTryCreateIsFirstWriterWins(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.TryCreate(ctx, "lock:booking:1", "token-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, created)

	// second writer must lose regardless of token
	created, err = store.TryCreate(ctx, "lock:booking:1", "token-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, created)

	// the original token survived
	token, _, ok, err := store.Get(ctx, "lock:booking:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "token-a", token)
}

func TestCompareAndDeleteRequiresOwnership(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.TryCreate(ctx, "lock:booking:1", "token-a", time.Minute)
	require.NoError(t, err)

	// wrong token is a no-op
	deleted, err := store.CompareAndDelete(ctx, "lock:booking:1", "token-b")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, _, ok, err := store.Get(ctx, "lock:booking:1")
	require.NoError(t, err)
	assert.True(t, ok)

	// right token deletes
	deleted, err = store.CompareAndDelete(ctx, "lock:booking:1", "token-a")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, _, ok, err = store.Get(ctx, "lock:booking:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompareAndExtendRefreshesOnlyForOwner(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.TryCreate(ctx, "lock:booking:1", "token-a", 10*time.Second)
	require.NoError(t, err)

	extended, err := store.CompareAndExtend(ctx, "lock:booking:1", "token-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, extended)

	extended, err = store.CompareAndExtend(ctx, "lock:booking:1", "token-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, extended)

	_, remaining, ok, err := store.Get(ctx, "lock:booking:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Greater(t, remaining, 10*time.Second)

	// the refreshed expiry still counts down and fires
	mr.FastForward(2 * time.Minute)
	_, _, ok, err = store.Get(ctx, "lock:booking:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetReportsRemainingTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.TryCreate(ctx, "lock:booking:1", "token-a", time.Minute)
	require.NoError(t, err)

	mr.FastForward(20 * time.Second)

	token, remaining, ok, err := store.Get(ctx, "lock:booking:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "token-a", token)
	assert.LessOrEqual(t, remaining, 40*time.Second)
	assert.Greater(t, remaining, time.Duration(0))
}

func TestListKeysFiltersByPrefix(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"lock:booking:1", "lock:driver:9", "other:thing"} {
		_, err := store.TryCreate(ctx, key, "t", time.Minute)
		require.NoError(t, err)
	}

	keys, err := store.ListKeys(ctx, "lock:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lock:booking:1", "lock:driver:9"}, keys)
}

func TestTryCreateWrapsStoreFailure(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewRedisStore(rdb)

	mock.ExpectSetNX("lock:booking:1", "token-a", time.Minute).SetErr(redis.ErrClosed)

	_, err := store.TryCreate(context.Background(), "lock:booking:1", "token-a", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock store")
	require.NoError(t, mock.ExpectationsWereMet())
}
