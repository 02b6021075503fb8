package tokenstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store, err := NewRedisStore(rdb, "ac", "device-1", testSealer(t))
	require.NoError(t, err)
	return store, mr
}

func TestRedisStoreSaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStoreTest(t)

	p := testPair()
	require.NoError(t, store.Save(ctx, p))

	raw, err := mr.Get("ac:tok:device-1")
	require.NoError(t, err)
	assert.NotContains(t, raw, p.AccessToken)

	ttl := mr.TTL("ac:tok:device-1")
	assert.Greater(t, ttl, 6*24*time.Hour)
	assert.LessOrEqual(t, ttl, 7*24*time.Hour)

	got, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p.AccessToken, got.AccessToken)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreExpiresWithRefreshToken(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStoreTest(t)

	require.NoError(t, store.Save(ctx, testPair()))
	mr.FastForward(8 * 24 * time.Hour)

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreRejectsBlobMovedBetweenIdentities(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStoreTest(t)
	require.NoError(t, store.Save(ctx, testPair()))

	raw, err := mr.Get("ac:tok:device-1")
	require.NoError(t, err)
	require.NoError(t, mr.Set("ac:tok:device-2", raw))

	other, err := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "ac", "device-2", testSealer(t))
	require.NoError(t, err)
	_, _, err = other.Load(ctx)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	mr.Close()

	_, _, err := store.Load(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}
