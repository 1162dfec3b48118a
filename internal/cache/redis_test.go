package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisPair(t *testing.T, ttl time.Duration, namespaces ...string) (*miniredis.Miniredis, []Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	stores := make([]Store, 0, len(namespaces))
	for _, ns := range namespaces {
		s, err := NewStore(DriverRedis, WithRedisClient(client), WithNamespace(ns), WithTTL(ttl))
		require.NoError(t, err)
		stores = append(stores, s)
	}
	return mr, stores
}

func TestRedisStore_PutGet(t *testing.T) {
	mr, stores := newRedisPair(t, 0, "sess-a")
	s := stores[0]
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k1", "resposta"))

	v, ok, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "resposta", v)

	stored, err := mr.Get(RedisKey("sess-a", "k1"))
	require.NoError(t, err)
	assert.Equal(t, "resposta", stored)
}

func TestRedisStore_MissIsNotAnError(t *testing.T) {
	_, stores := newRedisPair(t, 0, "sess-a")

	v, ok, err := stores[0].Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestRedisStore_TTL(t *testing.T) {
	mr, stores := newRedisPair(t, time.Minute, "sess-a")
	s := stores[0]
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k1", "v1"))
	assert.Equal(t, time.Minute, mr.TTL(RedisKey("sess-a", "k1")))

	mr.FastForward(2 * time.Minute)

	_, ok, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_LenIsPerNamespace(t *testing.T) {
	_, stores := newRedisPair(t, 0, "sess-a", "sess-b")
	a, b := stores[0], stores[1]
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, "k1", "v1"))
	require.NoError(t, a.Put(ctx, "k2", "v2"))
	require.NoError(t, b.Put(ctx, "k1", "outro"))

	assert.Equal(t, 2, a.Len(ctx))
	assert.Equal(t, 1, b.Len(ctx))

	v, ok, err := b.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "outro", v)
}

func TestRedisStore_CloseRemovesOnlyOwnKeys(t *testing.T) {
	mr, stores := newRedisPair(t, 0, "sess-a", "sess-b")
	a, b := stores[0], stores[1]
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, "k1", "v1"))
	require.NoError(t, a.Put(ctx, "k2", "v2"))
	require.NoError(t, b.Put(ctx, "k1", "v1"))
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, a.Close())

	assert.Zero(t, a.Len(ctx))
	assert.False(t, mr.Exists(RedisKey("sess-a", "k1")))
	assert.Equal(t, 1, b.Len(ctx))
	assert.True(t, mr.Exists(RedisKey("sess-b", "k1")))
	assert.True(t, mr.Exists("unrelated"))
}

func TestRedisStore_CloseWithoutKeys(t *testing.T) {
	_, stores := newRedisPair(t, 0, "sess-a")
	assert.NoError(t, stores[0].Close())
}
