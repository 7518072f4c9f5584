package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/barong-iam/core"
)

// newTestRedisStore connects to REDIS_URL or skips the test
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	s := NewRedisStore(client)
	require.NoError(t, s.Ping(context.Background()))
	return s
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()
	t.Cleanup(func() { s.Delete(ctx, key) })

	_, err := s.Get(ctx, key)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.Set(ctx, key, "v", time.Minute))

	v, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	ok, err := s.SetNX(ctx, key, "other", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctx, key))
	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisStore_TTL(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	require.NoError(t, s.Set(ctx, key, "v", 50*time.Millisecond))
	assert.Eventually(t, func() bool {
		ok, err := s.Exists(ctx, key)
		return err == nil && !ok
	}, 2*time.Second, 20*time.Millisecond)
}
