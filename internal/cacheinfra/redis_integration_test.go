//go:build integration

package cacheinfra

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisDriver(t *testing.T, scope string) *RedisDriver {
	t.Helper()

	cfg := DefaultRedisConfig()
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.URL = url
	}
	cfg.RetryAttempts = 1

	ctx := context.Background()
	client, err := OpenRedis(ctx, cfg)
	require.NoError(t, err, "failed to connect to Redis")

	d := NewOwnedRedisDriver(client, scope)
	t.Cleanup(func() {
		_ = d.Flush(ctx)
		_ = d.Close()
	})
	return d
}

func TestRedisDriver_PutGet(t *testing.T) {
	ctx := context.Background()
	d := newTestRedisDriver(t, "it-putget")

	_, ok, err := d.Get(ctx, "it-putget:missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Put(ctx, "it-putget:a", []byte("rows"), time.Minute))

	got, ok, err := d.Get(ctx, "it-putget:a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "rows", string(got))

	ttl, err := d.client.TTL(ctx, "it-putget:a").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisDriver_ForeverAndZero(t *testing.T) {
	ctx := context.Background()
	d := newTestRedisDriver(t, "it-forever")

	require.NoError(t, d.Put(ctx, "it-forever:f", []byte("1"), -1))
	ttl, err := d.client.TTL(ctx, "it-forever:f").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "persistent keys report -1")

	require.NoError(t, d.Put(ctx, "it-forever:f", []byte("2"), 0))
	_, ok, err := d.Get(ctx, "it-forever:f")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisDriver_ScopedFlush(t *testing.T) {
	ctx := context.Background()
	d := newTestRedisDriver(t, "it-flush")

	require.NoError(t, d.Put(ctx, "it-flush:a", []byte("1"), time.Minute))
	require.NoError(t, d.Put(ctx, "it-flush:b", []byte("2"), time.Minute))
	require.NoError(t, d.client.Set(ctx, "it-outside", "3", time.Minute).Err())
	t.Cleanup(func() { _ = d.client.Del(ctx, "it-outside").Err() })

	require.NoError(t, d.Flush(ctx))

	_, ok, _ := d.Get(ctx, "it-flush:a")
	assert.False(t, ok)
	_, ok, _ = d.Get(ctx, "it-outside")
	assert.True(t, ok)
}
