//go:build integration

package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/claimguard/cachekit/pkg/cache"
	"github.com/claimguard/cachekit/pkg/redis"
)

const testRedisURL = "redis://localhost:6379/0"

func newTestRedisClient(t *testing.T) goredis.UniversalClient {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = testRedisURL
	}

	ctx := context.Background()
	client, err := redis.Open(ctx, url)
	require.NoError(t, err, "failed to connect to Redis")

	t.Cleanup(func() {
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})

	return client
}

func TestRedis_RoundTrip(t *testing.T) {
	t.Parallel()

	client := newTestRedisClient(t)
	c := cache.NewRedis[map[string]string](client, nil, cache.WithPrefix("it-roundtrip"))

	ctx := context.Background()
	value := map[string]string{"addr": "1 Main St"}
	require.NoError(t, c.Set(ctx, "property:data:p1", value, time.Minute))

	got, err := c.Get(ctx, "property:data:p1")
	require.NoError(t, err)
	require.Equal(t, value, got)

	require.NoError(t, c.Delete(ctx, "property:data:p1"))
	_, err = c.Get(ctx, "property:data:p1")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestRedis_GetMissing(t *testing.T) {
	t.Parallel()

	client := newTestRedisClient(t)
	c := cache.NewRedis[string](client, nil, cache.WithPrefix("it-miss"))

	_, err := c.Get(context.Background(), "missing")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestRedis_TTLExpiry(t *testing.T) {
	t.Parallel()

	client := newTestRedisClient(t)
	c := cache.NewRedis[string](client, nil, cache.WithPrefix("it-ttl"))

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", time.Second))

	val, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", val)

	time.Sleep(1500 * time.Millisecond)

	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestRedis_NegativeTTLStoresNothing(t *testing.T) {
	t.Parallel()

	client := newTestRedisClient(t)
	c := cache.NewRedis[string](client, nil, cache.WithPrefix("it-nottl"))

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", -1))

	has, err := c.Has(ctx, "k")
	require.NoError(t, err)
	require.False(t, has)
}

func TestRedis_InvalidateByTag(t *testing.T) {
	t.Parallel()

	client := newTestRedisClient(t)
	c := cache.NewRedis[string](client, nil, cache.WithPrefix("it-tags"))

	ctx := context.Background()
	require.NoError(t, c.SetTagged(ctx, "claim:data:c1", "a", time.Minute, "claims"))
	require.NoError(t, c.SetTagged(ctx, "claim:data:c2", "b", time.Minute, "claims"))
	require.NoError(t, c.SetTagged(ctx, "property:data:p1", "c", time.Minute, "properties"))

	n, err := c.InvalidateByTag(ctx, "claims")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = c.Get(ctx, "claim:data:c1")
	require.ErrorIs(t, err, cache.ErrNotFound)

	val, err := c.Get(ctx, "property:data:p1")
	require.NoError(t, err)
	require.Equal(t, "c", val)
}

func TestRedis_InvalidateByPattern(t *testing.T) {
	t.Parallel()

	client := newTestRedisClient(t)
	c := cache.NewRedis[string](client, nil, cache.WithPrefix("it-pattern"))

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "user:session:123", "s", time.Minute))
	require.NoError(t, c.Set(ctx, "user:profile:123", "p", time.Minute))
	require.NoError(t, c.Set(ctx, "user:profile:999", "q", time.Minute))

	n, err := c.InvalidateByPattern(ctx, "user:*:123")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	has, err := c.Has(ctx, "user:profile:999")
	require.NoError(t, err)
	require.True(t, has)
}

func TestRedis_ClearWithPrefix(t *testing.T) {
	t.Parallel()

	client := newTestRedisClient(t)
	a := cache.NewRedis[string](client, nil, cache.WithPrefix("it-clear-a"))
	b := cache.NewRedis[string](client, nil, cache.WithPrefix("it-clear-b"))

	ctx := context.Background()
	require.NoError(t, a.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, b.Set(ctx, "k", "v", time.Minute))

	require.NoError(t, a.Clear(ctx))

	has, err := a.Has(ctx, "k")
	require.NoError(t, err)
	require.False(t, has)

	has, err = b.Has(ctx, "k")
	require.NoError(t, err)
	require.True(t, has, "clear must respect the prefix boundary")
}
