//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/claimguard/cachekit/pkg/redis"
)

const testRedisURL = "redis://localhost:6379/0"

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = testRedisURL
	}

	ctx := context.Background()
	rdb, err := redis.Open(ctx, url)
	require.NoError(t, err, "failed to connect to Redis")

	client := redis.NewClient(rdb, redis.WithPingInterval(time.Hour))

	// Tests clean their own keys; flushing here would race parallel
	// tests still running against the shared database.
	t.Cleanup(func() {
		_ = client.Close()
		_ = rdb.Close()
	})

	return client
}

func TestClient_GetSetRoundTrip(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	require.True(t, client.Set(ctx, "it:kv:claim", `{"status":"submitted"}`, time.Minute))

	val, ok := client.Get(ctx, "it:kv:claim")
	require.True(t, ok)
	require.Equal(t, `{"status":"submitted"}`, val)

	require.True(t, client.Exists(ctx, "it:kv:claim"))
	require.Equal(t, int64(1), client.Del(ctx, "it:kv:claim"))
	require.False(t, client.Exists(ctx, "it:kv:claim"))
}

func TestClient_Expire(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	// Stored without expiry; Expire attaches one after the fact.
	require.True(t, client.Set(ctx, "it:expire:key", "v", 0))
	require.True(t, client.Expire(ctx, "it:expire:key", 50*time.Millisecond))

	time.Sleep(100 * time.Millisecond)
	_, ok := client.Get(ctx, "it:expire:key")
	require.False(t, ok)

	require.False(t, client.Expire(ctx, "it:expire:missing", time.Minute))
}

func TestClient_MGetOmitsMissingKeys(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	require.True(t, client.MSet(ctx, map[string]string{
		"it:mget:a": "1",
		"it:mget:b": "2",
	}))
	t.Cleanup(func() { client.Del(context.Background(), "it:mget:a", "it:mget:b") })

	got := client.MGet(ctx, "it:mget:a", "it:mget:missing", "it:mget:b")
	require.Equal(t, map[string]string{
		"it:mget:a": "1",
		"it:mget:b": "2",
	}, got, "missing keys are absent from the result, not empty strings")
}

func TestClient_HashOperations(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	t.Cleanup(func() { client.Del(context.Background(), "it:hash:claim") })

	require.True(t, client.HSet(ctx, "it:hash:claim", "status", "approved"))
	require.True(t, client.HSet(ctx, "it:hash:claim", "amount", "125000"))

	val, ok := client.HGet(ctx, "it:hash:claim", "status")
	require.True(t, ok)
	require.Equal(t, "approved", val)

	_, ok = client.HGet(ctx, "it:hash:claim", "absent-field")
	require.False(t, ok)

	all := client.HGetAll(ctx, "it:hash:claim")
	require.Equal(t, map[string]string{
		"status": "approved",
		"amount": "125000",
	}, all)

	require.Empty(t, client.HGetAll(ctx, "it:hash:missing"))
}

func TestClient_KeysAndScan(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	// Enough keys to force the SCAN cursor through multiple steps.
	const total = 250
	pairs := make(map[string]string, total)
	for i := range total {
		pairs[fmt.Sprintf("it:scan:%03d", i)] = "v"
	}
	require.True(t, client.MSet(ctx, pairs))

	keys := client.Keys(ctx, "it:scan:*")
	require.Len(t, keys, total)
	t.Cleanup(func() { client.Del(context.Background(), keys...) })

	var (
		cursor  uint64
		scanned int
	)
	for {
		batch, next := client.Scan(ctx, cursor, "it:scan:*", 100)
		scanned += len(batch)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	require.Equal(t, total, scanned)
}

// Not parallel: FLUSHDB wipes the shared database, so this must finish
// before the parallel tests begin writing.
func TestClient_FlushDB(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.True(t, client.Set(ctx, "it:flush:key", "v", time.Minute))
	require.True(t, client.FlushDB(ctx))
	require.False(t, client.Exists(ctx, "it:flush:key"))
}

func TestClient_PingHealthy(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)

	require.True(t, client.Ping(context.Background()))
	require.True(t, client.Healthy())
	require.Zero(t, client.Reconnects())
}
