package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// newUnreachableClient returns an adapter pointed at a port nothing
// listens on, with timeouts short enough for unit tests.
func newUnreachableClient(t *testing.T) *Client {
	t.Helper()

	rdb := goredis.NewClient(&goredis.Options{
		Addr:            "127.0.0.1:1",
		DialTimeout:     20 * time.Millisecond,
		ReadTimeout:     20 * time.Millisecond,
		WriteTimeout:    20 * time.Millisecond,
		MaxRetries:      -1, // disable go-redis internal retries
		PoolTimeout:     20 * time.Millisecond,
		MinIdleConns:    0,
		ConnMaxIdleTime: time.Minute,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	c := NewClient(rdb, WithPingInterval(time.Hour))
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestClient_FailOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("Get returns miss on backend error", func(t *testing.T) {
		t.Parallel()

		c := newUnreachableClient(t)
		val, ok := c.Get(ctx, "k")
		require.False(t, ok)
		require.Empty(t, val)
	})

	t.Run("Set returns false on backend error", func(t *testing.T) {
		t.Parallel()

		c := newUnreachableClient(t)
		require.False(t, c.Set(ctx, "k", "v", time.Minute))
	})

	t.Run("Del returns zero on backend error", func(t *testing.T) {
		t.Parallel()

		c := newUnreachableClient(t)
		require.Zero(t, c.Del(ctx, "k"))
	})

	t.Run("HGetAll returns empty map on backend error", func(t *testing.T) {
		t.Parallel()

		c := newUnreachableClient(t)
		require.Empty(t, c.HGetAll(ctx, "k"))
	})

	t.Run("command failure marks the client unhealthy", func(t *testing.T) {
		t.Parallel()

		c := newUnreachableClient(t)
		require.True(t, c.Healthy(), "adapter starts healthy")

		_, _ = c.Get(ctx, "k")
		require.False(t, c.Healthy())
	})

	t.Run("Ping reports failure", func(t *testing.T) {
		t.Parallel()

		c := newUnreachableClient(t)
		require.False(t, c.Ping(ctx))
		require.False(t, c.Healthy())
	})
}

func TestClient_Close(t *testing.T) {
	t.Parallel()

	c := newUnreachableClient(t)
	require.NoError(t, c.Close())
	// Close is idempotent.
	require.NoError(t, c.Close())
}
