package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/claimguard/cachekit/pkg/cache"
	"github.com/claimguard/cachekit/pkg/ratelimit"
)

// brokenStore simulates a cache outage: every operation fails.
type brokenStore struct{}

var errDown = errors.New("store down")

func (brokenStore) Get(context.Context, string) (ratelimit.Counter, error) {
	return ratelimit.Counter{}, errDown
}
func (brokenStore) Set(context.Context, string, ratelimit.Counter, time.Duration) error {
	return errDown
}
func (brokenStore) Delete(context.Context, string) error      { return errDown }
func (brokenStore) Has(context.Context, string) (bool, error) { return false, errDown }
func (brokenStore) Clear(context.Context) error               { return errDown }
func (brokenStore) Close() error                              { return nil }

func newLimiter(t *testing.T, opts ...ratelimit.Option) *ratelimit.Limiter {
	t.Helper()

	store := cache.NewMemory[ratelimit.Counter](nil)
	t.Cleanup(func() { _ = store.Close() })

	return ratelimit.New(store, opts...)
}

func TestLimiter_Allow(t *testing.T) {
	t.Parallel()

	t.Run("enforces the limit boundary", func(t *testing.T) {
		t.Parallel()

		l := newLimiter(t)
		ctx := context.Background()

		// First N calls pass with strictly decreasing remaining.
		for want := 4; want >= 0; want-- {
			d := l.Allow(ctx, "user-42", "login", 5, time.Minute)
			require.True(t, d.Allowed)
			require.Equal(t, want, d.Remaining)
		}

		// Call N+1 is denied.
		d := l.Allow(ctx, "user-42", "login", 5, time.Minute)
		require.False(t, d.Allowed)
		require.Zero(t, d.Remaining)
	})

	t.Run("denied calls do not consume the window", func(t *testing.T) {
		t.Parallel()

		l := newLimiter(t)
		ctx := context.Background()

		first := l.Allow(ctx, "id", "act", 1, time.Minute)
		require.True(t, first.Allowed)

		// Repeated denials keep the original reset time.
		for i := 0; i < 3; i++ {
			d := l.Allow(ctx, "id", "act", 1, time.Minute)
			require.False(t, d.Allowed)
			require.Equal(t, first.ResetAt.Unix(), d.ResetAt.Unix())
		}
	})

	t.Run("window expiry resets the counter", func(t *testing.T) {
		t.Parallel()

		l := newLimiter(t)
		ctx := context.Background()

		d := l.Allow(ctx, "id", "act", 2, 30*time.Millisecond)
		require.True(t, d.Allowed)
		d = l.Allow(ctx, "id", "act", 2, 30*time.Millisecond)
		require.True(t, d.Allowed)
		d = l.Allow(ctx, "id", "act", 2, 30*time.Millisecond)
		require.False(t, d.Allowed)

		time.Sleep(40 * time.Millisecond)

		d = l.Allow(ctx, "id", "act", 2, 30*time.Millisecond)
		require.True(t, d.Allowed)
		require.Equal(t, 1, d.Remaining)
	})

	t.Run("independent identifiers and actions", func(t *testing.T) {
		t.Parallel()

		l := newLimiter(t)
		ctx := context.Background()

		require.True(t, l.Allow(ctx, "a", "login", 1, time.Minute).Allowed)
		require.False(t, l.Allow(ctx, "a", "login", 1, time.Minute).Allowed)

		// Different identifier or action is unaffected.
		require.True(t, l.Allow(ctx, "b", "login", 1, time.Minute).Allowed)
		require.True(t, l.Allow(ctx, "a", "upload", 1, time.Minute).Allowed)
	})
}

func TestLimiter_FailurePolicy(t *testing.T) {
	t.Parallel()

	t.Run("fails open by default", func(t *testing.T) {
		t.Parallel()

		l := ratelimit.New(brokenStore{})
		d := l.Allow(context.Background(), "id", "act", 5, time.Minute)
		require.True(t, d.Allowed)
		require.Equal(t, 4, d.Remaining)
	})

	t.Run("fails closed when configured", func(t *testing.T) {
		t.Parallel()

		l := ratelimit.New(brokenStore{}, ratelimit.WithFailClosed())
		d := l.Allow(context.Background(), "id", "act", 5, time.Minute)
		require.False(t, d.Allowed)
		require.Zero(t, d.Remaining)
	})
}
