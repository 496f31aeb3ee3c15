package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// TieredOption configures the tiered cache.
type TieredOption func(*tieredOptions)

type tieredOptions struct {
	healthProbe func() bool
	logger      *slog.Logger
}

func defaultTieredOptions() *tieredOptions {
	return &tieredOptions{
		healthProbe: nil,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithHealthProbe sets a probe consulted before every remote-tier
// operation. When the probe reports false the remote tier is skipped
// entirely, avoiding command timeouts against a backend known to be down.
// Wire it to the redis client adapter's Healthy method.
func WithHealthProbe(probe func() bool) TieredOption {
	return func(o *tieredOptions) {
		o.healthProbe = probe
	}
}

// WithTieredLogger sets the logger for degraded-mode warnings.
// Default: discard.
func WithTieredLogger(l *slog.Logger) TieredOption {
	return func(o *tieredOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Tiered is a two-tier cache: a shared remote tier (Redis) backed by an
// in-process local tier. The remote tier is authoritative when healthy,
// since it is shared across processes; the local tier is a write-through
// mirror that keeps the cache serving when the backend is absent or down.
//
// Remote failures degrade silently: reads fall back to the local tier and
// writes become local-only, logged at warn level. Only the local tier can
// surface an error to the caller.
//
// Tiered is not linearizable: a Set racing a Delete on the same key can
// leave the tiers briefly inconsistent (last writer wins per tier). That
// is acceptable for cache semantics, at worst producing a stale read.
type Tiered[V any] struct {
	remote TaggedCache[V]
	local  TaggedCache[V]
	opts   *tieredOptions
	stats  stats
}

// NewTiered creates a two-tier cache. remote may be nil, in which case
// every operation is served by the local tier alone.
func NewTiered[V any](remote, local TaggedCache[V], opts ...TieredOption) *Tiered[V] {
	o := defaultTieredOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Tiered[V]{
		remote: remote,
		local:  local,
		opts:   o,
	}
}

// remoteAvailable reports whether the remote tier should be consulted.
func (t *Tiered[V]) remoteAvailable() bool {
	if t.remote == nil {
		return false
	}
	if t.opts.healthProbe != nil {
		return t.opts.healthProbe()
	}
	return true
}

// Get reads through the tiers: remote first when available (it is the
// shared, authoritative copy), then the local mirror. Remote errors are
// logged and treated as a miss.
func (t *Tiered[V]) Get(ctx context.Context, key string) (V, error) {
	start := time.Now()

	if t.remoteAvailable() {
		v, err := t.remote.Get(ctx, key)
		switch {
		case err == nil:
			t.stats.recordHit(time.Since(start))
			return v, nil
		case !errors.Is(err, ErrNotFound):
			t.opts.logger.WarnContext(ctx, "remote cache read failed, falling back to local tier",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	v, err := t.local.Get(ctx, key)
	if err != nil {
		t.stats.recordMiss(time.Since(start))
		return v, err
	}

	t.stats.recordHit(time.Since(start))
	return v, nil
}

// Set writes to the remote tier best-effort and always to the local
// mirror. A remote failure is logged, never surfaced.
func (t *Tiered[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	return t.SetTagged(ctx, key, value, ttl)
}

// SetTagged stores a value with tags in both tiers.
func (t *Tiered[V]) SetTagged(ctx context.Context, key string, value V, ttl time.Duration, tags ...string) error {
	if t.remoteAvailable() {
		if err := t.remote.SetTagged(ctx, key, value, ttl, tags...); err != nil {
			t.opts.logger.WarnContext(ctx, "remote cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	return t.local.SetTagged(ctx, key, value, ttl, tags...)
}

// Delete removes a key from both tiers unconditionally. The remote
// delete is attempted even when the health probe reports the backend
// down, so a recovering backend does not resurrect deleted entries.
func (t *Tiered[V]) Delete(ctx context.Context, key string) error {
	if t.remote != nil {
		if err := t.remote.Delete(ctx, key); err != nil {
			t.opts.logger.WarnContext(ctx, "remote cache delete failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	return t.local.Delete(ctx, key)
}

// Has checks the remote tier when available, then the local tier.
func (t *Tiered[V]) Has(ctx context.Context, key string) (bool, error) {
	if t.remoteAvailable() {
		if ok, err := t.remote.Has(ctx, key); err == nil && ok {
			return true, nil
		}
	}
	return t.local.Has(ctx, key)
}

// Clear flushes both tiers. Destructive; intended for admin and test use.
func (t *Tiered[V]) Clear(ctx context.Context) error {
	if t.remoteAvailable() {
		if err := t.remote.Clear(ctx); err != nil {
			t.opts.logger.WarnContext(ctx, "remote cache clear failed",
				slog.String("error", err.Error()),
			)
		}
	}

	return t.local.Clear(ctx)
}

// InvalidateByTag removes tagged entries from both tiers and returns the
// larger of the two removal counts. The tiers mirror each other, so the
// counts only diverge after a degraded period.
func (t *Tiered[V]) InvalidateByTag(ctx context.Context, tag string) (int, error) {
	var remoteCount int
	if t.remoteAvailable() {
		n, err := t.remote.InvalidateByTag(ctx, tag)
		if err != nil {
			t.opts.logger.WarnContext(ctx, "remote tag invalidation failed",
				slog.String("tag", tag),
				slog.String("error", err.Error()),
			)
		} else {
			remoteCount = n
		}
	}

	localCount, err := t.local.InvalidateByTag(ctx, tag)
	if err != nil {
		return remoteCount, err
	}

	return max(remoteCount, localCount), nil
}

// InvalidateByPattern removes pattern-matching entries from both tiers.
func (t *Tiered[V]) InvalidateByPattern(ctx context.Context, pattern string) (int, error) {
	var remoteCount int
	if t.remoteAvailable() {
		n, err := t.remote.InvalidateByPattern(ctx, pattern)
		if err != nil {
			t.opts.logger.WarnContext(ctx, "remote pattern invalidation failed",
				slog.String("pattern", pattern),
				slog.String("error", err.Error()),
			)
		} else {
			remoteCount = n
		}
	}

	localCount, err := t.local.InvalidateByPattern(ctx, pattern)
	if err != nil {
		return remoteCount, err
	}

	return max(remoteCount, localCount), nil
}

// Metrics returns hit/miss activity observed at the tiered level,
// combined with entry count and size from the local tier when it exposes
// them.
func (t *Tiered[V]) Metrics() Metrics {
	snap := t.stats.snapshot()
	if mp, ok := t.local.(interface{ Metrics() Metrics }); ok {
		local := mp.Metrics()
		snap.Entries = local.Entries
		snap.SizeBytes = local.SizeBytes
		snap.Evictions = local.Evictions
	}
	return snap
}

// ObserveFetch forwards compute durations to the rolling fetch-cost
// estimate.
func (t *Tiered[V]) ObserveFetch(d time.Duration) {
	t.stats.observeFetch(d)
}

// Close closes the local tier. The remote tier's client lifecycle is
// owned by the caller.
func (t *Tiered[V]) Close() error {
	return t.local.Close()
}

var _ TaggedCache[any] = (*Tiered[any])(nil)
var _ FetchObserver = (*Tiered[any])(nil)
