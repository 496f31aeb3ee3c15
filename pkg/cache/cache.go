package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a generic key-value cache with TTL support.
//
// TTL semantics for Set:
//   - Positive duration: item expires after this duration
//   - Zero: use the cache's configured default TTL
//   - Negative: the write is a no-op; nothing is ever stored with a
//     non-positive effective TTL
type Cache[V any] interface {
	// Get retrieves a value by key.
	// Returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) (V, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) error

	// Has checks whether a key exists and has not expired.
	Has(ctx context.Context, key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear(ctx context.Context) error

	// Close releases resources (stops background goroutines, etc.).
	Close() error
}

// TaggedCache extends Cache with entry tagging and bulk invalidation.
// Tags are unordered string labels attached at write time; invalidation
// removes every entry carrying a tag or matching a wildcard pattern.
type TaggedCache[V any] interface {
	Cache[V]

	// SetTagged stores a value with the given TTL and tags.
	SetTagged(ctx context.Context, key string, value V, ttl time.Duration, tags ...string) error

	// InvalidateByTag removes every entry tagged with tag.
	// Returns the number of entries removed.
	InvalidateByTag(ctx context.Context, tag string) (int, error)

	// InvalidateByPattern removes every entry whose key matches the
	// wildcard pattern ("*" matches any run of characters).
	// Returns the number of entries removed.
	InvalidateByPattern(ctx context.Context, pattern string) (int, error)
}

// Marshaler serializes and deserializes cache values for storage backends
// that require byte representation (e.g., Redis, or the in-memory cache
// when a byte budget or compression is configured).
type Marshaler[V any] interface {
	Marshal(v V) ([]byte, error)
	Unmarshal(data []byte) (V, error)
}

type jsonMarshaler[V any] struct{}

func (jsonMarshaler[V]) Marshal(v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrMarshal, err)
	}
	return data, nil
}

func (jsonMarshaler[V]) Unmarshal(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}
	return v, nil
}

// RawMarshaler passes []byte values through unchanged. Use it for caches
// whose callers handle serialization themselves.
type RawMarshaler struct{}

func (RawMarshaler) Marshal(v []byte) ([]byte, error)      { return v, nil }
func (RawMarshaler) Unmarshal(data []byte) ([]byte, error) { return data, nil }

var _ Marshaler[[]byte] = RawMarshaler{}

// FetchObserver is implemented by caches that keep a rolling estimate of
// compute cost for the "cost saved" metric. GetOrSet reports every compute
// duration to the cache when the cache supports it.
type FetchObserver interface {
	ObserveFetch(d time.Duration)
}

// flightGroups holds one singleflight group per cache instance. Scoping
// the group to the instance keeps identical key strings on unrelated
// caches (or caches of different value types) from sharing a flight.
// Groups live as long as the process; the map is bounded by the number
// of cache instances ever constructed.
var flightGroups sync.Map

func flightGroup(c any) *singleflight.Group {
	if g, ok := flightGroups.Load(c); ok {
		return g.(*singleflight.Group)
	}
	g, _ := flightGroups.LoadOrStore(c, new(singleflight.Group))
	return g.(*singleflight.Group)
}

type getOrSetResult[V any] struct {
	val V
	ttl time.Duration
}

// GetOrSet retrieves a value from the cache, or calls fn to compute it on a miss.
// Uses singleflight to prevent cache stampedes: if multiple goroutines call
// GetOrSet with the same key concurrently against the same cache, fn is
// called only once and every caller observes the same outcome. Flights are
// scoped per cache instance, so the same key on two different caches never
// shares a computation.
//
// The callback returns the value, a TTL for caching, and an error.
// If fn returns an error, nothing is cached and the error is returned to
// every waiting caller. The returned bool reports whether the value came
// from the cache.
func GetOrSet[V any](ctx context.Context, c Cache[V], key string, fn func(ctx context.Context) (V, time.Duration, error)) (V, bool, error) {
	// Fast path: try cache first.
	if v, err := c.Get(ctx, key); err == nil {
		return v, true, nil
	}

	// Slow path: use singleflight to deduplicate concurrent misses.
	v, err, _ := flightGroup(c).Do(key, func() (any, error) {
		start := time.Now()
		val, ttl, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if obs, ok := c.(FetchObserver); ok {
			obs.ObserveFetch(time.Since(start))
		}
		return getOrSetResult[V]{val: val, ttl: ttl}, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}

	r := v.(getOrSetResult[V])

	// Best-effort cache the result.
	_ = c.Set(ctx, key, r.val, r.ttl)

	return r.val, false, nil
}
