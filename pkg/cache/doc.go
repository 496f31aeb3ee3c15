// Package cache provides the cache engine behind cachekit: a generic
// Cache interface with in-memory, Redis, and two-tier implementations,
// all sharing tag-based and pattern-based bulk invalidation.
//
// # Interfaces
//
// [Cache] is generic over value type V:
//
//   - Get(ctx, key) (V, error) — retrieve a value
//   - Set(ctx, key, value, ttl) error — store a value with TTL
//   - Delete(ctx, key) error — remove a key
//   - Has(ctx, key) (bool, error) — check existence
//   - Clear(ctx) error — remove all entries
//   - Close() error — release resources
//
// [TaggedCache] adds SetTagged, InvalidateByTag, and InvalidateByPattern
// so mutating writes elsewhere in the application can drop every related
// entry in one call.
//
// TTL semantics for Set:
//   - Positive duration: item expires after this duration
//   - Zero: use the cache's configured default TTL (1 hour by default)
//   - Negative: the write is a no-op; nothing is stored
//
// # In-Memory Cache
//
// [NewMemory] is a bounded in-process cache: a hash map for O(1) lookups,
// a doubly-linked list for O(1) LRU ordering, TTL expiry via a background
// janitor plus lazy checks on read, and an optional byte budget. When the
// budget is exceeded, least-recently-used entries are evicted until total
// size falls to 80% of the budget:
//
//	c := cache.NewMemory[Response](nil,
//	    cache.WithDefaultTTL(5 * time.Minute),
//	    cache.WithMaxMemory(64 << 20),
//	    cache.WithCompression(1024),
//	)
//	defer c.Close()
//
// # Redis Cache
//
// [NewRedis] stores serialized values in Redis with companion tag sets,
// so tag invalidation works across every process sharing the backend.
//
// # Two-Tier Cache
//
// [NewTiered] composes a remote Redis tier with a local in-memory mirror.
// The remote tier is authoritative when healthy; when it is absent or its
// health probe reports it down, the local mirror keeps serving. Remote
// failures never surface to callers.
//
// # Get-or-Compute
//
// [GetOrSet] wraps the read-compute-store cycle with singleflight so
// concurrent misses for one key share a single computation:
//
//	user, cached, err := cache.GetOrSet(ctx, c, key,
//	    func(ctx context.Context) (User, time.Duration, error) {
//	        u, err := loadUser(ctx, id)
//	        return u, 15 * time.Minute, err
//	    })
//
// # Metrics
//
// Memory and Tiered caches track hits, misses, evictions, entry count,
// total size, a rolling read latency, and an estimate of compute time
// saved. [NewCollector] exposes these to Prometheus. Metrics are purely
// observational; eviction consults only the size-versus-budget check.
package cache
