package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// tagSetPrefix namespaces the Redis sets that track which keys carry a tag.
const tagSetPrefix = "tag"

// Redis is a cache backed by Redis.
// It serializes values using the configured Marshaler (default: JSON).
// Tags are tracked in companion Redis sets so bulk invalidation works
// across processes sharing the same backend.
type Redis[V any] struct {
	client    redis.UniversalClient
	opts      *redisOptions
	marshaler Marshaler[V]
}

// NewRedis creates a new Redis-backed cache.
// The client should be obtained from pkg/redis.Open or pkg/redis.MustOpen.
//
// An optional Marshaler can be provided to customize serialization.
// If nil, JSON serialization is used.
//
// Example:
//
//	client := redis.MustOpen(ctx, cfg)
//	c := cache.NewRedis[Claim](client, nil,
//	    cache.WithPrefix("claims"),
//	    cache.WithRedisDefaultTTL(30 * time.Minute),
//	)
func NewRedis[V any](client redis.UniversalClient, m Marshaler[V], opts ...RedisOption) *Redis[V] {
	o := defaultRedisOptions()
	for _, opt := range opts {
		opt(o)
	}

	if m == nil {
		m = jsonMarshaler[V]{}
	}

	return &Redis[V]{
		client:    client,
		opts:      o,
		marshaler: m,
	}
}

// Get retrieves a value by key from Redis.
// Returns ErrNotFound if the key does not exist.
func (r *Redis[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V

	data, err := r.client.Get(ctx, r.prefixedKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, err
	}

	v, err := r.marshaler.Unmarshal(data)
	if err != nil {
		return zero, err
	}

	return v, nil
}

// Set stores a value in Redis with the given TTL.
// TTL semantics: positive = expires after duration, zero = use default TTL,
// negative = no-op (nothing is stored).
func (r *Redis[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	return r.SetTagged(ctx, key, value, ttl)
}

// SetTagged stores a value with the given TTL and registers its key in
// the companion set of every tag. Tag sets expire alongside the longest
// TTL seen for the tag so abandoned tags do not accumulate forever.
func (r *Redis[V]) SetTagged(ctx context.Context, key string, value V, ttl time.Duration, tags ...string) error {
	if ttl == 0 {
		ttl = r.opts.defaultTTL
	}
	if ttl < 0 {
		return nil
	}

	data, err := r.marshaler.Marshal(value)
	if err != nil {
		return err
	}

	full := r.prefixedKey(key)

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, full, data, ttl)
	for _, tag := range tags {
		tagKey := r.tagKey(tag)
		pipe.SAdd(ctx, tagKey, full)
		// GT keeps the set alive at least as long as its newest member.
		pipe.ExpireGT(ctx, tagKey, ttl)
		pipe.ExpireNX(ctx, tagKey, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Delete removes a key from Redis.
func (r *Redis[V]) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefixedKey(key)).Err()
}

// Has checks whether a key exists in Redis.
func (r *Redis[V]) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefixedKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear removes all cache entries.
// If a prefix is configured, only keys matching the prefix are removed using SCAN.
// If no prefix is configured, FLUSHDB is used.
func (r *Redis[V]) Clear(ctx context.Context) error {
	if r.opts.prefix == "" {
		return r.client.FlushDB(ctx).Err()
	}
	_, err := r.deleteByGlob(ctx, r.opts.prefix+":*")
	return err
}

// InvalidateByTag removes every key registered under tag and the tag set
// itself. Returns the number of cache entries removed.
func (r *Redis[V]) InvalidateByTag(ctx context.Context, tag string) (int, error) {
	tagKey := r.tagKey(tag)

	members, err := r.client.SMembers(ctx, tagKey).Result()
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, r.client.Del(ctx, tagKey).Err()
	}

	removed, err := r.client.Del(ctx, members...).Result()
	if err != nil {
		return 0, err
	}
	if err := r.client.Del(ctx, tagKey).Err(); err != nil {
		return int(removed), err
	}

	return int(removed), nil
}

// InvalidateByPattern removes every key matching the wildcard pattern
// ("*" matches any run of characters) and returns the number removed.
func (r *Redis[V]) InvalidateByPattern(ctx context.Context, pattern string) (int, error) {
	return r.deleteByGlob(ctx, r.prefixedKey(pattern))
}

// Close is a no-op for Redis. The Redis client lifecycle is managed
// separately by the caller (via pkg/redis.Shutdown).
func (r *Redis[V]) Close() error {
	return nil
}

// prefixedKey returns the full Redis key with prefix.
func (r *Redis[V]) prefixedKey(key string) string {
	if r.opts.prefix == "" {
		return key
	}
	return r.opts.prefix + ":" + key
}

func (r *Redis[V]) tagKey(tag string) string {
	return r.prefixedKey(tagSetPrefix + ":" + tag)
}

// deleteByGlob removes all keys matching a Redis glob pattern using SCAN.
// This is safe for production use as SCAN does not block the server.
func (r *Redis[V]) deleteByGlob(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		removed int
	)

	for {
		keys, nextCursor, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return removed, err
		}

		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return removed, nil
}

var _ TaggedCache[any] = (*Redis[any])(nil)
