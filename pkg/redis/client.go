package redis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientOption configures the Client adapter.
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger        *slog.Logger
	pingInterval  time.Duration
	maxReconnects int64
}

func defaultClientOptions() *clientOptions {
	return &clientOptions{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		pingInterval:  15 * time.Second,
		maxReconnects: 20,
	}
}

// WithClientLogger sets the logger for degraded-operation warnings.
// Default: discard.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPingInterval sets how often the background liveness loop pings the
// backend to maintain the health flag.
// Default: 15 seconds.
func WithPingInterval(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		if d > 0 {
			o.pingInterval = d
		}
	}
}

// WithMaxReconnects sets the reconnect-attempt count after which the
// adapter logs that the backend looks gone for good. Purely for
// observability: the adapter keeps probing and recovers whenever the
// backend does.
// Default: 20.
func WithMaxReconnects(n int64) ClientOption {
	return func(o *clientOptions) {
		if n > 0 {
			o.maxReconnects = n
		}
	}
}

// Client wraps a Redis client with fail-open semantics: every backend
// error is caught, logged with operation context, and converted into the
// operation's zero result. Callers never see an error from this type.
//
// A cache outage must never become an application outage — reads degrade
// to misses and writes to no-ops while the backend is down.
//
// The health flag reflects the last known connection state. It is
// maintained by a background ping loop and by command failures, not
// polled per call.
type Client struct {
	rdb        redis.UniversalClient
	opts       *clientOptions
	done       chan struct{}
	healthy    atomic.Bool
	reconnects atomic.Int64
}

// NewClient wraps an existing Redis client (from Open or MustOpen) with
// the fail-open adapter and starts the background liveness loop.
// Call Close to stop the loop; the underlying client's lifecycle stays
// with the caller.
func NewClient(rdb redis.UniversalClient, opts ...ClientOption) *Client {
	o := defaultClientOptions()
	for _, opt := range opts {
		opt(o)
	}

	c := &Client{
		rdb:  rdb,
		opts: o,
		done: make(chan struct{}),
	}
	// Open has already pinged successfully; start healthy and let the
	// liveness loop correct the flag if the backend goes away.
	c.healthy.Store(true)

	go c.watch()

	return c
}

// Healthy reports the last known connection state.
func (c *Client) Healthy() bool {
	return c.healthy.Load()
}

// Reconnects returns how many liveness probes have failed since the
// backend was last seen healthy.
func (c *Client) Reconnects() int64 {
	return c.reconnects.Load()
}

// Underlying exposes the wrapped client for components that need the
// full go-redis API (e.g., the cache engine's Redis backend).
func (c *Client) Underlying() redis.UniversalClient {
	return c.rdb
}

// Close stops the background liveness loop. It does not close the
// underlying client.
func (c *Client) Close() error {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	return nil
}

// watch maintains the health flag with periodic pings. Reconnection is
// handled by the go-redis pool itself; this loop only tracks state and
// counts failed probes.
func (c *Client) watch() {
	ticker := time.NewTicker(c.opts.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.opts.pingInterval)
			err := c.rdb.Ping(ctx).Err()
			cancel()

			switch {
			case err == nil:
				if !c.healthy.Swap(true) {
					c.opts.logger.Info("redis backend recovered",
						slog.Int64("failed_probes", c.reconnects.Load()))
				}
				c.reconnects.Store(0)
			default:
				c.healthy.Store(false)
				n := c.reconnects.Add(1)
				if n == c.opts.maxReconnects {
					c.opts.logger.Error("redis backend still unreachable, continuing degraded",
						slog.Int64("failed_probes", n),
						slog.String("error", err.Error()))
				} else {
					c.opts.logger.Warn("redis liveness probe failed",
						slog.Int64("failed_probes", n),
						slog.String("error", err.Error()))
				}
			}
		}
	}
}

// fail logs a command failure and marks the connection unhealthy for
// anything that does not look like a plain missing key.
func (c *Client) fail(ctx context.Context, op, key string, err error) {
	if errors.Is(err, redis.Nil) {
		return
	}
	c.healthy.Store(false)
	c.opts.logger.WarnContext(ctx, "redis command failed",
		slog.String("op", op),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// Get returns the raw stored payload, or ok=false on miss or backend
// error. Errors are treated as a miss: fail open on read.
func (c *Client) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		c.fail(ctx, "GET", key, err)
		return "", false
	}
	return val, true
}

// Set stores a value with an optional expiry (ttl <= 0 means no expiry).
// Returns whether the write was acknowledged.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	if err := c.rdb.Set(ctx, key, value, max(ttl, 0)).Err(); err != nil {
		c.fail(ctx, "SET", key, err)
		return false
	}
	return true
}

// Del removes keys and returns how many existed.
func (c *Client) Del(ctx context.Context, keys ...string) int64 {
	if len(keys) == 0 {
		return 0
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		c.fail(ctx, "DEL", keys[0], err)
		return 0
	}
	return n
}

// Exists reports whether the key exists.
func (c *Client) Exists(ctx context.Context, key string) bool {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		c.fail(ctx, "EXISTS", key, err)
		return false
	}
	return n > 0
}

// Expire sets a new TTL on an existing key.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := c.rdb.Expire(ctx, key, ttl).Result()
	if err != nil {
		c.fail(ctx, "EXPIRE", key, err)
		return false
	}
	return ok
}

// MGet fetches several keys at once. Missing keys are absent from the
// result; a backend error yields an empty map.
func (c *Client) MGet(ctx context.Context, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.fail(ctx, "MGET", keys[0], err)
		return out
	}
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out
}

// MSet stores several key/value pairs in one call.
func (c *Client) MSet(ctx context.Context, pairs map[string]string) bool {
	if len(pairs) == 0 {
		return true
	}
	args := make([]any, 0, len(pairs)*2)
	for k, v := range pairs {
		args = append(args, k, v)
	}
	if err := c.rdb.MSet(ctx, args...).Err(); err != nil {
		c.fail(ctx, "MSET", "", err)
		return false
	}
	return true
}

// HGet reads one field of a hash.
func (c *Client) HGet(ctx context.Context, key, field string) (string, bool) {
	val, err := c.rdb.HGet(ctx, key, field).Result()
	if err != nil {
		c.fail(ctx, "HGET", key, err)
		return "", false
	}
	return val, true
}

// HSet writes one field of a hash.
func (c *Client) HSet(ctx context.Context, key, field, value string) bool {
	if err := c.rdb.HSet(ctx, key, field, value).Err(); err != nil {
		c.fail(ctx, "HSET", key, err)
		return false
	}
	return true
}

// HGetAll reads an entire hash; empty map on miss or error.
func (c *Client) HGetAll(ctx context.Context, key string) map[string]string {
	vals, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		c.fail(ctx, "HGETALL", key, err)
		return map[string]string{}
	}
	return vals
}

// Keys enumerates keys matching a glob pattern. Prefer Scan in hot
// paths; KEYS blocks the server on large databases.
func (c *Client) Keys(ctx context.Context, pattern string) []string {
	keys, err := c.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		c.fail(ctx, "KEYS", pattern, err)
		return nil
	}
	return keys
}

// Scan advances one cursor step of a pattern enumeration.
func (c *Client) Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64) {
	keys, next, err := c.rdb.Scan(ctx, cursor, pattern, count).Result()
	if err != nil {
		c.fail(ctx, "SCAN", pattern, err)
		return nil, 0
	}
	return keys, next
}

// FlushDB clears the entire database. Destructive; admin use only.
func (c *Client) FlushDB(ctx context.Context) bool {
	if err := c.rdb.FlushDB(ctx).Err(); err != nil {
		c.fail(ctx, "FLUSHDB", "", err)
		return false
	}
	return true
}

// Ping probes the backend and updates the health flag immediately.
func (c *Client) Ping(ctx context.Context) bool {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		c.fail(ctx, "PING", "", err)
		return false
	}
	c.healthy.Store(true)
	c.reconnects.Store(0)
	return true
}
