// Package redis provides the durable cache backend for cachekit: a
// go-redis client factory with production defaults, plus a fail-open
// adapter that isolates transient backend failures from callers.
//
// # Connecting
//
// [Open] accepts redis:// and rediss:// URLs and applies pooling,
// timeout, and bounded startup-retry defaults (exponential backoff).
// [OpenConfig] builds the URL from an env-driven [Config] honoring the
// platform's REDIS_HOST / REDIS_PORT / REDIS_PASSWORD / REDIS_DB
// variables, and returns [ErrDisabled] outside production unless
// REDIS_ENABLED is set — the application then runs on the in-process
// cache tier alone.
//
//	var cfg redis.Config
//	if err := env.Parse(&cfg); err != nil {
//		log.Fatal(err)
//	}
//	rdb, err := redis.OpenConfig(ctx, cfg)
//
// # The fail-open adapter
//
// [Client] wraps the raw client with the failure semantics the cache
// layer needs: every backend error is caught, logged with operation and
// key context, and converted into the operation's failure value ("",
// false, 0, or an empty map). Nothing propagates as an error, so a
// Redis outage degrades into cache misses instead of request failures.
//
// The adapter tracks connection health with a background ping loop and
// per-command failures; [Client.Healthy] is a cheap flag, not a probe,
// and is the intended health source for the tiered cache:
//
//	adapter := redis.NewClient(rdb, redis.WithClientLogger(log))
//	tier := cache.NewTiered(remote, local,
//	    cache.WithHealthProbe(adapter.Healthy),
//	)
//
// Failed liveness probes are counted; after the configured bound the
// adapter logs a single degraded-for-good error but keeps probing, so
// the process never terminates over a cache backend.
//
// # Health checks and shutdown
//
// [Healthcheck] returns a func(ctx) error closure for readiness
// endpoints; [Shutdown] wraps client closure for shutdown hooks.
//
// # Errors
//
//   - [ErrEmptyConnectionURL] - Empty connection URL provided
//   - [ErrFailedToParseURL] - Invalid connection URL format or scheme
//   - [ErrConnectionFailed] - Connection failed after all retry attempts
//   - [ErrHealthcheckFailed] - Redis ping failed
//   - [ErrDisabled] - Backend disabled by configuration
//
// Errors are wrapped using [errors.Join] to preserve the original error context.
package redis
