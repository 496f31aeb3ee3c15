// Package cachekit is the caching layer of the claims platform: a
// two-tier cache (shared Redis over an in-process LRU mirror) with TTL
// policy, tag and pattern invalidation, stampede-protected
// get-or-compute, fixed-window rate limiting, and tri-state health
// reporting.
//
// The Service is built explicitly and passed down; nothing in this
// module holds global state:
//
//	rdb := redis.MustOpen(ctx, os.Getenv("REDIS_URL"))
//	adapter := redis.NewClient(rdb, redis.WithClientLogger(log))
//	svc := cachekit.New(
//	    cachekit.WithRedis(adapter),
//	    cachekit.WithLogger(log),
//	)
//	defer svc.Close()
//
// Or from the environment, degrading to local-only when Redis is
// disabled or down:
//
//	var cfg cachekit.Config
//	if err := env.Parse(&cfg); err != nil { ... }
//	svc := cachekit.NewFromConfig(ctx, cfg, log)
//
// The durable tier is strictly optional at runtime: every Redis failure
// is logged and absorbed, reads fall back to the local mirror, and
// health reports degrade rather than fail. A cache outage must never
// become an application outage.
//
// Building blocks live under pkg/ and are usable on their own:
// pkg/cache (the generic tiered engine), pkg/redis (connection +
// fail-open adapter), pkg/cachekeys (key namespace and TTL policy),
// pkg/ratelimit, pkg/health, pkg/httpcache (response-cache middleware),
// and pkg/logger.
package cachekit
