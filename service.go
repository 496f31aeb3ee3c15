package cachekit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/claimguard/cachekit/pkg/cache"
	"github.com/claimguard/cachekit/pkg/cachekeys"
	"github.com/claimguard/cachekit/pkg/health"
	"github.com/claimguard/cachekit/pkg/ratelimit"
	"github.com/claimguard/cachekit/pkg/redis"
)

// Service is the caching façade for the claims platform. It owns a
// two-tier engine (in-process LRU mirror under a shared Redis tier), a
// rate limiter, and the TTL policy table, all wired together at
// construction time. Build one per process and pass it down explicitly.
type Service struct {
	engine     *cache.Tiered[[]byte]
	local      *cache.Memory[[]byte]
	counters   *cache.Tiered[ratelimit.Counter]
	limiter    *ratelimit.Limiter
	checkRedis health.CheckFunc
	policy     *cachekeys.Policy
	log        *slog.Logger
	owned      []func() error
}

// New builds a Service. Without WithRedis it runs on the in-process
// tier alone, which is the correct mode for development and tests.
func New(opts ...Option) *Service {
	st := defaultSettings()
	for _, opt := range opts {
		opt(st)
	}

	memOpts := []cache.MemoryOption{
		cache.WithDefaultTTL(cachekeys.FallbackTTL),
		cache.WithCleanupInterval(st.cleanupInterval),
	}
	if st.maxMemory > 0 {
		memOpts = append(memOpts, cache.WithMaxMemory(st.maxMemory))
	}
	if st.compressionMin > 0 {
		memOpts = append(memOpts, cache.WithCompression(st.compressionMin))
	}

	local := cache.NewMemory[[]byte](cache.RawMarshaler{}, memOpts...)
	counterLocal := cache.NewMemory[ratelimit.Counter](nil,
		cache.WithDefaultTTL(cachekeys.FallbackTTL),
		cache.WithCleanupInterval(st.cleanupInterval),
	)

	var (
		remote        cache.TaggedCache[[]byte]
		counterRemote cache.TaggedCache[ratelimit.Counter]
		tierOpts      []cache.TieredOption
	)
	tierOpts = append(tierOpts, cache.WithTieredLogger(st.logger))
	if st.redis != nil {
		remote = cache.NewRedis[[]byte](st.redis.Underlying(), cache.RawMarshaler{},
			cache.WithPrefix(st.keyPrefix),
			cache.WithRedisDefaultTTL(cachekeys.FallbackTTL),
		)
		counterRemote = cache.NewRedis[ratelimit.Counter](st.redis.Underlying(), nil,
			cache.WithPrefix(st.keyPrefix),
			cache.WithRedisDefaultTTL(cachekeys.FallbackTTL),
		)
		tierOpts = append(tierOpts, cache.WithHealthProbe(st.redis.Healthy))
	}

	var checkRedis health.CheckFunc
	if st.redis != nil {
		checkRedis = redis.Healthcheck(st.redis.Underlying())
	}

	engine := cache.NewTiered[[]byte](remote, local, tierOpts...)
	counters := cache.NewTiered[ratelimit.Counter](counterRemote, counterLocal, tierOpts...)

	limiterOpts := []ratelimit.Option{ratelimit.WithLogger(st.logger)}
	if st.failClosed {
		limiterOpts = append(limiterOpts, ratelimit.WithFailClosed())
	}

	return &Service{
		engine:     engine,
		local:      local,
		counters:   counters,
		limiter:    ratelimit.New(counters, limiterOpts...),
		checkRedis: checkRedis,
		policy:     st.policy,
		log:        st.logger,
	}
}

// Config is the environment-driven service configuration, parsed with
// caarlos0/env. The embedded redis.Config decides whether the durable
// tier is used at all.
type Config struct {
	Redis               redis.Config
	KeyPrefix           string `env:"CACHE_KEY_PREFIX" envDefault:"cache"`
	MaxMemoryBytes      int64  `env:"CACHE_MAX_MEMORY_BYTES" envDefault:"104857600"`
	CompressionMinBytes int    `env:"CACHE_COMPRESSION_MIN_BYTES" envDefault:"1024"`
}

// NewFromConfig builds a Service from environment configuration,
// opening the Redis connection when the config enables it. A disabled
// or unreachable backend degrades to local-only mode at startup rather
// than failing it; the connection attempt is logged either way.
//
// Connections opened here are owned by the Service and closed by Close.
func NewFromConfig(ctx context.Context, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	base := []Option{
		WithLogger(logger),
		WithKeyPrefix(cfg.KeyPrefix),
		WithMemoryBudget(cfg.MaxMemoryBytes),
		WithCompressionThreshold(cfg.CompressionMinBytes),
	}

	var owned []func() error
	rdb, err := redis.OpenConfig(ctx, cfg.Redis)
	switch {
	case err == nil:
		adapter := redis.NewClient(rdb, redis.WithClientLogger(logger))
		base = append(base, WithRedis(adapter))
		owned = append(owned, adapter.Close, rdb.Close)
	case errors.Is(err, redis.ErrDisabled):
		logger.InfoContext(ctx, "redis disabled, running on the in-process tier only")
	default:
		logger.ErrorContext(ctx, "redis unavailable at startup, running on the in-process tier only",
			slog.String("error", err.Error()))
	}

	s := New(append(base, opts...)...)
	s.owned = owned
	return s
}

// Close releases service-owned resources: the in-process tiers and any
// connections opened by NewFromConfig. Injected Redis clients stay with
// their owner.
func (s *Service) Close() error {
	errs := []error{s.engine.Close(), s.counters.Close()}
	for _, fn := range s.owned {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

// Get reads a cached value into dest. It returns (false, nil) on a
// miss; a cache outage is a miss, never an error.
func (s *Service) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := s.engine.Get(ctx, key)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// A payload that no longer decodes is garbage; drop it so the
		// next read recomputes instead of failing forever.
		_ = s.engine.Delete(ctx, key)
		return false, errors.Join(cache.ErrUnmarshal, err)
	}
	return true, nil
}

// Set stores a value under key with the given TTL (zero means the
// policy fallback, negative skips the write).
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return s.SetTagged(ctx, key, value, ttl)
}

// SetTagged stores a value with invalidation tags.
func (s *Service) SetTagged(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Join(cache.ErrMarshal, err)
	}
	return s.engine.SetTagged(ctx, key, data, ttl, tags...)
}

// Delete removes a key from both tiers.
func (s *Service) Delete(ctx context.Context, key string) error {
	return s.engine.Delete(ctx, key)
}

// Clear flushes the entire cache namespace. Destructive; admin use only.
func (s *Service) Clear(ctx context.Context) error {
	return s.engine.Clear(ctx)
}

// InvalidateByTag removes every entry carrying the tag and reports how
// many were removed.
func (s *Service) InvalidateByTag(ctx context.Context, tag string) (int, error) {
	return s.engine.InvalidateByTag(ctx, tag)
}

// InvalidateByPattern removes every entry whose key matches the
// wildcard pattern.
func (s *Service) InvalidateByPattern(ctx context.Context, pattern string) (int, error) {
	return s.engine.InvalidateByPattern(ctx, pattern)
}

// Result describes the outcome of a GetOrSet call.
type Result struct {
	// Timestamp is when the value was produced or served.
	Timestamp time.Time
	// TTL is the effective time-to-live of the cached value.
	TTL time.Duration
	// Cached reports whether the value came from the cache rather than
	// the compute callback.
	Cached bool
}

// GetOrSet reads key into dest, calling compute on a miss and caching
// its result. Concurrent misses on the same key share a single compute
// call. Compute errors propagate to every waiting caller and nothing is
// cached; infrastructure errors degrade to computing fresh.
func (s *Service) GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, compute func(ctx context.Context) (any, error)) (Result, error) {
	effective := ttl
	if effective == 0 {
		effective = cachekeys.FallbackTTL
	}

	data, cached, err := cache.GetOrSet(ctx, s.engine, key, func(ctx context.Context) ([]byte, time.Duration, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, 0, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, 0, errors.Join(cache.ErrMarshal, err)
		}
		return b, ttl, nil
	})
	if err != nil {
		return Result{}, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return Result{}, errors.Join(cache.ErrUnmarshal, err)
	}

	return Result{Timestamp: time.Now(), TTL: effective, Cached: cached}, nil
}

// CheckRateLimit applies a fixed-window limit to an action performed by
// an identifier (user ID, IP). The decision carries the remaining
// allowance and when the window resets.
func (s *Service) CheckRateLimit(ctx context.Context, identifier, action string, limit int, window time.Duration) ratelimit.Decision {
	return s.limiter.Allow(ctx, identifier, action, limit, window)
}

// Health is the service-level health report.
type Health struct {
	// Status is healthy, degraded, or unhealthy.
	Status string
	// Latency is the wall time of the slowest probe.
	Latency time.Duration
	// Redis reports whether the durable tier answered its probe.
	Redis bool
	// Memory reports whether the in-process tier round-tripped a probe
	// entry.
	Memory bool
}

// HealthCheck probes both tiers. The in-process tier is fundamental: if
// it cannot round-trip an entry the service is unhealthy. The durable
// tier only degrades, since the local tier keeps serving without it.
// Without a configured Redis client the service is healthy on the local
// tier alone.
func (s *Service) HealthCheck(ctx context.Context) Health {
	checks := health.Checks{
		"memory": health.Required(s.probeLocal),
	}
	if s.checkRedis != nil {
		checks["redis"] = health.BestEffort(s.checkRedis)
	}

	resp := health.Run(ctx, checks, health.WithLogger(s.log))

	h := Health{
		Status:  resp.Status,
		Latency: resp.Latency,
		Memory:  resp.Checks["memory"].Status == health.StatusHealthy,
	}
	if s.checkRedis != nil {
		h.Redis = resp.Checks["redis"].Status == health.StatusHealthy
	}
	return h
}

// probeLocal round-trips a unique entry through the in-process tier.
func (s *Service) probeLocal(ctx context.Context) error {
	key := "health:probe:" + uuid.NewString()
	want := []byte(uuid.NewString())

	if err := s.local.Set(ctx, key, want, time.Minute); err != nil {
		return err
	}
	got, err := s.local.Get(ctx, key)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return errors.New("probe entry corrupted")
	}
	return s.local.Delete(ctx, key)
}

// Metrics returns the engine's activity counters.
func (s *Service) Metrics() cache.Metrics {
	return s.engine.Metrics()
}

// MetricsCollector returns a Prometheus collector for the engine.
// Register it once per service instance:
//
//	prometheus.MustRegister(svc.MetricsCollector("claims"))
func (s *Service) MetricsCollector(name string) *cache.Collector {
	return cache.NewCollector(name, s.engine)
}
