package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/claimguard/cachekit/pkg/cache"
	"github.com/claimguard/cachekit/pkg/cachekeys"
)

// Counter is a fixed-window request counter stored in the cache.
type Counter struct {
	ResetAt time.Time `json:"reset_at"`
	Count   int       `json:"count"`
}

// Decision is the outcome of a rate-limit check.
type Decision struct {
	ResetAt   time.Time
	Remaining int
	Allowed   bool
}

// Option configures the limiter.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	failClosed bool
}

func defaultOptions() *options {
	return &options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithFailClosed makes the limiter deny requests when the cache is
// unreachable. The default fails open: a cache outage briefly loosens
// throttling rather than blocking legitimate traffic. Use fail-closed
// for limits that guard expensive or abusable operations where an
// over-limit burst costs more than a rejected request.
func WithFailClosed() Option {
	return func(o *options) {
		o.failClosed = true
	}
}

// WithLogger sets the logger for degraded-mode decisions.
// Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Limiter is an approximate fixed-window rate limiter layered on the
// cache primitive. Counters live in the same tiered store as everything
// else, so limits survive a Redis outage via the local tier and are
// shared across processes when Redis is up.
//
// Approximate: the read-increment-write cycle is not atomic, so
// concurrent requests can slightly overshoot the limit. Acceptable for
// throttling; do not use it for billing.
type Limiter struct {
	store cache.Cache[Counter]
	opts  *options
}

// New creates a limiter over the given counter store.
func New(store cache.Cache[Counter], opts ...Option) *Limiter {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Limiter{store: store, opts: o}
}

// Allow records a request for (identifier, action) and decides whether
// it fits within limit requests per window.
func (l *Limiter) Allow(ctx context.Context, identifier, action string, limit int, window time.Duration) Decision {
	key := cachekeys.RateLimit(action, identifier)
	now := time.Now()

	counter, err := l.store.Get(ctx, key)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return l.failure(ctx, key, now, limit, window, err)
	}

	// First request in a window: fresh counter.
	if errors.Is(err, cache.ErrNotFound) || !now.Before(counter.ResetAt) {
		counter = Counter{Count: 1, ResetAt: now.Add(window)}
		l.put(ctx, key, counter, window)
		return Decision{Allowed: true, Remaining: limit - 1, ResetAt: counter.ResetAt}
	}

	// Over the limit: deny without incrementing.
	if counter.Count >= limit {
		return Decision{Allowed: false, Remaining: 0, ResetAt: counter.ResetAt}
	}

	counter.Count++
	l.put(ctx, key, counter, time.Until(counter.ResetAt))

	return Decision{Allowed: true, Remaining: limit - counter.Count, ResetAt: counter.ResetAt}
}

// put stores a counter best-effort; a failed write only loosens the
// limit for the remainder of the window.
func (l *Limiter) put(ctx context.Context, key string, c Counter, ttl time.Duration) {
	if err := l.store.Set(ctx, key, c, ttl); err != nil {
		l.opts.logger.WarnContext(ctx, "failed to store rate-limit counter",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// failure applies the configured failure policy when the counter store
// is unreachable.
func (l *Limiter) failure(ctx context.Context, key string, now time.Time, limit int, window time.Duration, err error) Decision {
	l.opts.logger.WarnContext(ctx, "rate-limit store unavailable",
		slog.String("key", key),
		slog.Bool("fail_closed", l.opts.failClosed),
		slog.String("error", err.Error()),
	)

	if l.opts.failClosed {
		return Decision{Allowed: false, Remaining: 0, ResetAt: now.Add(window)}
	}
	return Decision{Allowed: true, Remaining: limit - 1, ResetAt: now.Add(window)}
}
