package cachekit

import (
	"io"
	"log/slog"
	"time"

	"github.com/claimguard/cachekit/pkg/cachekeys"
	"github.com/claimguard/cachekit/pkg/redis"
)

// Option configures the Service.
type Option func(*settings)

type settings struct {
	redis           *redis.Client
	logger          *slog.Logger
	policy          *cachekeys.Policy
	keyPrefix       string
	maxMemory       int64
	compressionMin  int
	cleanupInterval time.Duration
	failClosed      bool
}

func defaultSettings() *settings {
	return &settings{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		policy:    cachekeys.DefaultPolicy(),
		keyPrefix: "cache",
		// 100MB local budget; eviction keeps usage at 80% of it.
		maxMemory:       100 << 20,
		compressionMin:  1 << 10,
		cleanupInterval: 5 * time.Minute,
	}
}

// WithRedis attaches the durable tier through the fail-open adapter.
// Without it the service runs on the in-process tier alone. The adapter
// and its underlying client stay owned by the caller.
func WithRedis(client *redis.Client) Option {
	return func(s *settings) {
		s.redis = client
	}
}

// WithLogger sets the service logger.
// Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPolicy replaces the default TTL policy table.
func WithPolicy(p *cachekeys.Policy) Option {
	return func(s *settings) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithKeyPrefix sets the namespace prefix for durable-tier keys,
// isolating multiple deployments sharing one Redis database.
// Default: "cache".
func WithKeyPrefix(prefix string) Option {
	return func(s *settings) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// WithMemoryBudget sets the in-process tier's byte budget. Zero disables
// size-based eviction.
// Default: 100MB.
func WithMemoryBudget(bytes int64) Option {
	return func(s *settings) {
		if bytes >= 0 {
			s.maxMemory = bytes
		}
	}
}

// WithCompressionThreshold sets the minimum serialized size, in bytes,
// at which entries are deflate-compressed. Zero disables compression.
// Default: 1KB.
func WithCompressionThreshold(bytes int) Option {
	return func(s *settings) {
		if bytes >= 0 {
			s.compressionMin = bytes
		}
	}
}

// WithCleanupInterval sets how often the in-process tier sweeps expired
// entries. Zero disables the sweep; expired entries then only leave on
// read or under memory pressure.
// Default: 5 minutes.
func WithCleanupInterval(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.cleanupInterval = d
		}
	}
}

// WithFailClosedRateLimits makes rate-limit checks deny requests when
// the counter store is unreachable. The default fails open: an
// infrastructure outage never locks users out, at the cost of briefly
// unenforced limits.
func WithFailClosedRateLimits() Option {
	return func(s *settings) {
		s.failClosed = true
	}
}
