package cache

import "time"

// MemoryOption configures the in-memory cache.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	maxEntries      int
	maxMemory       int64
	compressMin     int
}

func defaultMemoryOptions() *memoryOptions {
	return &memoryOptions{
		defaultTTL:      time.Hour,
		cleanupInterval: 5 * time.Minute,
		maxEntries:      0, // 0 = unlimited
		maxMemory:       0, // 0 = unlimited
		compressMin:     0, // 0 = compression disabled
	}
}

// WithDefaultTTL sets the default expiration for cache entries when
// Set is called with a zero TTL.
// Default: 1 hour.
func WithDefaultTTL(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		o.defaultTTL = d
	}
}

// WithCleanupInterval sets how often expired entries are removed
// by the background janitor goroutine. Zero disables the janitor;
// expired entries are then removed only lazily on read.
// Default: 5 minutes.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		o.cleanupInterval = d
	}
}

// WithMaxEntries sets the maximum number of entries in the cache.
// When the limit is reached, the least recently used entry is evicted.
// Zero means unlimited.
// Default: 0 (unlimited).
func WithMaxEntries(n int) MemoryOption {
	return func(o *memoryOptions) {
		o.maxEntries = n
	}
}

// WithMaxMemory sets a byte budget for the cache. When the total size of
// serialized entries exceeds the budget, least-recently-used entries are
// evicted until total size falls to 80% of the budget.
// Enables serialized storage so entry sizes can be accounted for.
// Zero means unlimited.
// Default: 0 (unlimited).
func WithMaxMemory(bytes int64) MemoryOption {
	return func(o *memoryOptions) {
		o.maxMemory = bytes
	}
}

// WithCompression enables deflate compression for serialized payloads of
// at least minSize bytes. Smaller payloads are stored raw.
// Default: disabled.
func WithCompression(minSize int) MemoryOption {
	return func(o *memoryOptions) {
		o.compressMin = minSize
	}
}
