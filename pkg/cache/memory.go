package cache

import (
	"container/list"
	"context"
	"slices"
	"sync"
	"time"
)

// entry holds a cached value with its expiration time and access metadata.
// When the cache runs in serialized mode (byte budget or compression
// configured), encoded holds the framed payload and value is unused.
type entry[V any] struct {
	expiresAt    time.Time // zero value = never expires
	lastAccessed time.Time
	value        V
	encoded      []byte
	tags         []string
	key          string
	size         int64
	hitCount     int64
}

// isExpired reports whether the entry has passed its expiration time.
func (e *entry[V]) isExpired() bool {
	if e.expiresAt.IsZero() {
		return false
	}
	return time.Now().After(e.expiresAt)
}

func (e *entry[V]) hasTag(tag string) bool {
	return slices.Contains(e.tags, tag)
}

// Memory is an in-memory cache with TTL-based expiration, LRU eviction
// under an optional entry-count cap and byte budget, tag-based bulk
// invalidation, and optional deflate compression of large payloads.
//
// It uses a hash map for O(1) lookups and a doubly-linked list for O(1)
// LRU ordering. The most recently accessed items are at the front of the
// list; the least recently used are at the back.
//
// When a byte budget (WithMaxMemory) or compression (WithCompression) is
// configured, values are serialized through the Marshaler on write so the
// cache can account for their size. Without either, values are stored
// directly and size accounting is disabled.
type Memory[V any] struct {
	items     map[string]*list.Element
	eviction  *list.List
	opts      *memoryOptions
	marshaler Marshaler[V]
	codec     codec
	onEvict   func(key string, value V)
	done      chan struct{}
	stats     stats
	totalSize int64
	mu        sync.Mutex
	closed    bool
}

// NewMemory creates a new in-memory cache.
// A nil Marshaler defaults to JSON; it is only exercised when a byte
// budget or compression is configured.
//
// Example:
//
//	c := cache.NewMemory[string](nil,
//	    cache.WithDefaultTTL(5 * time.Minute),
//	    cache.WithCleanupInterval(30 * time.Second),
//	    cache.WithMaxMemory(64 << 20),
//	)
//	defer c.Close()
func NewMemory[V any](m Marshaler[V], opts ...MemoryOption) *Memory[V] {
	o := defaultMemoryOptions()
	for _, opt := range opts {
		opt(o)
	}

	if m == nil {
		m = jsonMarshaler[V]{}
	}

	mem := &Memory[V]{
		items:     make(map[string]*list.Element),
		eviction:  list.New(),
		opts:      o,
		marshaler: m,
		codec:     codec{minSize: o.compressMin},
		done:      make(chan struct{}),
	}

	if o.cleanupInterval > 0 {
		go mem.janitor()
	}

	return mem
}

// serialized reports whether values are stored as framed bytes.
func (m *Memory[V]) serialized() bool {
	return m.opts.maxMemory > 0 || m.opts.compressMin > 0
}

// SetEvictCallback sets a callback function that is called when items
// are evicted from the cache. This includes LRU eviction, TTL expiration
// cleanup, bulk invalidation, manual deletion, and clearing.
func (m *Memory[V]) SetEvictCallback(fn func(key string, value V)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvict = fn
}

// Get retrieves a value by key.
// Returns ErrNotFound if the key does not exist or has expired.
// Accessing a key increments its hit count and marks it as recently used.
// A corrupt stored payload is evicted and reported as a miss.
func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	start := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V

	if m.closed {
		return zero, ErrClosed
	}

	elem, ok := m.items[key]
	if !ok {
		m.stats.recordMiss(time.Since(start))
		return zero, ErrNotFound
	}

	e := elem.Value.(*entry[V])

	if e.isExpired() {
		m.removeElement(elem)
		m.stats.recordMiss(time.Since(start))
		return zero, ErrNotFound
	}

	val := e.value
	if e.encoded != nil {
		data, err := m.codec.decode(e.encoded)
		if err == nil {
			val, err = m.marshaler.Unmarshal(data)
		}
		if err != nil {
			// Corrupt entry: evict and treat as a miss rather than fail.
			m.removeElement(elem)
			m.stats.recordMiss(time.Since(start))
			return zero, ErrNotFound
		}
	}

	e.hitCount++
	e.lastAccessed = time.Now()

	// Move to front: mark as recently used.
	m.eviction.MoveToFront(elem)

	m.stats.recordHit(time.Since(start))

	return val, nil
}

// Set stores a value with the given TTL.
// TTL semantics: positive = expires after duration, zero = use default TTL,
// negative = no-op (nothing is stored).
func (m *Memory[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	return m.SetTagged(ctx, key, value, ttl)
}

// SetTagged stores a value with the given TTL and tags.
func (m *Memory[V]) SetTagged(_ context.Context, key string, value V, ttl time.Duration, tags ...string) error {
	// Resolve TTL.
	if ttl == 0 {
		ttl = m.opts.defaultTTL
	}
	if ttl < 0 {
		// Entries with a non-positive effective TTL are never stored.
		return nil
	}

	var (
		encoded []byte
		size    int64
	)
	if m.serialized() {
		data, err := m.marshaler.Marshal(value)
		if err != nil {
			return err
		}
		encoded = m.codec.encode(data)
		size = int64(len(encoded))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	expiresAt := time.Now().Add(ttl)

	// Update existing entry in place.
	if elem, ok := m.items[key]; ok {
		e := elem.Value.(*entry[V])
		m.totalSize += size - e.size
		e.value = value
		e.encoded = encoded
		e.expiresAt = expiresAt
		e.tags = tags
		e.size = size
		e.hitCount = 0
		e.lastAccessed = time.Now()
		m.eviction.MoveToFront(elem)
		m.evictToBudget()
		return nil
	}

	// Evict LRU entry if at the entry-count cap.
	if m.opts.maxEntries > 0 && len(m.items) >= m.opts.maxEntries {
		m.evictOldest()
	}

	// Insert new entry at front.
	e := &entry[V]{
		key:          key,
		value:        value,
		encoded:      encoded,
		expiresAt:    expiresAt,
		tags:         tags,
		size:         size,
		lastAccessed: time.Now(),
	}
	elem := m.eviction.PushFront(e)
	m.items[key] = elem
	m.totalSize += size

	m.evictToBudget()

	return nil
}

// Delete removes a key from the cache.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if elem, ok := m.items[key]; ok {
		m.removeElement(elem)
	}

	return nil
}

// Has checks whether a key exists and has not expired.
// Unlike Get it does not touch LRU ordering or metrics.
func (m *Memory[V]) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}

	elem, ok := m.items[key]
	if !ok {
		return false, nil
	}

	e := elem.Value.(*entry[V])
	if e.isExpired() {
		m.removeElement(elem)
		return false, nil
	}

	return true, nil
}

// Clear removes all entries from the cache.
func (m *Memory[V]) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if m.onEvict != nil {
		for _, elem := range m.items {
			e := elem.Value.(*entry[V])
			m.onEvict(e.key, e.value)
		}
	}

	m.items = make(map[string]*list.Element)
	m.eviction.Init()
	m.totalSize = 0

	return nil
}

// InvalidateByTag removes every entry tagged with tag and returns the
// number of entries removed. Entries without the tag are untouched.
func (m *Memory[V]) InvalidateByTag(_ context.Context, tag string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	var matched []*list.Element
	for _, elem := range m.items {
		if elem.Value.(*entry[V]).hasTag(tag) {
			matched = append(matched, elem)
		}
	}
	for _, elem := range matched {
		m.removeElement(elem)
	}

	return len(matched), nil
}

// InvalidateByPattern removes every entry whose key matches the wildcard
// pattern and returns the number of entries removed.
func (m *Memory[V]) InvalidateByPattern(_ context.Context, pattern string) (int, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	var matched []*list.Element
	for key, elem := range m.items {
		if re.MatchString(key) {
			matched = append(matched, elem)
		}
	}
	for _, elem := range matched {
		m.removeElement(elem)
	}

	return len(matched), nil
}

// Metrics returns a snapshot of cache activity.
func (m *Memory[V]) Metrics() Metrics {
	m.mu.Lock()
	entries := len(m.items)
	size := m.totalSize
	m.mu.Unlock()

	snap := m.stats.snapshot()
	snap.Entries = entries
	snap.SizeBytes = size
	return snap
}

// ObserveFetch records the duration of a compute callback. Feeds the
// rolling fetch-cost estimate behind the cost saved metric.
func (m *Memory[V]) ObserveFetch(d time.Duration) {
	m.stats.observeFetch(d)
}

// Close stops the background janitor goroutine and marks the cache as closed.
// Close is idempotent.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	close(m.done)

	return nil
}

// janitor periodically removes expired entries. Expiry is also checked
// lazily on every read, so the sweep is housekeeping, not correctness.
func (m *Memory[V]) janitor() {
	ticker := time.NewTicker(m.opts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.deleteExpired()
		}
	}
}

// deleteExpired removes all expired entries from back to front.
func (m *Memory[V]) deleteExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0
	for elem := m.eviction.Back(); elem != nil; {
		e := elem.Value.(*entry[V])
		prev := elem.Prev()
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			m.removeElement(elem)
			removed++
		}
		elem = prev
	}
	if removed > 0 {
		m.stats.recordEviction(removed)
	}
}

// evictToBudget removes least-recently-used entries until total size
// drops to 80% of the byte budget. The 20% headroom avoids re-evicting on
// every subsequent write. Caller must hold the mutex.
func (m *Memory[V]) evictToBudget() {
	if m.opts.maxMemory <= 0 || m.totalSize <= m.opts.maxMemory {
		return
	}

	target := m.opts.maxMemory * 8 / 10
	removed := 0
	for m.totalSize > target {
		elem := m.eviction.Back()
		if elem == nil {
			break
		}
		m.removeElement(elem)
		removed++
	}
	if removed > 0 {
		m.stats.recordEviction(removed)
	}
}

// evictOldest removes the least recently used entry.
// Caller must hold the mutex.
func (m *Memory[V]) evictOldest() {
	elem := m.eviction.Back()
	if elem != nil {
		m.removeElement(elem)
		m.stats.recordEviction(1)
	}
}

// removeElement removes a specific element and triggers the eviction callback.
// Caller must hold the mutex.
func (m *Memory[V]) removeElement(elem *list.Element) {
	m.eviction.Remove(elem)
	e := elem.Value.(*entry[V])
	delete(m.items, e.key)
	m.totalSize -= e.size

	if m.onEvict != nil {
		m.onEvict(e.key, e.value)
	}
}

var _ TaggedCache[any] = (*Memory[any])(nil)
var _ FetchObserver = (*Memory[any])(nil)
