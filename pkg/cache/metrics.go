package cache

import (
	"sync"
	"time"
)

// costSavedThreshold is the minimum historical fetch time for a cache hit
// to count toward the estimated cost saved metric. Hits that would have
// been cheap to recompute are not worth reporting.
const costSavedThreshold = 100 * time.Millisecond

// Metrics is a point-in-time snapshot of cache activity. Purely
// observational: nothing in the cache consults these values except the
// total size versus byte budget comparison during eviction.
type Metrics struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
	SizeBytes int64
	// HitRate is Hits/(Hits+Misses), 0 before any request.
	HitRate float64
	// AvgLatency is an exponential rolling average of Get latency.
	AvgLatency time.Duration
	// CostSaved estimates cumulative compute time avoided by cache hits,
	// counting only hits whose historical fetch time exceeded 100ms.
	CostSaved time.Duration
}

// stats accumulates cache activity counters. Shared by the in-memory and
// tiered caches. All methods are safe for concurrent use.
type stats struct {
	mu         sync.Mutex
	hits       int64
	misses     int64
	evictions  int64
	avgLatency time.Duration
	avgFetch   time.Duration
	costSaved  time.Duration
}

// ewma weight for rolling averages: new = old*0.9 + sample*0.1.
func ewma(old, sample time.Duration) time.Duration {
	if old == 0 {
		return sample
	}
	return old - old/10 + sample/10
}

func (s *stats) recordHit(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits++
	s.avgLatency = ewma(s.avgLatency, latency)
	if s.avgFetch > costSavedThreshold {
		s.costSaved += s.avgFetch
	}
}

func (s *stats) recordMiss(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.misses++
	s.avgLatency = ewma(s.avgLatency, latency)
}

func (s *stats) recordEviction(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictions += int64(n)
}

func (s *stats) observeFetch(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.avgFetch = ewma(s.avgFetch, d)
}

// snapshot fills the counter-derived fields of a Metrics value. Entry
// count and size are owned by the cache itself.
func (s *stats) snapshot() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := Metrics{
		Hits:       s.hits,
		Misses:     s.misses,
		Evictions:  s.evictions,
		AvgLatency: s.avgLatency,
		CostSaved:  s.costSaved,
	}
	if total := s.hits + s.misses; total > 0 {
		m.HitRate = float64(s.hits) / float64(total)
	}
	return m
}
