package cache

import "github.com/prometheus/client_golang/prometheus"

// MetricsProvider is anything that can report cache activity.
// Implemented by Memory and Tiered.
type MetricsProvider interface {
	Metrics() Metrics
}

// Collector exposes cache metrics to Prometheus. Register one per cache:
//
//	prometheus.MustRegister(cache.NewCollector("responses", mem))
type Collector struct {
	provider MetricsProvider

	hits       *prometheus.Desc
	misses     *prometheus.Desc
	evictions  *prometheus.Desc
	entries    *prometheus.Desc
	sizeBytes  *prometheus.Desc
	hitRate    *prometheus.Desc
	avgLatency *prometheus.Desc
	costSaved  *prometheus.Desc
}

// NewCollector creates a Prometheus collector for the given cache.
// The name label distinguishes multiple caches in one process.
func NewCollector(name string, p MetricsProvider) *Collector {
	labels := prometheus.Labels{"cache": name}
	return &Collector{
		provider: p,
		hits: prometheus.NewDesc("cachekit_hits_total",
			"Total number of cache hits.", nil, labels),
		misses: prometheus.NewDesc("cachekit_misses_total",
			"Total number of cache misses.", nil, labels),
		evictions: prometheus.NewDesc("cachekit_evictions_total",
			"Total number of entries evicted by TTL sweep or LRU pressure.", nil, labels),
		entries: prometheus.NewDesc("cachekit_entries",
			"Current number of live cache entries.", nil, labels),
		sizeBytes: prometheus.NewDesc("cachekit_size_bytes",
			"Total serialized size of live cache entries.", nil, labels),
		hitRate: prometheus.NewDesc("cachekit_hit_rate",
			"Cache hit rate since process start.", nil, labels),
		avgLatency: prometheus.NewDesc("cachekit_avg_latency_seconds",
			"Rolling average cache read latency.", nil, labels),
		costSaved: prometheus.NewDesc("cachekit_cost_saved_seconds",
			"Estimated cumulative compute time avoided by cache hits.", nil, labels),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.entries
	ch <- c.sizeBytes
	ch <- c.hitRate
	ch <- c.avgLatency
	ch <- c.costSaved
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.provider.Metrics()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(m.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(m.Misses))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(m.Evictions))
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(m.Entries))
	ch <- prometheus.MustNewConstMetric(c.sizeBytes, prometheus.GaugeValue, float64(m.SizeBytes))
	ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, m.HitRate)
	ch <- prometheus.MustNewConstMetric(c.avgLatency, prometheus.GaugeValue, m.AvgLatency.Seconds())
	ch <- prometheus.MustNewConstMetric(c.costSaved, prometheus.GaugeValue, m.CostSaved.Seconds())
}

var _ prometheus.Collector = (*Collector)(nil)
