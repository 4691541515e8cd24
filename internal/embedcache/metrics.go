package embedcache

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the hit/miss/eviction counters required by §4.2, labeled by
// cache namespace (passage/query/h1/context).
type Metrics struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	evictions *prometheus.CounterVec
}

// NewMetrics registers (once, best-effort) the embedding cache's counters
// against the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "care_embedcache_hits_total",
			Help: "Cache hits, labeled by namespace.",
		}, []string{"namespace"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "care_embedcache_misses_total",
			Help: "Cache misses, labeled by namespace.",
		}, []string{"namespace"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "care_embedcache_evictions_total",
			Help: "LRU evictions, labeled by namespace.",
		}, []string{"namespace"}),
	}
	for _, c := range []**prometheus.CounterVec{&m.hits, &m.misses, &m.evictions} {
		if err := prometheus.Register(*c); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				// another cache instance already registered; counters still work via that collector
				if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
					*c = existing
				}
			}
		}
	}
	return m
}

// RecordLookup records a cache hit or miss for the given namespace.
func (m *Metrics) RecordLookup(namespace string, hit bool) {
	if hit {
		m.hits.WithLabelValues(namespace).Inc()
		return
	}
	m.misses.WithLabelValues(namespace).Inc()
}

// RecordEviction records one LRU eviction for the given namespace.
func (m *Metrics) RecordEviction(namespace string) {
	m.evictions.WithLabelValues(namespace).Inc()
}
