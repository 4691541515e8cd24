package embeddings

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus counters/histograms for the Embedding Provider.
// Kept in the style of the teacher's own embeddings/metrics.go, but wired
// to prometheus/client_golang (§10) rather than an OTel meter pipeline,
// since the spec carries no distributed-tracing backend.
type Metrics struct {
	duration *prometheus.HistogramVec
	batch    *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewMetrics registers (once, best-effort) the embedding provider's
// counters against the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "care_embedding_generation_duration_seconds",
			Help:    "Duration of embedding generation calls, labeled by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		batch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "care_embedding_batch_size",
			Help:    "Number of texts per embedding batch call.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"operation"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "care_embedding_errors_total",
			Help: "Total embedding generation errors, labeled by operation.",
		}, []string{"operation"}),
	}
	// another provider instance may already have registered; metrics then
	// still work via that instance's collectors
	for _, h := range []**prometheus.HistogramVec{&m.duration, &m.batch} {
		if err := prometheus.Register(*h); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
					*h = existing
				}
			}
		}
	}
	if err := prometheus.Register(m.errors); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				m.errors = existing
			}
		}
	}
	return m
}

// RecordGeneration records one embedding call's outcome.
func (m *Metrics) RecordGeneration(operation string, batchSize int, err error) {
	if batchSize > 0 {
		m.batch.WithLabelValues(operation).Observe(float64(batchSize))
	}
	if err != nil {
		m.errors.WithLabelValues(operation).Inc()
	}
}

// RecordDuration records how long an embedding call took.
func (m *Metrics) RecordDuration(operation string, seconds float64) {
	m.duration.WithLabelValues(operation).Observe(seconds)
}
