package vectorstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "care",
			Subsystem: "vectorstore",
			Name:      "rows_total",
			Help:      "Current row count per table.",
		},
		[]string{"table"},
	)

	indexTier = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "care",
			Subsystem: "vectorstore",
			Name:      "index_tier",
			Help:      "Active adaptive index tier per table (0=exact, 1=ivf_flat, 2=ivf_pq).",
		},
		[]string{"table"},
	)

	searchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "care",
			Subsystem: "vectorstore",
			Name:      "search_duration_seconds",
			Help:      "Duration of hybrid Search calls, labeled by table.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"table"},
	)

	upsertTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "care",
			Subsystem: "vectorstore",
			Name:      "upserts_total",
			Help:      "Total records upserted, labeled by table.",
		},
		[]string{"table"},
	)

	indexRebuildTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "care",
			Subsystem: "vectorstore",
			Name:      "index_rebuilds_total",
			Help:      "Total adaptive-index rebuilds, labeled by table and tier.",
		},
		[]string{"table", "tier"},
	)

	indexFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "care",
			Subsystem: "vectorstore",
			Name:      "index_fallbacks_total",
			Help:      "Times ANN index creation failed and the store fell back to exact search.",
		},
		[]string{"table"},
	)
)

func recordTierGauge(table Table, tier indexTierKind) {
	indexTier.WithLabelValues(string(table)).Set(float64(tier))
}

func recordRowCount(table Table, n int) {
	rowsTotal.WithLabelValues(string(table)).Set(float64(n))
}

func recordUpsert(table Table, n int) {
	upsertTotal.WithLabelValues(string(table)).Add(float64(n))
}

func recordIndexRebuild(table Table, tier indexTierKind) {
	indexRebuildTotal.WithLabelValues(string(table), tier.String()).Inc()
}

func recordIndexFallback(table Table) {
	indexFallbackTotal.WithLabelValues(string(table)).Inc()
}
