// Package metrics is the engine's ambient observability layer:
// per-operation counters and latency histograms exported for
// Prometheus scraping. Carried regardless of the Non-goals, which
// scope out features, not instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablelake_operations_total",
			Help: "Total number of engine operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tablelake_operation_duration_seconds",
			Help:    "Engine operation duration in seconds by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ScannedRows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tablelake_query_scanned_rows_total",
			Help: "Total number of rows scanned across all QUERY operations",
		},
	)

	ScannedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tablelake_query_scanned_bytes_total",
			Help: "Total number of bytes scanned across all QUERY operations",
		},
	)

	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablelake_metadata_cache_total",
			Help: "Total number of metadata resolutions by cache outcome",
		},
		[]string{"outcome"},
	)

	CommitRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablelake_commit_retries_total",
			Help: "Total number of catalog commit retries by component",
		},
		[]string{"component"},
	)

	SmallFilesGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tablelake_small_files_remaining",
			Help: "Small files remaining for a table after its most recent compaction",
		},
		[]string{"table"},
	)
)

func init() {
	prometheus.MustRegister(OperationsTotal)
	prometheus.MustRegister(OperationDuration)
	prometheus.MustRegister(ScannedRows)
	prometheus.MustRegister(ScannedBytes)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CommitRetriesTotal)
	prometheus.MustRegister(SmallFilesGauge)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times one operation and records it against both the duration
// histogram and the outcome counter on Observe.
type Timer struct {
	start time.Time
	op    string
}

// NewTimer starts timing operation op.
func NewTimer(op string) *Timer {
	return &Timer{start: time.Now(), op: op}
}

// Observe records the elapsed duration and outcome ("success" or
// "error") for the timed operation.
func (t *Timer) Observe(outcome string) {
	OperationDuration.WithLabelValues(t.op).Observe(time.Since(t.start).Seconds())
	OperationsTotal.WithLabelValues(t.op, outcome).Inc()
}
