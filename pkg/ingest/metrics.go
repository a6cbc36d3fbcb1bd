package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the ingestion pipeline
type Metrics struct {
	// Lines tracks non-blank lines read, by result
	Lines *prometheus.CounterVec // labels: result (valid/invalid)

	// BatchesCommitted tracks batches written to storage
	BatchesCommitted prometheus.Counter

	// BatchFlushDuration tracks the time spent writing one batch
	BatchFlushDuration prometheus.Histogram

	// Runs tracks finished runs
	Runs *prometheus.CounterVec // labels: mode (append/replace), status (success/failed)

	// RunDuration tracks end-to-end run time
	RunDuration prometheus.Histogram

	// RowsCleared tracks rows deleted by replace runs
	RowsCleared prometheus.Counter
}

// NewMetrics creates and registers the pipeline metrics
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates metrics with a custom registry
// This is useful for testing to avoid conflicts with the default registry
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Lines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lb_log_analyzer_ingest_lines_total",
				Help: "Total number of non-blank log lines read",
			},
			[]string{"result"},
		),
		BatchesCommitted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lb_log_analyzer_ingest_batches_committed_total",
				Help: "Total number of record batches committed to storage",
			},
		),
		BatchFlushDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lb_log_analyzer_ingest_batch_flush_duration_seconds",
				Help:    "Time spent writing one batch to storage",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}, // 1ms to 5s
			},
		),
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lb_log_analyzer_ingest_runs_total",
				Help: "Total number of finished ingestion runs",
			},
			[]string{"mode", "status"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lb_log_analyzer_ingest_run_duration_seconds",
				Help:    "End-to-end ingestion run time",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900}, // 100ms to 15min
			},
		),
		RowsCleared: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lb_log_analyzer_ingest_rows_cleared_total",
				Help: "Total number of rows deleted before replace runs",
			},
		),
	}
}
