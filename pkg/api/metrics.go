package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the HTTP API
type Metrics struct {
	// Requests tracks served requests
	Requests *prometheus.CounterVec // labels: route, code

	// RequestDuration tracks request handling time
	RequestDuration *prometheus.HistogramVec // labels: route

	// UploadedBytes tracks bytes read from uploaded files, before decompression
	UploadedBytes prometheus.Counter

	// ExportedRows tracks records written by CSV downloads
	ExportedRows prometheus.Counter
}

// NewMetrics creates and registers the API metrics
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates metrics with a custom registry
// This is useful for testing to avoid conflicts with the default registry
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lb_log_analyzer_http_requests_total",
				Help: "Total number of HTTP API requests",
			},
			[]string{"route", "code"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lb_log_analyzer_http_request_duration_seconds",
				Help:    "Time spent handling HTTP API requests",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120}, // 5ms to 2min
			},
			[]string{"route"},
		),
		UploadedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lb_log_analyzer_http_uploaded_bytes_total",
				Help: "Total number of bytes received in uploaded log files",
			},
		),
		ExportedRows: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lb_log_analyzer_http_exported_rows_total",
				Help: "Total number of records written to CSV downloads",
			},
		),
	}
}
