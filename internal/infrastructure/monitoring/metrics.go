package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP API
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Upstream fetches
	FetchTotal    *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	BreakerState  prometheus.Gauge

	// Extraction
	PagesTotal  *prometheus.CounterVec
	RowsDropped *prometheus.CounterVec

	// Sweeps
	SweepDuration *prometheus.HistogramVec
	SweepRecords  *prometheus.CounterVec
}

// NewMetrics creates a collector on its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitibrasil_http_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vitibrasil_http_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 15, 60, 300},
			},
			[]string{"method", "path"},
		),

		FetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitibrasil_upstream_fetches_total",
				Help: "Upstream report fetches by outcome",
			},
			[]string{"status"},
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vitibrasil_upstream_fetch_duration_seconds",
				Help:    "Upstream report fetch duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		BreakerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vitibrasil_upstream_breaker_state",
				Help: "Upstream circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
		),

		PagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitibrasil_pages_total",
				Help: "Report pages processed by outcome (data, empty, failed)",
			},
			[]string{"category", "outcome"},
		),
		RowsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitibrasil_rows_dropped_total",
				Help: "Table rows dropped during extraction by reason",
			},
			[]string{"reason"},
		),

		SweepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vitibrasil_sweep_duration_seconds",
				Help:    "Duration of a full category sweep",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"category"},
		),
		SweepRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitibrasil_sweep_records_total",
				Help: "Normalized records produced by sweeps",
			},
			[]string{"category"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an API request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordFetch records one upstream request. status is the HTTP status code,
// or 0 when the request never got a response.
func (m *Metrics) RecordFetch(status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.FetchTotal.WithLabelValues(label).Inc()
	m.FetchDuration.Observe(duration.Seconds())
}

// SetBreakerState mirrors the upstream breaker state.
func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.BreakerState.Set(float64(state))
}

// RecordPage counts a processed page by outcome.
func (m *Metrics) RecordPage(category, outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(category, outcome).Inc()
}

// RecordDroppedRows counts rows discarded for reason.
func (m *Metrics) RecordDroppedRows(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsDropped.WithLabelValues(reason).Add(float64(n))
}

// RecordSweep records a finished sweep.
func (m *Metrics) RecordSweep(category string, records int, duration time.Duration) {
	if m == nil {
		return
	}
	m.SweepDuration.WithLabelValues(category).Observe(duration.Seconds())
	m.SweepRecords.WithLabelValues(category).Add(float64(records))
}
