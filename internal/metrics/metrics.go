// Package metrics provides Prometheus metrics for dataset loading and chart aggregation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Load outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder is what the loader and handlers depend on; Nop satisfies it in tests.
type Recorder interface {
	RecordLoad(source, outcome string, d time.Duration)
	RecordCache(hit bool)
	RecordAggregation(mode string, d time.Duration)
	RecordUpload(outcome string, bytes int64)
}

// Metrics holds the application collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	loadsTotal          *prometheus.CounterVec
	loadDuration        *prometheus.HistogramVec
	cacheRequestsTotal  *prometheus.CounterVec
	aggregationDuration *prometheus.HistogramVec
	uploadsTotal        *prometheus.CounterVec
	uploadBytesTotal    prometheus.Counter
	httpRequestsTotal   *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	rejectedTotal       *prometheus.CounterVec
}

var _ Recorder = (*Metrics)(nil)

// New creates and registers all collectors, including the Go runtime ones.
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	m := &Metrics{registry: registry}
	m.initMetrics()

	if err := registry.Register(m); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analizador_dataset_loads_total",
			Help: "Workbook loads by source kind and outcome",
		},
		[]string{"source", "outcome"},
	)
	m.loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analizador_dataset_load_duration_seconds",
			Help:    "Time taken to read, parse and join a workbook",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"source"},
	)
	m.cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analizador_dataset_cache_requests_total",
			Help: "Dataset cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)
	m.aggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analizador_aggregation_duration_seconds",
			Help:    "Time taken to compute chart data",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"mode"},
	)
	m.uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analizador_uploads_total",
			Help: "Workbook uploads by outcome",
		},
		[]string{"outcome"},
	)
	m.uploadBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analizador_upload_bytes_total",
		Help: "Bytes of accepted uploads",
	})
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analizador_http_requests_total",
			Help: "HTTP requests by method and status code",
		},
		[]string{"method", "code"},
	)
	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analizador_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	m.rejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analizador_http_rejected_total",
			Help: "Requests refused before reaching a handler",
		},
		[]string{"reason"}, // rate_limit, suspicious
	)
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.loadsTotal.Describe(ch)
	m.loadDuration.Describe(ch)
	m.cacheRequestsTotal.Describe(ch)
	m.aggregationDuration.Describe(ch)
	m.uploadsTotal.Describe(ch)
	m.uploadBytesTotal.Describe(ch)
	m.httpRequestsTotal.Describe(ch)
	m.httpDuration.Describe(ch)
	m.rejectedTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.loadsTotal.Collect(ch)
	m.loadDuration.Collect(ch)
	m.cacheRequestsTotal.Collect(ch)
	m.aggregationDuration.Collect(ch)
	m.uploadsTotal.Collect(ch)
	m.uploadBytesTotal.Collect(ch)
	m.httpRequestsTotal.Collect(ch)
	m.httpDuration.Collect(ch)
	m.rejectedTotal.Collect(ch)
}

func (m *Metrics) RecordLoad(source, outcome string, d time.Duration) {
	m.loadsTotal.WithLabelValues(source, outcome).Inc()
	m.loadDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequestsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordAggregation(mode string, d time.Duration) {
	m.aggregationDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (m *Metrics) RecordUpload(outcome string, bytes int64) {
	m.uploadsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess && bytes > 0 {
		m.uploadBytesTotal.Add(float64(bytes))
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordRejected counts a request turned away by middleware.
func (m *Metrics) RecordRejected(reason string) {
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordLoad(string, string, time.Duration) {}
func (Nop) RecordCache(bool) {}
func (Nop) RecordAggregation(string, time.Duration) {}
func (Nop) RecordUpload(string, int64) {}
