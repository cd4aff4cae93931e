package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	DefectTransitionsTotal *prometheus.CounterVec
	ExportsTotal           prometheus.Counter
	DefectsOpen            prometheus.Gauge
	DefectsTotal           prometheus.Gauge

	// Storage metrics
	StorageErrorsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics. Passing nil
// creates a private registry, which keeps tests isolated.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snag_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "snag_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		DefectTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snag_defect_transitions_total",
				Help: "Total number of defect status transitions",
			},
			[]string{"from", "to"},
		),
		ExportsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "snag_defect_exports_total",
				Help: "Total number of defect exports",
			},
		),
		DefectsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "snag_defects_open",
				Help: "Number of defects not in a terminal status",
			},
		),
		DefectsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "snag_defects_total",
				Help: "Total number of defects",
			},
		),
		StorageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snag_storage_errors_total",
				Help: "Total number of storage-layer errors",
			},
			[]string{"operation"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DefectTransitionsTotal,
		m.ExportsTotal,
		m.DefectsOpen,
		m.DefectsTotal,
		m.StorageErrorsTotal,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
