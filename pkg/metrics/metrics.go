package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all metrics for the WSI integration service
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Pick ticket metrics
	PickTicketsIngested  *prometheus.CounterVec
	PickTicketsSplit     prometheus.Counter
	PickTicketsSkipped   prometheus.Counter
	OutboundBatchesBuilt prometheus.Counter

	// Reconciliation metrics
	ConfirmationsProcessed prometheus.Counter
	OrdersMarkedShipped    prometheus.Counter
	ReconciliationFailures prometheus.Counter

	// External call metrics
	ExternalCallDuration *prometheus.HistogramVec
	ExternalCallErrors   *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wsi",
	}
}

// New creates a new Metrics instance
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	m.PickTicketsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "picktickets_ingested_total",
			Help:      "Total number of pick tickets ingested",
		},
		[]string{"service", "mode", "status"},
	)

	m.PickTicketsSplit = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "picktickets_split_total",
			Help:        "Total number of pick tickets split for expedited shipping",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.PickTicketsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "picktickets_skipped_total",
			Help:        "Total number of duplicate pick tickets skipped during batch ingestion",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.OutboundBatchesBuilt = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "outbound_batches_built_total",
			Help:        "Total number of outbound interchange batches uploaded",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.ConfirmationsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "confirmations_processed_total",
			Help:        "Total number of shipping confirmation records processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.OrdersMarkedShipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "orders_marked_shipped_total",
			Help:        "Total number of orders marked shipped in the order system",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.ReconciliationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "reconciliation_failures_total",
			Help:        "Total number of orders that failed reconciliation",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.ExternalCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "external_call_duration_seconds",
			Help:      "Duration of downstream calls in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "system", "operation"},
	)

	m.ExternalCallErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "external_call_errors_total",
			Help:      "Total number of failed downstream calls",
		},
		[]string{"service", "system", "operation"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PickTicketsIngested,
		m.PickTicketsSplit,
		m.PickTicketsSkipped,
		m.OutboundBatchesBuilt,
		m.ConfirmationsProcessed,
		m.OrdersMarkedShipped,
		m.ReconciliationFailures,
		m.ExternalCallDuration,
		m.ExternalCallErrors,
	)

	return m
}

// ServiceName returns the service name used for metric labels
func (m *Metrics) ServiceName() string {
	return m.serviceName
}

// Handler returns the HTTP handler serving the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveExternalCall records the duration and outcome of a downstream call
func (m *Metrics) ObserveExternalCall(system, operation string, start time.Time, err error) {
	m.ExternalCallDuration.WithLabelValues(m.serviceName, system, operation).
		Observe(time.Since(start).Seconds())
	if err != nil {
		m.ExternalCallErrors.WithLabelValues(m.serviceName, system, operation).Inc()
	}
}
