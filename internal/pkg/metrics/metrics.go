// Package metrics exposes prometheus instrumentation for the checkout core
// and the HTTP layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketplace"

// Metrics holds every collector on its own registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	linesRevalidated     *prometheus.CounterVec
	revalidationDuration prometheus.Histogram
	ordersPlaced         prometheus.Counter
	orderGroups          prometheus.Histogram
	checkoutFailures     *prometheus.CounterVec
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

// New creates and registers all collectors
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		linesRevalidated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cart",
				Name:      "lines_revalidated_total",
				Help:      "Cart lines revalidated against the catalog, by outcome.",
			},
			[]string{"outcome"},
		),
		revalidationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "cart",
				Name:      "revalidation_duration_seconds",
				Help:      "Time to revalidate a whole cart.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		ordersPlaced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "orders_placed_total",
				Help:      "Orders persisted successfully.",
			},
		),
		orderGroups: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "order_groups",
				Help:      "Number of store groups per placed order.",
				Buckets:   []float64{1, 2, 3, 5, 8, 13},
			},
		),
		checkoutFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "failures_total",
				Help:      "Checkout attempts that did not produce an order, by error kind.",
			},
			[]string{"kind"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests served.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.linesRevalidated,
		m.revalidationDuration,
		m.ordersPlaced,
		m.orderGroups,
		m.checkoutFailures,
		m.httpRequests,
		m.httpDuration,
	)

	return m
}

// Registry returns the registry backing the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLine counts one revalidated line. outcome is "ok" or an error kind.
func (m *Metrics) ObserveLine(outcome string) {
	if m == nil {
		return
	}
	m.linesRevalidated.WithLabelValues(outcome).Inc()
}

// ObserveRevalidation records how long a cart revalidation took
func (m *Metrics) ObserveRevalidation(d time.Duration) {
	if m == nil {
		return
	}
	m.revalidationDuration.Observe(d.Seconds())
}

// OrderPlaced counts a persisted order with its number of store groups
func (m *Metrics) OrderPlaced(groups int) {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
	m.orderGroups.Observe(float64(groups))
}

// CheckoutFailed counts a checkout that produced no order
func (m *Metrics) CheckoutFailed(kind string) {
	if m == nil {
		return
	}
	m.checkoutFailures.WithLabelValues(kind).Inc()
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
