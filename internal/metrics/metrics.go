// Package metrics exposes Prometheus collectors for the ledger and the HTTP
// layer on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tiffin"

// Result labels for ledger operations.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	LedgerOps     *prometheus.CounterVec
	Orders        prometheus.Gauge
	Members       prometheus.Gauge
	HTTPDuration  *prometheus.HistogramVec
	EventsPublish *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		LedgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger and roster operations by kind and result.",
		}, []string{"op", "result"}),
		Orders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orders",
			Help:      "Orders currently held by the ledger.",
		}),
		Members: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "members",
			Help:      "Members currently on the roster.",
		}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		EventsPublish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_events_total",
			Help:      "Ledger change notifications by notifier and result.",
		}, []string{"notifier", "result"}),
	}

	m.registry.MustRegister(
		m.LedgerOps,
		m.Orders,
		m.Members,
		m.HTTPDuration,
		m.EventsPublish,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOp counts one ledger operation. A nil receiver is a no-op so callers
// can run without metrics.
func (m *Metrics) ObserveOp(op, result string) {
	if m == nil {
		return
	}
	m.LedgerOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) SetCounts(orders, members int) {
	if m == nil {
		return
	}
	m.Orders.Set(float64(orders))
	m.Members.Set(float64(members))
}

func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) ObserveNotify(notifier string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.EventsPublish.WithLabelValues(notifier, result).Inc()
}
