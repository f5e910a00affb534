// Package metrics exposes Prometheus counters for stock movements and HTTP
// traffic. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zaloga"

// Issuance outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Metrics owns its registry so tests can create independent instances.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	IssuancesTotal     *prometheus.CounterVec
	QuantityIssued     prometheus.Counter
	LedgerEntriesTotal *prometheus.CounterVec
	ItemsBelowReorder  prometheus.Gauge
}

// New creates a Metrics instance with Go and process collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	m.IssuancesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issuances_total",
			Help:      "Issuance requests by outcome",
		},
		[]string{"outcome", "reason"},
	)

	m.QuantityIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quantity_issued_total",
			Help:      "Total units issued to departments",
		},
	)

	m.LedgerEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_total",
			Help:      "Ledger entries written by transaction type",
		},
		[]string{"type"},
	)

	m.ItemsBelowReorder = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items_below_reorder_level",
			Help:      "Items at or below their minimum stock level at the last check",
		},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.IssuancesTotal,
		m.QuantityIssued,
		m.LedgerEntriesTotal,
		m.ItemsBelowReorder,
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request. path should be the route
// pattern, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordIssuance records the final state of an issuance request. reason is
// empty for committed issuances.
func (m *Metrics) RecordIssuance(outcome, reason string, quantity int) {
	if m == nil {
		return
	}
	m.IssuancesTotal.WithLabelValues(outcome, reason).Inc()
	if outcome == OutcomeCommitted {
		m.QuantityIssued.Add(float64(quantity))
	}
}

// RecordLedgerEntry counts a committed ledger entry.
func (m *Metrics) RecordLedgerEntry(transactionType string) {
	if m == nil {
		return
	}
	m.LedgerEntriesTotal.WithLabelValues(transactionType).Inc()
}

// SetItemsBelowReorder sets the reorder gauge.
func (m *Metrics) SetItemsBelowReorder(n int) {
	if m == nil {
		return
	}
	m.ItemsBelowReorder.Set(float64(n))
}
