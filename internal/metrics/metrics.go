// Package metrics exposes Prometheus collectors for the points ledger.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exchange outcomes used as the "outcome" label.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics groups the collectors recorded by the ledger and redemption engine.
type Metrics struct {
	registry *prometheus.Registry

	TransactionsTotal   *prometheus.CounterVec
	PointsMovedTotal    *prometheus.CounterVec
	ExchangesTotal      *prometheus.CounterVec
	MismatchedAccounts  prometheus.Gauge
	TransactionDuration prometheus.Histogram
}

// New builds a Metrics instance on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		TransactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_points_transactions_total",
			Help: "Ledger entries recorded, by transaction type.",
		}, []string{"type"}),
		PointsMovedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_points_moved_total",
			Help: "Absolute points moved, by direction.",
		}, []string{"direction"}),
		ExchangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_exchanges_total",
			Help: "Product exchanges attempted, by outcome and reason.",
		}, []string{"outcome", "reason"}),
		MismatchedAccounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_ledger_mismatched_accounts",
			Help: "Accounts whose balance disagreed with the ledger at the last audit.",
		}),
		TransactionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_points_transaction_seconds",
			Help:    "Time spent inside a ledger unit of work.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.TransactionsTotal,
		m.PointsMovedTotal,
		m.ExchangesTotal,
		m.MismatchedAccounts,
		m.TransactionDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveTransaction records one committed ledger entry.
func (m *Metrics) ObserveTransaction(transactionType string, amount int64) {
	if m == nil {
		return
	}
	m.TransactionsTotal.WithLabelValues(transactionType).Inc()
	if amount >= 0 {
		m.PointsMovedTotal.WithLabelValues("credit").Add(float64(amount))
		return
	}
	m.PointsMovedTotal.WithLabelValues("debit").Add(float64(-amount))
}

// ObserveExchange records one exchange attempt.
func (m *Metrics) ObserveExchange(outcome, reason string) {
	if m == nil {
		return
	}
	m.ExchangesTotal.WithLabelValues(outcome, reason).Inc()
}

// ObserveDuration records how long one unit of work took.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.TransactionDuration.Observe(d.Seconds())
}

// SetMismatchedAccounts publishes the latest audit result.
func (m *Metrics) SetMismatchedAccounts(n int) {
	if m == nil {
		return
	}
	m.MismatchedAccounts.Set(float64(n))
}
