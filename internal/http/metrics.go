package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kakeibo/internal/cache"
	"kakeibo/internal/core"
	"kakeibo/internal/report"
)

const namespace = "kakeibo"

// Metrics holds the server's Prometheus collectors on a private registry.
// It also receives ledger events as a services.Observer.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rateLimited prometheus.Counter

	expenses    *prometheus.CounterVec
	amount      *prometheus.CounterVec
	skippedRows *prometheus.CounterVec

	monthSpent  prometheus.Gauge
	monthBudget prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		expenses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_recorded_total",
			Help:      "Ledger records written, by split type.",
		}, []string{"split"}),
		amount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expense_amount_minor_total",
			Help:      "Sum of recorded amounts in minor units, by split type.",
		}, []string{"split"}),
		skippedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Malformed sheet rows left out of a view.",
		}, []string{"sheet"}),
		monthSpent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "month_to_date_spent_minor",
			Help:      "Spending of the current calendar month, as of the last alert computed.",
		}),
		monthBudget: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monthly_budget_minor",
			Help:      "Configured monthly budget, 0 when unset.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.rateLimited,
		m.expenses, m.amount, m.skippedRows,
		m.monthSpent, m.monthBudget,
	)
	return m
}

// ObserveRequest has the signature of trace.Observer.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) RateLimited() { m.rateLimited.Inc() }

func (m *Metrics) ExpenseRecorded(split core.SplitType, amount core.Money) {
	m.expenses.WithLabelValues(string(split)).Inc()
	m.amount.WithLabelValues(string(split)).Add(float64(amount.Minor))
}

func (m *Metrics) RowSkipped(sheet string) {
	m.skippedRows.WithLabelValues(sheet).Inc()
}

func (m *Metrics) ObserveAlert(a report.Alert) {
	m.monthSpent.Set(float64(a.Spent.Minor))
	m.monthBudget.Set(float64(a.Budget.Minor))
}

// WatchCache exports the snapshot cache counters, read from stats at
// scrape time.
func (m *Metrics) WatchCache(stats func() cache.Stats) {
	counter := func(name, help string, pick func(cache.Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot_cache",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(pick(stats())) })
	}
	m.registry.MustRegister(
		counter("hits_total", "Sheet reads served from the cache.", func(s cache.Stats) uint64 { return s.Hits }),
		counter("misses_total", "Sheet reads that went to the store.", func(s cache.Stats) uint64 { return s.Misses }),
		counter("evictions_total", "Snapshots dropped to stay within the size bound.", func(s cache.Stats) uint64 { return s.Evictions }),
	)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
