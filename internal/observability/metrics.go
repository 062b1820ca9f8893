package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors shared across services.
type Metrics struct {
	EarningsSyncRuns     *prometheus.CounterVec
	ConversionsSkipped   *prometheus.CounterVec
	EarningsRowsUpserted prometheus.Counter
	TaskFailures         *prometheus.CounterVec
	HTTPRequests         *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		EarningsSyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "partnerops",
			Name:      "earnings_sync_runs_total",
			Help:      "Earnings reconciliation runs by outcome.",
		}, []string{"outcome"}),
		ConversionsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "partnerops",
			Name:      "earnings_conversions_skipped_total",
			Help:      "Conversions skipped during aggregation by reason.",
		}, []string{"reason"}),
		EarningsRowsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "partnerops",
			Name:      "earnings_rows_upserted_total",
			Help:      "Ledger rows written by the reconciliation job.",
		}),
		TaskFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "partnerops",
			Name:      "task_failures_total",
			Help:      "Background task attempts that failed, by task type.",
		}, []string{"type"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "partnerops",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "partnerops",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.EarningsSyncRuns,
			m.ConversionsSkipped,
			m.EarningsRowsUpserted,
			m.TaskFailures,
			m.HTTPRequests,
			m.HTTPRequestDuration,
		)
	}
	return m
}

// NewNopMetrics returns unregistered collectors, for tests and tools.
func NewNopMetrics() *Metrics {
	return NewMetrics(nil)
}
