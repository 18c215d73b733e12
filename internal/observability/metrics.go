// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Launch metrics
	TokensCreated prometheus.Counter

	// Trade metrics
	TradesExecuted   *prometheus.CounterVec
	TradeErrors      *prometheus.CounterVec
	TradeVolumeWei   *prometheus.CounterVec
	VersionConflicts prometheus.Counter
	QuoteLatency     *prometheus.HistogramVec
	TradeLatency     *prometheus.HistogramVec

	// Graduation metrics
	GraduationsCompleted prometheus.Counter
	GraduationsFailed    prometheus.Counter

	// Stream metrics
	StreamSubscribers   prometheus.Gauge
	StreamEventsDropped prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastTradeTimestamp prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_launch_lab"
	}

	return &Metrics{
		// Launch metrics
		TokensCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launchpad",
			Name:      "tokens_created_total",
			Help:      "Total number of tokens launched",
		}),

		// Trade metrics
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "trades_executed_total",
			Help:      "Total number of executed trades by side",
		}, []string{"side"}),
		TradeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "trade_errors_total",
			Help:      "Total number of rejected trades by reason",
		}, []string{"side", "reason"}),
		TradeVolumeWei: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "trade_volume_wei_total",
			Help:      "Cumulative gross ETH notional in wei by side",
		}, []string{"side"}),
		VersionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "version_conflicts_total",
			Help:      "Total number of CAS retries caused by concurrent trades",
		}),
		QuoteLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "quote_latency_seconds",
			Help:      "Quote computation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"side"}),
		TradeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "trade_latency_seconds",
			Help:      "End-to-end trade execution latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"side"}),

		// Graduation metrics
		GraduationsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graduation",
			Name:      "completed_total",
			Help:      "Total number of tokens migrated to the external venue",
		}),
		GraduationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graduation",
			Name:      "failed_total",
			Help:      "Total number of venue migrations rolled back",
		}),

		// Stream metrics
		StreamSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Current number of trade feed subscribers",
		}),
		StreamEventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped for slow subscribers",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastTradeTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_trade_timestamp",
			Help:      "Unix timestamp of the last executed trade",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTrade records a successfully executed trade.
func RecordTrade(side string, volumeWei float64, seconds float64, timestampMs int64) {
	DefaultMetrics.TradesExecuted.WithLabelValues(side).Inc()
	DefaultMetrics.TradeVolumeWei.WithLabelValues(side).Add(volumeWei)
	DefaultMetrics.TradeLatency.WithLabelValues(side).Observe(seconds)
	DefaultMetrics.LastTradeTimestamp.Set(float64(timestampMs) / 1000)
}

// RecordTradeError records a rejected trade.
func RecordTradeError(side, reason string) {
	DefaultMetrics.TradeErrors.WithLabelValues(side, reason).Inc()
}

// RecordVersionConflict records a CAS retry.
func RecordVersionConflict() {
	DefaultMetrics.VersionConflicts.Inc()
}

// RecordGraduation records a migration outcome.
func RecordGraduation(success bool) {
	if success {
		DefaultMetrics.GraduationsCompleted.Inc()
	} else {
		DefaultMetrics.GraduationsFailed.Inc()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
