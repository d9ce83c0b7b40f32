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
	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	CurrentTier   *prometheus.GaugeVec

	// Balance metrics
	NativeBalance       prometheus.Gauge
	StableBalance       prometheus.Gauge
	BalanceReadFailures *prometheus.CounterVec

	// Scanner metrics
	ScansTotal         *prometheus.CounterVec
	CandidatesScored   *prometheus.CounterVec
	CandidatesAccepted prometheus.Counter

	// Executor metrics
	ActionsTotal        *prometheus.CounterVec
	SubmitAttempts      prometheus.Counter
	ConfirmationLatency prometheus.Histogram

	// Tribute metrics
	TributesTotal   *prometheus.CounterVec
	TributeForwards prometheus.Counter

	// Radar metrics
	RadarTokensSeen prometheus.Counter
	RadarTokensSafe prometheus.Counter
	RadarReconnects prometheus.Counter

	// Latency metrics
	RPCCallLatency      *prometheus.HistogramVec
	ExternalCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "survival_agent"
	}

	return &Metrics{
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycles_total",
			Help:      "Total number of heartbeat cycles by tier, action and result",
		}, []string{"tier", "action", "result"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycle_duration_seconds",
			Help:      "Heartbeat cycle duration in seconds",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		CurrentTier: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tier",
			Help:      "1 for the tier of the last cycle, 0 otherwise",
		}, []string{"tier"}),

		NativeBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "balance",
			Name:      "native",
			Help:      "Last known native balance",
		}),
		StableBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "balance",
			Name:      "stable",
			Help:      "Last known stable-asset balance",
		}),
		BalanceReadFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "balance",
			Name:      "read_failures_total",
			Help:      "Total number of balance reads that ended unknown",
		}, []string{"asset"}),

		ScansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "scans_total",
			Help:      "Total number of opportunity scans by result",
		}, []string{"result"}),
		CandidatesScored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "candidates_scored_total",
			Help:      "Total number of candidates scored by source and verdict",
		}, []string{"source", "safe"}),
		CandidatesAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "candidates_accepted_total",
			Help:      "Total number of candidates accepted as safe",
		}),

		ActionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "actions_total",
			Help:      "Total number of executed actions by kind and result",
		}, []string{"kind", "result"}),
		SubmitAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "submit_attempts_total",
			Help:      "Total number of transaction submission attempts",
		}),
		ConfirmationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "confirmation_seconds",
			Help:      "Time from submission to confirmation in seconds",
			Buckets:   []float64{.5, 1, 2, 5, 10, 20, 30, 60},
		}),

		TributesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tribute",
			Name:      "harvests_total",
			Help:      "Total number of harvest attempts by status",
		}, []string{"status"}),
		TributeForwards: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tribute",
			Name:      "forwarded_total",
			Help:      "Total stable-asset amount forwarded to the recipient",
		}),

		RadarTokensSeen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "radar",
			Name:      "tokens_seen_total",
			Help:      "Total number of newly created tokens observed",
		}),
		RadarTokensSafe: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "radar",
			Name:      "tokens_safe_total",
			Help:      "Total number of observed tokens scored safe",
		}),
		RadarReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "radar",
			Name:      "reconnects_total",
			Help:      "Total number of websocket reconnects",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "Ledger RPC call latency in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "result"}),
		ExternalCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "call_duration_seconds",
			Help:      "External HTTP API latency in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"service", "result"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of last successful cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

var tiers = []string{"UNKNOWN", "CRITICAL", "STABILIZING", "NOMINAL"}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordCycle records a finished heartbeat cycle.
func RecordCycle(tier, action string, success bool, seconds float64, finishedUnix int64) {
	res := "success"
	if !success {
		res = "failure"
	}
	DefaultMetrics.CyclesTotal.WithLabelValues(tier, action, res).Inc()
	DefaultMetrics.CycleDuration.Observe(seconds)
	for _, t := range tiers {
		v := 0.0
		if t == tier {
			v = 1
		}
		DefaultMetrics.CurrentTier.WithLabelValues(t).Set(v)
	}
	if success {
		DefaultMetrics.LastSuccessfulCycle.Set(float64(finishedUnix))
	}
}

// UpdateBalances sets the balance gauges. Unknown readings leave the gauge untouched.
func UpdateBalances(native, stable float64, nativeKnown, stableKnown bool) {
	if nativeKnown {
		DefaultMetrics.NativeBalance.Set(native)
	}
	if stableKnown {
		DefaultMetrics.StableBalance.Set(stable)
	}
}

// RecordBalanceReadFailure counts a balance read that ended unknown.
func RecordBalanceReadFailure(asset string) {
	DefaultMetrics.BalanceReadFailures.WithLabelValues(asset).Inc()
}

// RecordScan records an opportunity scan.
func RecordScan(accepted int, err error) {
	DefaultMetrics.ScansTotal.WithLabelValues(result(err)).Inc()
	DefaultMetrics.CandidatesAccepted.Add(float64(accepted))
}

// RecordCandidateScored records one security verdict.
func RecordCandidateScored(source string, safe bool) {
	s := "false"
	if safe {
		s = "true"
	}
	DefaultMetrics.CandidatesScored.WithLabelValues(source, s).Inc()
}

// RecordAction records an executor action by kind and outcome label.
func RecordAction(kind, outcome string) {
	DefaultMetrics.ActionsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordSubmitAttempt counts a submission attempt.
func RecordSubmitAttempt() {
	DefaultMetrics.SubmitAttempts.Inc()
}

// RecordConfirmation records confirmation latency.
func RecordConfirmation(seconds float64) {
	DefaultMetrics.ConfirmationLatency.Observe(seconds)
}

// RecordTribute records a harvest attempt and the forwarded amount.
func RecordTribute(status string, amount float64) {
	DefaultMetrics.TributesTotal.WithLabelValues(status).Inc()
	if amount > 0 {
		DefaultMetrics.TributeForwards.Add(amount)
	}
}

// RecordRadarToken records a token observed by the radar.
func RecordRadarToken(safe bool) {
	DefaultMetrics.RadarTokensSeen.Inc()
	if safe {
		DefaultMetrics.RadarTokensSafe.Inc()
	}
}

// RecordRadarReconnect counts a websocket reconnect.
func RecordRadarReconnect() {
	DefaultMetrics.RadarReconnects.Inc()
}

// RecordRPCLatency records ledger RPC call latency.
func RecordRPCLatency(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method, result(err)).Observe(seconds)
}

// RecordExternalCall records external HTTP API latency.
func RecordExternalCall(service string, seconds float64, err error) {
	DefaultMetrics.ExternalCallLatency.WithLabelValues(service, result(err)).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
