// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the web console.
package observability

import "github.com/prometheus/client_golang/prometheus"

// EvalBuckets defines histogram buckets for console evaluations, ranging
// from 1ms to 60s.
var EvalBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60}

// Evaluation outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webconsole_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webconsole_request_duration_seconds",
			Help:    "Request duration",
			Buckets: EvalBuckets,
		},
		[]string{"method"},
	)

	// RequestsInFlight tracks HTTP requests currently being served.
	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "webconsole_requests_in_flight",
			Help: "Requests in flight",
		},
	)

	// EvaluationsTotal counts console evaluations by kind (script, shell)
	// and outcome (ok, error, timeout).
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webconsole_evaluations_total",
			Help: "Console evaluations",
		},
		[]string{"kind", "outcome"},
	)

	// EvaluationDuration records evaluation wall time in seconds.
	EvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webconsole_evaluation_duration_seconds",
			Help:    "Evaluation duration",
			Buckets: EvalBuckets,
		},
		[]string{"kind"},
	)

	// SessionWait records how long a request waited for the session lock.
	SessionWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webconsole_session_wait_seconds",
			Help:    "Time spent waiting for the console session",
			Buckets: EvalBuckets,
		},
	)

	// SessionsCreatedTotal counts console sessions created.
	SessionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webconsole_sessions_created_total",
			Help: "Console sessions created",
		},
	)

	// AuthDecisionsTotal counts authentication decisions by surface
	// (console, api, mcp) and decision (yes, no, abstain).
	AuthDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webconsole_auth_decisions_total",
			Help: "Authentication decisions",
		},
		[]string{"surface", "decision"},
	)

	// HistoryErrorsTotal counts failed history store operations.
	HistoryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webconsole_history_errors_total",
			Help: "History store errors",
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RequestsInFlight,
		EvaluationsTotal,
		EvaluationDuration,
		SessionWait,
		SessionsCreatedTotal,
		AuthDecisionsTotal,
		HistoryErrorsTotal,
	)
}
