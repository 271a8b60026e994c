package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "taskdeck"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests served, labeled by route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency (seconds).",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	TaskRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_registered_total",
			Help:      "Total number of task definitions registered.",
		},
	)

	ExecutionCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "execution_created_total",
			Help:      "Total number of executions created, labeled by job queue.",
		},
		[]string{"queue"},
	)

	ExecutionCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "execution_completed_total",
			Help:      "Total number of executions that recorded an outcome, labeled by derived status.",
		},
		[]string{"status"},
	)

	ArgumentsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arguments_rejected_total",
			Help:      "Execution requests rejected by schema validation, labeled by first error kind.",
		},
		[]string{"kind"},
	)

	RateLimitHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Total number of rate-limited requests.",
		},
		[]string{"scope", "operation"},
	)

	ClientRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_requests_total",
			Help:      "API calls issued by the dashboard client, labeled by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	ClientRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "client_request_duration_seconds",
			Help:      "Latency of API calls issued by the dashboard client (seconds).",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		TaskRegisteredTotal,
		ExecutionCreatedTotal,
		ExecutionCompletedTotal,
		ArgumentsRejectedTotal,
		RateLimitHitsTotal,
		ClientRequestsTotal,
		ClientRequestDurationSeconds,
	)
}
