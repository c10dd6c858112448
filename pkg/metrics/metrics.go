package metrics

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequests counts handled requests by method, route template and status
var HTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "taskmanager_http_requests_total",
		Help: "Total number of HTTP requests handled",
	},
	[]string{"method", "route", "status"},
)

// HTTPLatency records request latency by method and route template
var HTTPLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "taskmanager_http_request_duration_seconds",
		Help:    "Latency in seconds to serve HTTP requests",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// Identity metrics
var (
	Registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmanager_user_registrations_total",
			Help: "User registration attempts by result",
		},
		[]string{"result"},
	)

	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmanager_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	AuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmanager_auth_failures_total",
			Help: "Rejected bearer tokens by reason",
		},
		[]string{"reason"},
	)
)

// Task metrics
var (
	TaskOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmanager_task_operations_total",
			Help: "Task operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	EventPublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmanager_event_publish_failures_total",
			Help: "Task events that a sink failed to accept",
		},
		[]string{"sink"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPLatency)
	prometheus.MustRegister(Registrations, Logins, AuthFailures)
	prometheus.MustRegister(TaskOperations, EventPublishFailures)
}

// ObserveRequest records one served request.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Result labels an operation outcome for the counters above.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RegisterDBStats exports the pool statistics of db under the given name.
func RegisterDBStats(db *sql.DB, name string) error {
	return prometheus.Register(collectors.NewDBStatsCollector(db, name))
}
