// Package telemetry provides application-level observability for the club service.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<C5_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format and is intended to be scraped by a Prometheus server every 15–60 seconds.
// It is NOT served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Admission outcome counters for joins and invite redemptions
//   - Passcode exhaustion counter
//   - Request expirer counters
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /v1/clubs/:id/join)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments. Admission metrics are labelled by the closed
// outcome set, never by club or user IDs.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Admission metrics — recorded by the admission controller.
//
// JoinOutcomesTotal is a CounterVec with label {outcome} incremented once per
// evaluated join. The outcome set is closed (joined, pending, already_member,
// already_requested, rejected, code_required, invalid) so cardinality is bounded.
//
// InviteRedemptionsTotal is a CounterVec with label {outcome} incremented once
// per redemption attempt (joined, already_member, expired, exhausted, invalid).
//
// PasscodeExhaustionsTotal counts join sessions that burned the whole attempt
// budget. A spike suggests either a forgotten passcode being shared around or
// someone guessing.
//
// Example PromQL queries:
//   - Join success rate:   sum(rate(join_outcomes_total{outcome="joined"}[1h])) / sum(rate(join_outcomes_total[1h]))
//   - Guessing alert:      increase(passcode_exhaustions_total[30m]) > 10
var (
	JoinOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "join_outcomes_total",
			Help: "Total number of evaluated join attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	InviteRedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invite_redemptions_total",
			Help: "Total number of invite token redemption attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	PasscodeExhaustionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "passcode_exhaustions_total",
			Help: "Total number of join sessions that exhausted the passcode attempt budget.",
		},
	)
)

// Request expirer metrics — recorded by the background job that flips stale
// pending join requests to expired.
//
// Example PromQL queries:
//   - Expiry rate:  rate(join_requests_expired_total[24h])
var (
	JoinRequestsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "join_requests_expired_total",
			Help: "Total number of pending join requests expired by the background expirer.",
		},
	)

	RequestExpirerErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "request_expirer_errors_total",
			Help: "Total number of failed request expirer sweeps.",
		},
	)
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
