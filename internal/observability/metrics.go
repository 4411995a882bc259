// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Claim results used as the "result" label of ClaimsTotal.
const (
	ClaimResultSuccess             = "success"
	ClaimResultNotFound            = "not_found"
	ClaimResultUnauthorized        = "unauthorized"
	ClaimResultNothingToClaim      = "nothing_to_claim"
	ClaimResultInsufficientCustody = "insufficient_custody"
	ClaimResultError               = "error"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Vesting metrics
	PoolsCreated     prometheus.Counter
	SchedulesCreated prometheus.Counter
	DepositsTotal    prometheus.Counter
	TokensDeposited  prometheus.Counter
	ClaimsTotal      *prometheus.CounterVec
	TokensClaimed    prometheus.Counter

	// Event fan-out metrics
	EventsPublished *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	WSClients       prometheus.Gauge

	// Cache metrics
	CacheRequests *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// Snapshot metrics
	SnapshotRunsTotal    *prometheus.CounterVec
	SnapshotDuration     prometheus.Histogram
	SchedulesSnapshotted prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSnapshot prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "solana_vesting"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Vesting metrics
		PoolsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vesting",
			Name:      "pools_created_total",
			Help:      "Total number of vesting pools created",
		}),
		SchedulesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vesting",
			Name:      "schedules_created_total",
			Help:      "Total number of beneficiary schedules created",
		}),
		DepositsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vesting",
			Name:      "deposits_total",
			Help:      "Total number of custody deposits",
		}),
		TokensDeposited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vesting",
			Name:      "tokens_deposited_total",
			Help:      "Total base units deposited into custody accounts",
		}),
		ClaimsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vesting",
			Name:      "claims_total",
			Help:      "Total number of claim attempts by result",
		}, []string{"result"}),
		TokensClaimed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vesting",
			Name:      "tokens_claimed_total",
			Help:      "Total base units transferred to beneficiaries",
		}),

		// Event fan-out metrics
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of events delivered by sink",
		}, []string{"sink"}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Total number of events dropped by sink",
		}, []string{"sink"}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "ws_clients",
			Help:      "Number of connected websocket clients",
		}),

		// Cache metrics
		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Total number of cache lookups by result",
		}, []string{"cache", "result"}),

		// HTTP metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		// Latency metrics
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Snapshot metrics
		SnapshotRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "runs_total",
			Help:      "Total number of snapshot runs by status",
		}, []string{"status"}),
		SnapshotDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "duration_seconds",
			Help:      "Snapshot run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		SchedulesSnapshotted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "schedules_total",
			Help:      "Total number of schedule snapshots written",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulSnapshot: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_snapshot_timestamp",
			Help:      "Unix timestamp of last successful snapshot run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordPoolCreated increments the pools created counter.
func RecordPoolCreated() {
	DefaultMetrics.PoolsCreated.Inc()
}

// RecordScheduleCreated increments the schedules created counter.
func RecordScheduleCreated() {
	DefaultMetrics.SchedulesCreated.Inc()
}

// RecordDeposit records a custody deposit.
func RecordDeposit(amount uint64) {
	DefaultMetrics.DepositsTotal.Inc()
	DefaultMetrics.TokensDeposited.Add(float64(amount))
}

// RecordClaim records a claim attempt. amount is only counted on success.
func RecordClaim(result string, amount uint64) {
	DefaultMetrics.ClaimsTotal.WithLabelValues(result).Inc()
	if result == ClaimResultSuccess {
		DefaultMetrics.TokensClaimed.Add(float64(amount))
	}
}

// RecordEventPublished increments the delivered events counter for sink.
func RecordEventPublished(sink string) {
	DefaultMetrics.EventsPublished.WithLabelValues(sink).Inc()
}

// RecordEventDropped increments the dropped events counter for sink.
func RecordEventDropped(sink string) {
	DefaultMetrics.EventsDropped.WithLabelValues(sink).Inc()
}

// SetWSClients updates the connected websocket clients gauge.
func SetWSClients(n int) {
	DefaultMetrics.WSClients.Set(float64(n))
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheRequests.WithLabelValues(cache, result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, route, status string, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(method, route, status).Inc()
	DefaultMetrics.HTTPDuration.WithLabelValues(route).Observe(seconds)
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordSnapshotRun records a snapshot run.
func RecordSnapshotRun(status string, schedules int, durationSeconds float64, finishedAt int64) {
	DefaultMetrics.SnapshotRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.SnapshotDuration.Observe(durationSeconds)
	if status == "success" {
		DefaultMetrics.SchedulesSnapshotted.Add(float64(schedules))
		DefaultMetrics.LastSuccessfulSnapshot.Set(float64(finishedAt))
	}
}
