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
	// Claim metrics
	ClaimsFetched     prometheus.Counter
	ClaimedLamports   prometheus.Counter
	ClaimsSkippedDust prometheus.Counter
	ClaimErrors       *prometheus.CounterVec

	// Distribution metrics
	DistributionsPaid   prometheus.Counter
	DistributedLamports prometheus.Counter
	GroupsSwept         prometheus.Counter
	DistributionErrors  *prometheus.CounterVec
	GuardAborts         prometheus.Counter

	// Treasury metrics
	TreasuryBalanceLamports prometheus.Gauge

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec
	JobDuration    *prometheus.HistogramVec

	// Watcher metrics
	ReserveUpdatesApplied prometheus.Counter
	PoolsGraduated        prometheus.Counter

	// Analytics metrics
	ValuationPointsWritten prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulClaimRun      prometheus.Gauge
	LastSuccessfulDistributeRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fee_engine"
	}

	return &Metrics{
		// Claim metrics
		ClaimsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claims",
			Name:      "fetched_total",
			Help:      "Total number of fee claims recorded",
		}),
		ClaimedLamports: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claims",
			Name:      "claimed_lamports_total",
			Help:      "Total lamports claimed from pools",
		}),
		ClaimsSkippedDust: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claims",
			Name:      "skipped_dust_total",
			Help:      "Total pools skipped for claimable below the dust threshold",
		}),
		ClaimErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claims",
			Name:      "errors_total",
			Help:      "Total claim errors by stage",
		}, []string{"stage"}),

		// Distribution metrics
		DistributionsPaid: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "paid_total",
			Help:      "Total number of payouts settled",
		}),
		DistributedLamports: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "paid_lamports_total",
			Help:      "Total lamports paid to recipients",
		}),
		GroupsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "swept_total",
			Help:      "Total recipient groups swept below the distribution threshold",
		}),
		DistributionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "errors_total",
			Help:      "Total distribution errors by stage",
		}, []string{"stage"}),
		GuardAborts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "guard_aborts_total",
			Help:      "Total runs aborted by the treasury guard",
		}),

		// Treasury metrics
		TreasuryBalanceLamports: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "treasury",
			Name:      "balance_lamports",
			Help:      "Last observed treasury balance in lamports",
		}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Job execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"job"}),

		// Watcher metrics
		ReserveUpdatesApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "reserve_updates_total",
			Help:      "Total reserve snapshot updates applied",
		}),
		PoolsGraduated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "pools_graduated_total",
			Help:      "Total pools flipped to graduated",
		}),

		// Analytics metrics
		ValuationPointsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "valuation_points_total",
			Help:      "Total valuation timeseries points written",
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
		LastSuccessfulClaimRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_claim_run_timestamp",
			Help:      "Unix timestamp of last successful claim run",
		}),
		LastSuccessfulDistributeRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_distribute_run_timestamp",
			Help:      "Unix timestamp of last successful distribution run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordClaim records a settled fee claim.
func RecordClaim(lamports int64) {
	DefaultMetrics.ClaimsFetched.Inc()
	DefaultMetrics.ClaimedLamports.Add(float64(lamports))
}

// RecordClaimSkippedDust records a pool skipped for dust claimable.
func RecordClaimSkippedDust() {
	DefaultMetrics.ClaimsSkippedDust.Inc()
}

// RecordClaimError records a claim failure at the given stage.
func RecordClaimError(stage string) {
	DefaultMetrics.ClaimErrors.WithLabelValues(stage).Inc()
}

// RecordPayout records a settled distribution.
func RecordPayout(lamports int64) {
	DefaultMetrics.DistributionsPaid.Inc()
	DefaultMetrics.DistributedLamports.Add(float64(lamports))
}

// RecordSweep records a recipient group swept without payout.
func RecordSweep() {
	DefaultMetrics.GroupsSwept.Inc()
}

// RecordDistributionError records a distribution failure at the given stage.
func RecordDistributionError(stage string) {
	DefaultMetrics.DistributionErrors.WithLabelValues(stage).Inc()
}

// RecordGuardAbort records a run aborted by the treasury guard.
func RecordGuardAbort() {
	DefaultMetrics.GuardAborts.Inc()
}

// UpdateTreasuryBalance updates the treasury balance gauge.
func UpdateTreasuryBalance(lamports uint64) {
	DefaultMetrics.TreasuryBalanceLamports.Set(float64(lamports))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordJobDuration records one job run's duration.
func RecordJobDuration(job string, seconds float64) {
	DefaultMetrics.JobDuration.WithLabelValues(job).Observe(seconds)
}

// RecordReserveUpdate records one applied reserve snapshot update.
func RecordReserveUpdate() {
	DefaultMetrics.ReserveUpdatesApplied.Inc()
}

// RecordPoolGraduated records a pool flipped to graduated.
func RecordPoolGraduated() {
	DefaultMetrics.PoolsGraduated.Inc()
}

// RecordValuationPoints records written valuation timeseries points.
func RecordValuationPoints(n int) {
	DefaultMetrics.ValuationPointsWritten.Add(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
