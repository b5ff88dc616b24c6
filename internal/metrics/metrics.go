package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extgov_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extgov_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	FetchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extgov_fetch_attempts_total",
			Help: "Remote config fetch cycles by outcome (success, transient, permanent, parse).",
		},
		[]string{"outcome"},
	)

	FetchRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "extgov_fetch_retries_total",
			Help: "Total retry attempts within fetch cycles.",
		},
	)

	SnapshotSeq = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "extgov_snapshot_seq",
			Help: "Sequence number of the currently published allow-list snapshot.",
		},
	)

	SnapshotEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "extgov_snapshot_entries",
			Help: "Number of entries in the effective allow-list.",
		},
	)

	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extgov_decisions_total",
			Help: "Enforcement checkpoint decisions by checkpoint and outcome.",
		},
		[]string{"checkpoint", "outcome"},
	)

	ProviderQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "extgov_provider_queries_total",
			Help: "Total external provider enumeration queries served.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		FetchAttemptsTotal,
		FetchRetriesTotal,
		SnapshotSeq,
		SnapshotEntries,
		DecisionsTotal,
		ProviderQueriesTotal,
	)
}
