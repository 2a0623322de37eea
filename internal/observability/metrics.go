// README: Prometheus collectors shared by the ride engine and the HTTP layer.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rideshare", Name: "rides_created_total", Help: "Rides created, by initial status"},
		[]string{"status"},
	)
	RideTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rideshare", Name: "ride_transitions_total", Help: "Committed ride status transitions"},
		[]string{"from", "to"},
	)
	RideConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rideshare", Name: "ride_conflicts_total", Help: "Writes rejected by the ride version check"},
		[]string{"op"},
	)
	SharedJoins    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rideshare", Name: "shared_joins_total", Help: "Second passengers joined to shared rides"})
	RatingsApplied = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rideshare", Name: "ratings_applied_total", Help: "Ratings folded into user reputations"})

	MatchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "rideshare", Name: "match_query_seconds", Help: "Matching query latency", Buckets: prometheus.DefBuckets},
		[]string{"query"},
	)
	MatchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "rideshare", Name: "match_query_results", Help: "Rides returned per matching query", Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100}},
		[]string{"query"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rideshare", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rideshare",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
