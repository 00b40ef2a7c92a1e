package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JoinRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "brocab", Name: "join_requests_total", Help: "Join request attempts by outcome"},
		[]string{"outcome"},
	)
	AcceptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "brocab", Name: "accepts_total", Help: "Acceptance attempts by outcome"},
		[]string{"outcome"},
	)
	RidesCancelledTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "brocab", Name: "rides_cancelled_total", Help: "Rides cancelled by their leader or by clearing"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "brocab",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
