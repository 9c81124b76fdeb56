package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for catalog calls.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "search_upstream_requests_total",
		Help: "Total catalog requests by operation and status",
	}, []string{"op", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "search_upstream_request_duration_seconds",
		Help:    "Catalog request duration in seconds by operation",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15},
	}, []string{"op"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "search_upstream_errors_total",
		Help: "Total catalog errors by operation and class",
	}, []string{"op", "class"})
)
