package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for batch enrichment.
var (
	fetchAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "search_fetch_attempts_total",
		Help: "Total enrichment attempts by result",
	}, []string{"result"}) // "success", "failure"

	fetchRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_fetch_retries_total",
		Help: "Total enrichment attempts that were retried",
	})

	fetchExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_fetch_exhausted_total",
		Help: "Total items that fell back after exhausting all attempts",
	})

	fetchInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "search_fetch_inflight",
		Help: "Enrichment attempts currently executing",
	})

	fetchBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "search_fetch_batch_duration_seconds",
		Help:    "Wall time of one batch in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	fetchBatchItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "search_fetch_batch_items",
		Help:    "Number of items per batch",
		Buckets: []float64{1, 5, 10, 20, 30, 60, 100},
	})
)
