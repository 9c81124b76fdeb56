// Package metrics exposes the Prometheus registry used by the search service.
// Metrics are defined in their owning packages (catalog, fetch, api) and
// registered via promauto.
//
// This package provides the scrape handler and a reference for all metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every package's metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source scraped by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry, promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
}

// Metrics Documentation
//
// Catalog Metrics (pkg/catalog):
//   - search_upstream_requests_total{op, status} (Counter): Catalog calls by operation and HTTP status
//   - search_upstream_request_duration_seconds{op} (Histogram): Catalog call duration
//   - search_upstream_errors_total{op, class} (Counter): Catalog errors by class (client, server, network, malformed)
//
// Fetch Metrics (pkg/fetch):
//   - search_fetch_attempts_total{result} (Counter): Enrichment attempts by result (success, failure)
//   - search_fetch_retries_total (Counter): Attempts that were followed by a retry
//   - search_fetch_exhausted_total (Counter): Items that used their fallback after the last attempt
//   - search_fetch_inflight (Gauge): Enrichment attempts currently running
//   - search_fetch_batch_duration_seconds (Histogram): Wall time per batch
//   - search_fetch_batch_items (Histogram): Items per batch
//
// API Metrics (pkg/api):
//   - search_http_requests_total{code} (Counter): Search responses by status code
//
// Example Prometheus Queries:
//
//   # Degraded item rate
//   rate(search_fetch_exhausted_total[5m]) / sum(rate(search_fetch_batch_items_sum[5m]))
//
//   # Peak concurrent detail calls
//   max_over_time(search_fetch_inflight[5m])
//
//   # Catalog error rate by class
//   sum by (class) (rate(search_upstream_errors_total[5m]))
//
//   # P95 detail latency
//   histogram_quantile(0.95, rate(search_upstream_request_duration_seconds_bucket{op="detail"}[5m]))
