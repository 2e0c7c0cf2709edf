// Package metrics provides the centralized Prometheus registry reference
// for the addon. All metrics are defined in their respective packages
// (tmdb, cache, catalog, batch, retry, server) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the addon.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Upstream Metrics (pkg/tmdb):
//   - cinefeed_upstream_requests_total{operation, status} (Counter): Requests by operation and HTTP status
//   - cinefeed_upstream_request_duration_seconds{operation} (Histogram): Request duration by operation
//   - cinefeed_upstream_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Cache Metrics (pkg/cache):
//   - cinefeed_cache_hits_total{tier} (Counter): Cache hits by tier (memory, redis, firestore)
//   - cinefeed_cache_misses_total (Counter): Full-stack cache misses
//   - cinefeed_cache_errors_total{tier, operation} (Counter): Absorbed cache operation errors
//   - cinefeed_cache_bypass_total (Counter): Operations skipped because caching is disabled
//
// Retry Metrics (pkg/retry):
//   - cinefeed_retries_total (Counter): Retry attempts for throttled requests
//   - cinefeed_retry_exhausted_total (Counter): Operations that exhausted the attempt budget
//
// Batch Metrics (pkg/batch):
//   - cinefeed_batch_items_total (Counter): Work items processed by the batch executor
//   - cinefeed_batch_item_failures_total (Counter): Work items recorded as nil after failing
//   - cinefeed_batch_chunk_duration_seconds (Histogram): Wall-clock duration of one chunk
//
// Catalog Metrics (pkg/catalog):
//   - cinefeed_catalog_requests_total{kind} (Counter): Catalog requests by kind (catalog, trending, search)
//   - cinefeed_catalog_placeholders_total{reason} (Counter): Placeholder responses by reason (empty, error)
//   - cinefeed_catalog_pipeline_duration_seconds{kind} (Histogram): End-to-end pipeline duration
//
// HTTP Metrics (internal/server):
//   - cinefeed_http_requests_total{method, status} (Counter): Requests by method and status
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(cinefeed_cache_hits_total[5m])) /
//   (sum(rate(cinefeed_cache_hits_total[5m])) + sum(rate(cinefeed_cache_misses_total[5m])))
//
//   # Placeholder Rate
//   rate(cinefeed_catalog_placeholders_total[5m]) / rate(cinefeed_catalog_requests_total[5m])
//
//   # Upstream Error Rate
//   rate(cinefeed_upstream_errors_total[5m])
//
//   # P95 Pipeline Latency
//   histogram_quantile(0.95, rate(cinefeed_catalog_pipeline_duration_seconds_bucket[5m]))
