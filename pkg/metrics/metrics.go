// Package metrics exposes the Prometheus registry the storefront packages
// register with. Metrics are defined next to the code that updates them
// (router, cache, api, storefront) and registered via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer used by promauto in the storefront packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects what Registry holds.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Route Metrics (pkg/router):
//   - storefront_route_hits_total{method} (Counter): Registrations that fired by method
//   - storefront_route_misses_total (Counter): Requests that fell through to Default
//   - storefront_route_pattern_errors_total (Counter): Route or rewrite patterns that failed to compile
//
// Cache Metrics (pkg/cache):
//   - storefront_cache_hits_total{layer} (Counter): Cache hits by layer (file, redis)
//   - storefront_cache_misses_total{layer} (Counter): Cache misses by layer
//   - storefront_cache_stale_total (Counter): Stale files deleted on read
//   - storefront_cache_errors_total{operation} (Counter): Cache operation errors
//
// API Metrics (pkg/api):
//   - storefront_api_requests_total{method, status} (Counter): Commerce API requests
//   - storefront_api_request_duration_seconds{method} (Histogram): Call duration including retries
//   - storefront_api_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//   - storefront_api_retries_total{error_class} (Counter): Retry attempts
//   - storefront_api_retry_backoff_seconds{error_class} (Histogram): Backoff durations
//   - storefront_api_retry_exhausted_total{error_class} (Counter): Calls that exhausted their retries
//   - storefront_api_collapsed_requests_total (Counter): GETs served by an identical in-flight call
//
// Site Metrics (internal/storefront):
//   - storefront_http_requests_total{method, status} (Counter): Storefront responses
//   - storefront_http_request_duration_seconds{method} (Histogram): Storefront request duration
//   - storefront_unknown_shop_total (Counter): Requests for hosts no shop matches
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(storefront_cache_hits_total[5m])) /
//   (sum(rate(storefront_cache_hits_total[5m])) + sum(rate(storefront_cache_misses_total[5m])))
//
//   # Not-found rate
//   rate(storefront_route_misses_total[5m]) / sum(rate(storefront_http_requests_total[5m]))
//
//   # P95 API Latency
//   histogram_quantile(0.95, rate(storefront_api_request_duration_seconds_bucket[5m]))
