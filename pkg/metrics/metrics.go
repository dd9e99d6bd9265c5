// Package metrics documents the Prometheus metrics exposed by the
// dispatcher. All metrics are defined in their respective packages
// (dispatcher, ratelimit, cache) to maintain modularity and avoid circular
// dependencies.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the service.
// All metrics are automatically registered via promauto in their respective
// packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Control Metrics (pkg/ratelimit):
//   - dispatcher_rate_current (Gauge): Current adaptive admission rate
//   - dispatcher_permits_in_flight (Gauge): Admission permits currently held
//   - dispatcher_rate_backoffs_total (Counter): Per-failure rate reductions
//   - dispatcher_rate_recoveries_total (Counter): Success-threshold rate increases
//   - dispatcher_circuit_breaks_total (Counter): Steep drops after sustained failures
//
// Fetch Metrics (pkg/dispatcher):
//   - dispatcher_fetches_total{status} (Counter): Completed fetches by status
//   - dispatcher_fetch_failures_total{kind} (Counter): Failures by taxonomy kind
//   - dispatcher_fetch_duration_seconds{status} (Histogram): Admission-to-completion duration
//   - dispatcher_batch_size (Histogram): Requests per submitted batch
//   - dispatcher_fetch_retries_total{kind} (Counter): Retry attempts by failure kind
//   - dispatcher_retry_exhausted_total (Counter): Fetches that consumed all attempts
//
// Cache Metrics (pkg/cache):
//   - transcript_cache_hits_total (Counter): Cache hits
//   - transcript_cache_misses_total (Counter): Cache misses
//   - transcript_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   rate(transcript_cache_hits_total[5m]) /
//   (rate(transcript_cache_hits_total[5m]) + rate(transcript_cache_misses_total[5m]))
//
//   # Fetch Error Rate
//   sum(rate(dispatcher_fetch_failures_total[5m])) by (kind)
//
//   # Current Throttle State
//   dispatcher_rate_current
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(dispatcher_fetch_duration_seconds_bucket[5m]))
