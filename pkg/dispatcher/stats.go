package dispatcher

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vidscribe/transcript-dispatcher/pkg/ratelimit"
)

// Prometheus metrics for completed fetches.
var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatcher_fetches_total",
		Help: "Total completed fetches by status",
	}, []string{"status"})

	fetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatcher_fetch_failures_total",
		Help: "Total failed fetches by failure kind",
	}, []string{"kind"})
)

// Stats is a point-in-time view of dispatcher health: cumulative outcome
// counters since process start plus the current rate controller state.
type Stats struct {
	// Successes is the cumulative successful fetch count.
	Successes uint64 `json:"successes"`

	// Failures is the cumulative failed fetch count.
	Failures uint64 `json:"failures"`

	// FailuresByKind breaks failures down by taxonomy kind.
	FailuresByKind map[FailureKind]uint64 `json:"failures_by_kind"`

	// Rate is the current rate controller state.
	Rate ratelimit.State `json:"rate"`
}

// StatsAggregator records outcome counts from concurrent tasks. Counters are
// cumulative and monotonically non-decreasing for the process lifetime.
type StatsAggregator struct {
	mu         sync.Mutex
	successes  uint64
	failures   uint64
	byKind     map[FailureKind]uint64
	controller *ratelimit.Controller
}

// NewStatsAggregator creates an aggregator that reads rate state from the
// given controller when snapshotting.
func NewStatsAggregator(controller *ratelimit.Controller) *StatsAggregator {
	return &StatsAggregator{
		byKind:     make(map[FailureKind]uint64),
		controller: controller,
	}
}

// RecordSuccess counts one successful fetch.
func (s *StatsAggregator) RecordSuccess() {
	s.mu.Lock()
	s.successes++
	s.mu.Unlock()

	fetchesTotal.WithLabelValues("success").Inc()
}

// RecordFailure counts one failed fetch by kind.
func (s *StatsAggregator) RecordFailure(kind FailureKind) {
	s.mu.Lock()
	s.failures++
	s.byKind[kind]++
	s.mu.Unlock()

	fetchesTotal.WithLabelValues("failure").Inc()
	fetchFailuresTotal.WithLabelValues(string(kind)).Inc()
}

// Snapshot returns a copy of the cumulative counters and the current rate
// state. It never blocks task execution beyond a brief counter lock.
func (s *StatsAggregator) Snapshot() Stats {
	s.mu.Lock()
	byKind := make(map[FailureKind]uint64, len(s.byKind))
	for kind, count := range s.byKind {
		byKind[kind] = count
	}
	stats := Stats{
		Successes:      s.successes,
		Failures:       s.failures,
		FailuresByKind: byKind,
	}
	s.mu.Unlock()

	stats.Rate = s.controller.Snapshot()
	return stats
}
