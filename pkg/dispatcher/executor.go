package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vidscribe/transcript-dispatcher/pkg/transcript"
)

// Prometheus metrics for task execution.
var (
	fetchDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatcher_fetch_duration_seconds",
		Help:    "Fetch duration from admission to completion by status",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"status"})

	batchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatcher_batch_size",
		Help:    "Number of requests per submitted batch",
		Buckets: []float64{1, 2, 5, 10, 20, 50},
	})
)

// Executor runs fetch tasks concurrently. Every task passes two gates: a
// hard in-flight ceiling (maxWorkers, a fixed semaphore bounding resource
// usage) and the rate controller's adaptive admission limit inside it.
type Executor struct {
	provider   transcript.Provider
	controller admissionController
	stats      *StatsAggregator
	retry      RetryConfig
	slots      chan struct{}
	logger     zerolog.Logger
}

// admissionController is the executor's view of the rate controller.
type admissionController interface {
	Admit(ctx context.Context) (releaser, error)
	OnSuccess()
	OnFailure()
}

type releaser interface {
	Release()
}

// NewExecutor creates a task executor with the given in-flight ceiling.
func NewExecutor(provider transcript.Provider, controller admissionController, stats *StatsAggregator, retry RetryConfig, maxWorkers int) *Executor {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	return &Executor{
		provider:   provider,
		controller: controller,
		stats:      stats,
		retry:      retry,
		slots:      make(chan struct{}, maxWorkers),
		logger:     log.With().Str("component", "executor").Logger(),
	}
}

// RunBatch executes one task per request concurrently and returns outcomes
// in input order. Every request yields exactly one outcome; one item's
// failure never cancels or blocks its siblings.
func (e *Executor) RunBatch(ctx context.Context, requests []Request) BatchResult {
	batchSize.Observe(float64(len(requests)))

	results := make(BatchResult, len(requests))

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			results[i] = e.runTask(ctx, req)
		}(i, req)
	}
	wg.Wait()

	return results
}

// RunOne executes a single fetch task.
func (e *Executor) RunOne(ctx context.Context, req Request) Outcome {
	return e.runTask(ctx, req)
}

// runTask carries one request through the full pipeline: worker slot, rate
// admission, retried fetch, feedback, stats.
func (e *Executor) runTask(ctx context.Context, req Request) Outcome {
	// Hard ceiling on simultaneously in-flight tasks, independent of the
	// adaptive rate.
	select {
	case e.slots <- struct{}{}:
	case <-ctx.Done():
		return e.failure(req, 0, 0, FailureTimeout, ctx.Err().Error())
	}
	defer func() { <-e.slots }()

	permit, err := e.controller.Admit(ctx)
	if err != nil {
		return e.failure(req, 0, 0, FailureTimeout, err.Error())
	}

	start := time.Now()
	logger := e.logger.With().Str("video_id", req.VideoID).Str("language", req.Language).Logger()

	tr, attempts, err := runWithRetry(ctx, e.retry, logger, func(attemptCtx context.Context) (*transcript.Transcript, error) {
		return e.provider.Fetch(attemptCtx, req.VideoID, req.Language)
	})
	elapsed := time.Since(start)

	if err != nil {
		kind := classify(err)
		if errors.Is(err, ErrRetryExhausted) {
			kind = FailureTransientExhausted
		}

		e.controller.OnFailure()
		permit.Release()

		logger.Warn().
			Err(err).
			Str("kind", string(kind)).
			Int("attempts", attempts).
			Dur("duration", elapsed).
			Msg("Fetch failed")

		return e.failure(req, attempts, elapsed, kind, err.Error())
	}

	e.controller.OnSuccess()
	e.stats.RecordSuccess()
	permit.Release()

	fetchDurationSeconds.WithLabelValues("success").Observe(elapsed.Seconds())
	logger.Debug().
		Int("attempts", attempts).
		Int("segments", len(tr.Segments)).
		Dur("duration", elapsed).
		Msg("Fetch succeeded")

	return Outcome{
		VideoID:    req.VideoID,
		Transcript: tr,
		Attempts:   attempts,
		Duration:   elapsed,
	}
}

// failure builds a failed outcome and records it.
func (e *Executor) failure(req Request, attempts int, elapsed time.Duration, kind FailureKind, message string) Outcome {
	e.stats.RecordFailure(kind)
	fetchDurationSeconds.WithLabelValues("failure").Observe(elapsed.Seconds())

	return Outcome{
		VideoID:  req.VideoID,
		Kind:     kind,
		Message:  message,
		Attempts: attempts,
		Duration: elapsed,
	}
}
