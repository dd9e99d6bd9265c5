package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/vidscribe/transcript-dispatcher/pkg/transcript"
)

// Prometheus metrics for retry operations.
var (
	fetchRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatcher_fetch_retries_total",
		Help: "Total number of fetch retry attempts by failure kind",
	}, []string{"kind"})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatcher_retry_exhausted_total",
		Help: "Total number of fetches that consumed all retry attempts",
	})
)

// ErrRetryExhausted is returned when all retry attempts are consumed by
// transient failures.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// RetryConfig holds the per-task retry policy.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Delay is the fixed wait between attempts. This is a local micro-delay
	// for momentary upstream unreadiness, independent of the admission rate.
	Delay time.Duration

	// AttemptTimeout bounds each individual attempt. Zero disables the
	// per-attempt bound (the caller's context still applies).
	AttemptTimeout time.Duration
}

// DefaultRetryConfig returns the default retry policy: one original attempt
// plus two retries with a short fixed delay.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		Delay:          500 * time.Millisecond,
		AttemptTimeout: 20 * time.Second,
	}
}

// Validate checks the retry configuration.
func (c RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1 (got %d)", c.MaxAttempts)
	}
	if c.Delay < 0 {
		return fmt.Errorf("retry delay must be >= 0 (got %v)", c.Delay)
	}
	if c.AttemptTimeout < 0 {
		return fmt.Errorf("attempt_timeout must be >= 0 (got %v)", c.AttemptTimeout)
	}
	return nil
}

// fetchAttempt performs one fetch attempt.
type fetchAttempt func(ctx context.Context) (*transcript.Transcript, error)

// runWithRetry executes op up to cfg.MaxAttempts times. Only transient
// failure kinds trigger a retry; everything else terminates immediately.
// Returns the transcript, the number of attempts made, and the final error.
func runWithRetry(ctx context.Context, cfg RetryConfig, logger zerolog.Logger, op fetchAttempt) (*transcript.Transcript, int, error) {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if cfg.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.AttemptTimeout)
		}

		tr, err := op(attemptCtx)
		cancel()

		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Fetch succeeded after retry")
			}
			return tr, attempt, nil
		}

		lastErr = err
		kind := classify(err)

		if !retryable(kind) {
			return nil, attempt, lastErr
		}

		// The caller gave up; do not burn further attempts.
		if ctx.Err() != nil {
			return nil, attempt, lastErr
		}

		if attempt >= cfg.MaxAttempts {
			break
		}

		fetchRetriesTotal.WithLabelValues(string(kind)).Inc()
		logger.Debug().
			Err(err).
			Str("kind", string(kind)).
			Int("attempt", attempt).
			Dur("delay", cfg.Delay).
			Msg("Retrying fetch after transient failure")

		select {
		case <-ctx.Done():
			return nil, attempt, lastErr
		case <-time.After(cfg.Delay):
		}
	}

	retryExhaustedTotal.Inc()
	logger.Warn().
		Err(lastErr).
		Int("max_attempts", cfg.MaxAttempts).
		Msg("Retry attempts exhausted")

	return nil, cfg.MaxAttempts, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, cfg.MaxAttempts, lastErr)
}
