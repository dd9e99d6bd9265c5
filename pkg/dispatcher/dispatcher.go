package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vidscribe/transcript-dispatcher/pkg/ratelimit"
	"github.com/vidscribe/transcript-dispatcher/pkg/transcript"
)

// ErrBatchTooLarge is returned by FetchBatch when the batch exceeds the
// configured ceiling. No fetch attempt is made in that case.
var ErrBatchTooLarge = errors.New("batch too large")

// Config holds the dispatcher configuration.
type Config struct {
	// MaxWorkers is the hard ceiling on simultaneously in-flight fetches.
	MaxWorkers int

	// MaxBatchSize is the largest batch FetchBatch accepts.
	MaxBatchSize int

	// Rate configures the adaptive rate controller.
	Rate ratelimit.Config

	// Retry configures the per-task retry policy.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:   10,
		MaxBatchSize: 50,
		Rate:         ratelimit.DefaultConfig(),
		Retry:        DefaultRetryConfig(),
	}
}

// Validate checks the configuration. Invalid configuration is fatal at
// startup.
func (c Config) Validate() error {
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be >= 1 (got %d)", c.MaxWorkers)
	}
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("max_batch_size must be >= 1 (got %d)", c.MaxBatchSize)
	}
	if err := c.Rate.Validate(); err != nil {
		return fmt.Errorf("rate config: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry config: %w", err)
	}
	return nil
}

// Dispatcher is the public entry point for transcript fetching. It accepts
// single requests or batches, runs them through the rate-controlled
// executor, and returns per-item outcomes without ever failing a whole
// batch for one bad item.
type Dispatcher struct {
	config     Config
	controller *ratelimit.Controller
	stats      *StatsAggregator
	executor   *Executor
	logger     zerolog.Logger
}

// rateControllerAdapter narrows *ratelimit.Controller to the executor's
// admission interface.
type rateControllerAdapter struct {
	*ratelimit.Controller
}

func (a rateControllerAdapter) Admit(ctx context.Context) (releaser, error) {
	permit, err := a.Controller.Admit(ctx)
	if err != nil {
		return nil, err
	}
	return permit, nil
}

// New creates a dispatcher around the given transcript provider.
func New(provider transcript.Provider, cfg Config) (*Dispatcher, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	controller, err := ratelimit.NewController(cfg.Rate)
	if err != nil {
		return nil, err
	}

	stats := NewStatsAggregator(controller)
	executor := NewExecutor(provider, rateControllerAdapter{controller}, stats, cfg.Retry, cfg.MaxWorkers)

	return &Dispatcher{
		config:     cfg,
		controller: controller,
		stats:      stats,
		executor:   executor,
		logger:     log.With().Str("component", "dispatcher").Logger(),
	}, nil
}

// FetchOne fetches a single transcript and returns its outcome.
func (d *Dispatcher) FetchOne(ctx context.Context, req Request) Outcome {
	return d.executor.RunOne(ctx, req)
}

// FetchBatch fetches a batch of transcripts concurrently. The result holds
// exactly one outcome per request, in input order. Batches larger than
// MaxBatchSize are rejected before any task starts.
func (d *Dispatcher) FetchBatch(ctx context.Context, requests []Request) (BatchResult, error) {
	if len(requests) > d.config.MaxBatchSize {
		d.logger.Warn().
			Int("batch_size", len(requests)).
			Int("max_batch_size", d.config.MaxBatchSize).
			Msg("Batch rejected")
		return nil, fmt.Errorf("%w: %d requests (max %d)", ErrBatchTooLarge, len(requests), d.config.MaxBatchSize)
	}

	d.logger.Info().
		Int("batch_size", len(requests)).
		Msg("Dispatching batch")

	result := d.executor.RunBatch(ctx, requests)

	d.logger.Info().
		Int("batch_size", len(requests)).
		Int("successful", result.Successes()).
		Int("failed", result.Failures()).
		Msg("Batch complete")

	return result, nil
}

// Snapshot returns current dispatcher health statistics.
func (d *Dispatcher) Snapshot() Stats {
	return d.stats.Snapshot()
}
