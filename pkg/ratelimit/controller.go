package ratelimit

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for rate control.
var (
	rateCurrent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dispatcher_rate_current",
		Help: "Current adaptive admission rate",
	})

	permitsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dispatcher_permits_in_flight",
		Help: "Number of admission permits currently held",
	})

	rateBackoffsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatcher_rate_backoffs_total",
		Help: "Total number of per-failure rate reductions",
	})

	rateRecoveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatcher_rate_recoveries_total",
		Help: "Total number of success-threshold rate increases",
	})

	circuitBreaksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatcher_circuit_breaks_total",
		Help: "Total number of steep rate drops after sustained failures",
	})
)

// Controller owns the adaptive rate state and gates fetch admission.
//
// All state lives behind one mutex: feedback calls and admission decisions
// are serialized, and rate changes only affect the next admission decision.
// Permits already granted are never revoked.
type Controller struct {
	mu   sync.Mutex
	cond *sync.Cond

	config               Config
	rate                 float64
	inFlight             int
	consecutiveFailures  int
	consecutiveSuccesses int

	logger zerolog.Logger
}

// Permit is a lease on one in-flight fetch. Release it when the fetch
// completes. Releasing more than once is a no-op.
type Permit struct {
	controller *Controller
	once       sync.Once
}

// Release returns the permit's capacity to the controller.
func (p *Permit) Release() {
	p.once.Do(func() {
		p.controller.release()
	})
}

// NewController creates a rate controller. Returns an error for invalid
// configuration bounds.
func NewController(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		config: cfg,
		rate:   cfg.InitialRate,
		logger: log.With().Str("component", "rate-controller").Logger(),
	}
	c.cond = sync.NewCond(&c.mu)

	rateCurrent.Set(c.rate)

	return c, nil
}

// Admit blocks until capacity is available under the current rate, then
// grants a permit. Returns the context error if ctx is done before capacity
// frees up.
func (c *Controller) Admit(ctx context.Context) (*Permit, error) {
	// Wake the waiter if the context expires mid-wait.
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.cond.Broadcast()
	})
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	for c.inFlight >= permitsForRate(c.rate) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.inFlight++
	permitsInFlight.Set(float64(c.inFlight))

	return &Permit{controller: c}, nil
}

// release returns one unit of capacity and wakes a waiter.
func (c *Controller) release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight--
	permitsInFlight.Set(float64(c.inFlight))
	c.cond.Signal()
}

// OnSuccess records a successful fetch. After SuccessThreshold consecutive
// successes the rate is raised by RecoveryFactor, clamped to MaxRate.
func (c *Controller) OnSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures = 0
	c.consecutiveSuccesses++

	if c.consecutiveSuccesses < c.config.SuccessThreshold {
		return
	}
	c.consecutiveSuccesses = 0

	previous := c.rate
	c.rate = c.config.clamp(c.rate * c.config.RecoveryFactor)
	rateCurrent.Set(c.rate)

	if c.rate > previous {
		rateRecoveriesTotal.Inc()
		c.logger.Info().
			Float64("previous_rate", previous).
			Float64("current_rate", c.rate).
			Msg("Rate recovered after sustained successes")

		// Capacity may have grown; wake waiters to re-check.
		c.cond.Broadcast()
	}
}

// OnFailure records a failed fetch. The rate is lowered by BackoffFactor on
// every failure; reaching MaxConsecutiveFailures additionally drops it
// straight to MinRate.
func (c *Controller) OnFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveSuccesses = 0
	c.consecutiveFailures++

	previous := c.rate
	c.rate = c.config.clamp(c.rate / c.config.BackoffFactor)
	rateBackoffsTotal.Inc()

	if c.consecutiveFailures == c.config.MaxConsecutiveFailures {
		c.rate = c.config.MinRate
		circuitBreaksTotal.Inc()
		c.logger.Error().
			Int("consecutive_failures", c.consecutiveFailures).
			Float64("current_rate", c.rate).
			Msg("Sustained upstream failures - rate dropped to minimum")
	} else if c.rate < previous {
		c.logger.Warn().
			Float64("previous_rate", previous).
			Float64("current_rate", c.rate).
			Int("consecutive_failures", c.consecutiveFailures).
			Msg("Rate backed off after failure")
	}

	rateCurrent.Set(c.rate)
}

// Snapshot returns a copy of the current rate state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		CurrentRate:          c.rate,
		Permits:              permitsForRate(c.rate),
		InFlight:             c.inFlight,
		ConsecutiveFailures:  c.consecutiveFailures,
		ConsecutiveSuccesses: c.consecutiveSuccesses,
	}
}
