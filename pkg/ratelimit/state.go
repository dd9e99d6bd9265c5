// Package ratelimit implements adaptive outbound rate control for upstream
// transcript fetches. It tunes an admission rate from success/failure
// feedback to avoid tripping upstream rate limits or IP blocks.
package ratelimit

import (
	"fmt"
	"math"
)

// Config holds the rate controller configuration.
type Config struct {
	// InitialRate is the starting admission rate in concurrent permits.
	InitialRate float64

	// MinRate is the lower rate bound. Must be > 0; the permit count derived
	// from the rate never drops below 1 regardless of this value.
	MinRate float64

	// MaxRate is the upper rate bound.
	MaxRate float64

	// BackoffFactor divides the rate on every failure. Must be > 1.
	BackoffFactor float64

	// RecoveryFactor multiplies the rate after SuccessThreshold consecutive
	// successes. Must be > 1.
	RecoveryFactor float64

	// SuccessThreshold is the number of consecutive successes required
	// before a recovery step is applied.
	SuccessThreshold int

	// MaxConsecutiveFailures is the circuit-breaker threshold. Reaching it
	// drops the rate straight to MinRate on top of the per-failure backoff.
	MaxConsecutiveFailures int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		InitialRate:            5,
		MinRate:                1,
		MaxRate:                20,
		BackoffFactor:          1.5,
		RecoveryFactor:         1.25,
		SuccessThreshold:       10,
		MaxConsecutiveFailures: 5,
	}
}

// Validate checks the configuration bounds. Invalid bounds are fatal at
// startup; there is no safe way to guess what the caller meant.
func (c Config) Validate() error {
	if c.MinRate <= 0 {
		return fmt.Errorf("min_rate must be > 0 (got %g)", c.MinRate)
	}
	if c.MaxRate < c.MinRate {
		return fmt.Errorf("max_rate (%g) must be >= min_rate (%g)", c.MaxRate, c.MinRate)
	}
	if c.InitialRate < c.MinRate || c.InitialRate > c.MaxRate {
		return fmt.Errorf("initial_rate (%g) must be within [%g, %g]", c.InitialRate, c.MinRate, c.MaxRate)
	}
	if c.BackoffFactor <= 1 {
		return fmt.Errorf("backoff_factor must be > 1 (got %g)", c.BackoffFactor)
	}
	if c.RecoveryFactor <= 1 {
		return fmt.Errorf("recovery_factor must be > 1 (got %g)", c.RecoveryFactor)
	}
	if c.SuccessThreshold < 1 {
		return fmt.Errorf("success_threshold must be >= 1 (got %d)", c.SuccessThreshold)
	}
	if c.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("max_consecutive_failures must be >= 1 (got %d)", c.MaxConsecutiveFailures)
	}
	return nil
}

// clamp bounds a rate value to [MinRate, MaxRate].
func (c Config) clamp(rate float64) float64 {
	if rate < c.MinRate {
		return c.MinRate
	}
	if rate > c.MaxRate {
		return c.MaxRate
	}
	return rate
}

// State is a read-only view of the controller state, exposed for stats
// snapshots. The controller never hands out references to its live state.
type State struct {
	// CurrentRate is the current admission rate.
	CurrentRate float64 `json:"current_rate"`

	// Permits is the number of concurrently admitted fetches the current
	// rate allows: floor(CurrentRate), never below 1.
	Permits int `json:"permits"`

	// InFlight is the number of permits currently held.
	InFlight int `json:"in_flight"`

	// ConsecutiveFailures counts failures since the last success.
	ConsecutiveFailures int `json:"consecutive_failures"`

	// ConsecutiveSuccesses counts successes since the last failure.
	ConsecutiveSuccesses int `json:"consecutive_successes"`
}

// permitsForRate maps a rate value onto a whole permit count.
// Floors at 1 so the dispatcher can never stall completely.
func permitsForRate(rate float64) int {
	permits := int(math.Floor(rate))
	if permits < 1 {
		return 1
	}
	return permits
}
