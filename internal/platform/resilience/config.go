package resilience

import (
	"fmt"
	"time"
)

// CircuitBreakerConfig is loaded per dependency from
// <PREFIX>_CIRCUIT_{ENABLED,FAILURE_COUNT,OPEN_TIMEOUT,HALF_OPEN_MAX_REQ}.
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
}

// DefaultCircuitBreakerConfig suits request-path dependencies (auth, calendar,
// job queue) where a short open window keeps user-facing latency bounded.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 5,
		OpenTimeout:      15 * time.Second,
		HalfOpenMaxReq:   2,
	}
}

// ProviderCircuitBreakerConfig is the default for fixture providers. It trips
// sooner and stays open for a whole provider cooldown, with a single probe.
func ProviderCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 3,
		OpenTimeout:      60 * time.Second,
		HalfOpenMaxReq:   1,
	}
}

// Normalize fills non-positive fields from DefaultCircuitBreakerConfig.
func (c CircuitBreakerConfig) Normalize() CircuitBreakerConfig {
	defaults := DefaultCircuitBreakerConfig()
	if c.FailureThreshold < 1 {
		c.FailureThreshold = defaults.FailureThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = defaults.OpenTimeout
	}
	if c.HalfOpenMaxReq < 1 {
		c.HalfOpenMaxReq = defaults.HalfOpenMaxReq
	}
	return c
}

func (c CircuitBreakerConfig) String() string {
	if !c.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("failures=%d open=%s half_open=%d", c.FailureThreshold, c.OpenTimeout, c.HalfOpenMaxReq)
}
