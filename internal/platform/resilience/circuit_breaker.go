package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// StateChangeFunc observes breaker transitions. It runs with the breaker
// lock held and must not call back into the breaker.
type StateChangeFunc func(name string, from, to CircuitState)

// CircuitBreaker guards one outbound dependency (a sports provider, the
// calendar API, the auth service or the job queue). A nil breaker admits
// every call.
type CircuitBreaker struct {
	name     string
	cfg      CircuitBreakerConfig
	onChange StateChangeFunc
	now      func() time.Time

	mu        sync.Mutex
	state     CircuitState
	failures  int
	probes    int
	successes int
	openUntil time.Time
}

// NewCircuitBreaker returns nil when cfg is disabled.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	return &CircuitBreaker{
		name:  name,
		cfg:   cfg.Normalize(),
		now:   time.Now,
		state: CircuitStateClosed,
	}
}

// OnStateChange registers fn and returns b for chaining.
func (b *CircuitBreaker) OnStateChange(fn StateChangeFunc) *CircuitBreaker {
	if b != nil {
		b.onChange = fn
	}
	return b
}

// LogStateChanges reports every transition on logger. Opening is a warning.
func (b *CircuitBreaker) LogStateChanges(logger *logging.Logger) *CircuitBreaker {
	if logger == nil {
		return b
	}
	return b.OnStateChange(func(name string, from, to CircuitState) {
		args := []any{"breaker", name, "from", string(from), "to", string(to)}
		if to == CircuitStateOpen {
			logger.Warn("circuit breaker opened", args...)
			return
		}
		logger.Info("circuit breaker state changed", args...)
	})
}

func (b *CircuitBreaker) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

// Execute runs fn when the breaker admits it and records the outcome.
// isFailure decides which errors count against the dependency; nil counts
// every error. Rejected calls return ErrCircuitOpen without running fn.
func (b *CircuitBreaker) Execute(fn func() error, isFailure func(error) bool) error {
	if b == nil {
		return fn()
	}
	if err := b.admit(); err != nil {
		return err
	}

	err := fn()
	b.record(err == nil || (isFailure != nil && !isFailure(err)))
	return err
}

func (b *CircuitBreaker) State() CircuitState {
	if b == nil {
		return CircuitStateClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitStateOpen && !b.now().Before(b.openUntil) {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen {
		if b.now().Before(b.openUntil) {
			return ErrCircuitOpen
		}
		b.transition(CircuitStateHalfOpen)
	}
	if b.state == CircuitStateHalfOpen {
		if b.probes >= b.cfg.HalfOpenMaxReq {
			return ErrCircuitOpen
		}
		b.probes++
	}
	return nil
}

func (b *CircuitBreaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		if ok {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		if !ok {
			b.transition(CircuitStateOpen)
			return
		}
		b.probes = max(b.probes-1, 0)
		b.successes++
		if b.successes >= b.cfg.HalfOpenMaxReq && b.probes == 0 {
			b.transition(CircuitStateClosed)
		}
	case CircuitStateOpen:
		// A call admitted before the trip finished late.
		if !ok {
			b.openUntil = b.now().Add(b.cfg.OpenTimeout)
		}
	}
}

func (b *CircuitBreaker) transition(to CircuitState) {
	from := b.state
	b.state = to
	b.failures, b.probes, b.successes = 0, 0, 0
	b.openUntil = time.Time{}
	if to == CircuitStateOpen {
		b.openUntil = b.now().Add(b.cfg.OpenTimeout)
	}
	if b.onChange != nil && from != to {
		b.onChange(b.name, from, to)
	}
}
