// Package ratelimit throttles calls to one upstream provider and tracks the
// back-off window announced by an HTTP 429.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Decision string

const (
	DecisionAllowed   Decision = "allowed"
	DecisionThrottled Decision = "throttled"
	DecisionCooldown  Decision = "cooldown"
)

type Limiter struct {
	mu            sync.Mutex
	limiter       *rate.Limiter
	cooldownUntil time.Time
	now           func() time.Time
}

// NewPerMinute allows requestsPerMinute calls spread evenly, with a burst of
// the same size. requestsPerMinute <= 0 disables throttling.
func NewPerMinute(requestsPerMinute int) *Limiter {
	limit := rate.Inf
	burst := 1
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
		burst = requestsPerMinute
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
}

// Allow never blocks: a provider that is out of budget is skipped for the cycle.
func (l *Limiter) Allow() Decision {
	if l == nil {
		return DecisionAllowed
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Before(l.cooldownUntil) {
		return DecisionCooldown
	}
	if !l.limiter.AllowN(now, 1) {
		return DecisionThrottled
	}
	return DecisionAllowed
}

// Cooldown blocks the provider for d (for example after a 429).
func (l *Limiter) Cooldown(d time.Duration) {
	if l == nil || d <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	until := l.now().Add(d)
	if until.After(l.cooldownUntil) {
		l.cooldownUntil = until
	}
}

func (l *Limiter) CooldownUntil() time.Time {
	if l == nil {
		return time.Time{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cooldownUntil
}
