package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_ThrottlesAfterBurst(t *testing.T) {
	now := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	l := NewPerMinute(2)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if got := l.Allow(); got != DecisionAllowed {
			t.Fatalf("call %d: expected allowed, got %s", i, got)
		}
	}
	if got := l.Allow(); got != DecisionThrottled {
		t.Fatalf("expected throttled after burst, got %s", got)
	}

	now = now.Add(31 * time.Second)
	if got := l.Allow(); got != DecisionAllowed {
		t.Fatalf("expected a token to be refilled, got %s", got)
	}
}

func TestLimiter_CooldownSkipsUntilExpiry(t *testing.T) {
	now := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	l := NewPerMinute(0)
	l.now = func() time.Time { return now }

	l.Cooldown(time.Minute)
	if got := l.Allow(); got != DecisionCooldown {
		t.Fatalf("expected cooldown, got %s", got)
	}

	now = now.Add(61 * time.Second)
	if got := l.Allow(); got != DecisionAllowed {
		t.Fatalf("expected allowed after cooldown, got %s", got)
	}
}
