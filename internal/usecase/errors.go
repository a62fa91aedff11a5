package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	ErrProviderUnavailable    = errors.New("provider unavailable")
	ErrProviderRateLimited    = errors.New("provider rate limited")
	ErrNormalizationAmbiguous = errors.New("normalization ambiguous")
	ErrQuotaExceeded          = errors.New("quota exceeded")
	ErrCalendarNotConnected   = errors.New("calendar not connected")
	ErrCalendarAuthExpired    = errors.New("calendar authorization expired")
	ErrCalendarTransient      = errors.New("calendar transient failure")
	ErrCalendarRejected       = errors.New("calendar rejected request")
	ErrIdempotencyViolation   = errors.New("idempotency violation detected")
)

// RateLimitedError is returned by provider adapters on HTTP 429.
type RateLimitedError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: provider=%s retry_after=%s", ErrProviderRateLimited, e.Provider, e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return ErrProviderRateLimited
}
