// Package redislock serializes per-user work across instances with a Redis
// SET NX PX lease. A held lease is extended every third of its length until
// it is released.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/resilience"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
)

const (
	defaultLease      = 2 * time.Minute
	defaultRetryDelay = 50 * time.Millisecond
	defaultKeyPrefix  = "fixture-sync:lock:"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lease taken over by another worker is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only while it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type Config struct {
	KeyPrefix  string
	Lease      time.Duration
	RetryDelay time.Duration
}

// Locker takes an in-process lock first, then the Redis lease. Workers in the
// same process therefore queue locally instead of polling Redis.
type Locker struct {
	client     redis.UniversalClient
	local      resilience.KeyedMutex
	prefix     string
	lease      time.Duration
	retryDelay time.Duration
	logger     *logging.Logger
}

var _ usecase.UserLocker = (*Locker)(nil)

func New(client redis.UniversalClient, cfg Config, logger *logging.Logger) *Locker {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.Lease <= 0 {
		cfg.Lease = defaultLease
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Locker{
		client:     client,
		prefix:     cfg.KeyPrefix,
		lease:      cfg.Lease,
		retryDelay: cfg.RetryDelay,
		logger:     logger.Named("redislock"),
	}
}

// NewFromURL parses a redis:// URL and verifies the server answers.
func NewFromURL(ctx context.Context, redisURL string, cfg Config, logger *logging.Logger) (*Locker, *redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, cfg, logger), client, nil
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	releaseLocal, err := l.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	redisKey := l.prefix + key
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.lease).Result()
		if err != nil {
			releaseLocal()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: acquire lock %s: %v", usecase.ErrDependencyUnavailable, key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			releaseLocal()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go l.keepAlive(ctx, key, redisKey, token, stop, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-stopped

			releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				l.logger.WarnContext(ctx, "release redis lock failed", "key", key, "error", err)
			}
			releaseLocal()
		})
	}, nil
}

// keepAlive extends the lease until stop is closed or the lease is lost.
func (l *Locker) keepAlive(ctx context.Context, key, redisKey, token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	interval := l.lease / 3
	if interval <= 0 {
		interval = l.lease
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		renewCtx, cancel := context.WithTimeout(context.Background(), interval)
		renewed, err := renewScript.Run(renewCtx, l.client, []string{redisKey}, token, l.lease.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			l.logger.WarnContext(ctx, "renew redis lock failed", "key", key, "error", err)
		case renewed == 0:
			l.logger.WarnContext(ctx, "redis lock lease lost", "key", key)
			return
		}
	}
}
