// Package cache holds a small in-process TTL store used to serve fixture
// snapshots and verified principals without a round trip on every request.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/resilience"
)

var errNilLoader = errors.New("cache: loader is required")

type item struct {
	value     any
	expiresAt time.Time
}

func (i item) live(now time.Time) bool {
	return i.expiresAt.IsZero() || now.Before(i.expiresAt)
}

// Stats is a point-in-time view of store usage.
type Stats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type Option func(*Store)

// WithMaxEntries bounds the store. When full, expired entries are swept
// first and then the entry closest to expiry is evicted.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

type Store struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	flight     resilience.SingleFlight

	mu    sync.RWMutex
	items map[string]item

	hits, misses, evictions atomic.Uint64
}

// NewStore returns a store whose Set uses ttl; ttl <= 0 keeps entries until
// they are deleted.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{ttl: ttl, items: make(map[string]item), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) (any, bool) {
	if key == "" {
		return nil, false
	}

	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()

	if ok && it.live(s.now()) {
		s.hits.Add(1)
		return it.value, true
	}
	s.misses.Add(1)
	if ok {
		s.mu.Lock()
		if cur, still := s.items[key]; still && cur.expiresAt.Equal(it.expiresAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()
	}
	return nil, false
}

func (s *Store) Set(ctx context.Context, key string, value any) {
	s.SetWithTTL(ctx, key, value, s.ttl)
}

// SetWithTTL stores value with a per-entry ttl; ttl <= 0 never expires.
func (s *Store) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	if key == "" {
		return
	}
	now := s.now()
	it := item{value: value}
	if ttl > 0 {
		it.expiresAt = now.Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[key]; !exists && s.maxEntries > 0 && len(s.items) >= s.maxEntries {
		s.makeRoomLocked(now)
	}
	s.items[key] = it
}

func (s *Store) makeRoomLocked(now time.Time) {
	for key, it := range s.items {
		if !it.live(now) {
			delete(s.items, key)
			s.evictions.Add(1)
		}
	}
	if len(s.items) < s.maxEntries {
		return
	}

	victim, found := "", false
	var soonest time.Time
	for key, it := range s.items {
		if it.expiresAt.IsZero() {
			continue
		}
		if !found || it.expiresAt.Before(soonest) {
			victim, soonest, found = key, it.expiresAt, true
		}
	}
	if !found {
		for key := range s.items {
			victim = key
			break
		}
	}
	delete(s.items, victim)
	s.evictions.Add(1)
}

func (s *Store) Delete(_ context.Context, key string) {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// DeletePrefix drops every key starting with prefix. An empty prefix is a
// no-op rather than a flush.
func (s *Store) DeletePrefix(_ context.Context, prefix string) {
	if prefix == "" {
		return
	}
	s.mu.Lock()
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			delete(s.items, key)
		}
	}
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Stats() Stats {
	return Stats{
		Entries:   s.Len(),
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
	}
}

// GetOrLoad returns the cached value for key or runs loader once across
// concurrent callers. Loader errors are returned and never cached. An empty
// key bypasses the store.
func (s *Store) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	if loader == nil {
		return nil, errNilLoader
	}
	if key == "" {
		return loader(ctx)
	}
	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	value, err, _ := s.flight.DoContext(ctx, key, func() (any, error) {
		if value, ok := s.Get(ctx, key); ok {
			return value, nil
		}
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		s.Set(ctx, key, value)
		return value, nil
	})
	return value, err
}

// Load is GetOrLoad for a single value type.
func Load[T any](ctx context.Context, s *Store, key string, loader func(context.Context) (T, error)) (T, error) {
	var zero T
	if loader == nil {
		return zero, errNilLoader
	}
	value, err := s.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return loader(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, nil
	}
	return typed, nil
}
