package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
)

// FixtureRepository keeps an immutable map snapshot behind an atomic pointer.
// Readers load the current snapshot without locking; writers copy, modify and
// swap under mu.
type FixtureRepository struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[map[string]fixture.Fixture]
}

func NewFixtureRepository(fixtures []fixture.Fixture) *FixtureRepository {
	items := make(map[string]fixture.Fixture, len(fixtures))
	for _, item := range fixtures {
		items[item.ID] = item.Clone()
	}

	repo := &FixtureRepository{}
	repo.snapshot.Store(&items)
	return repo
}

func (r *FixtureRepository) GetByID(_ context.Context, fixtureID string) (fixture.Fixture, bool, error) {
	item, ok := (*r.snapshot.Load())[fixtureID]
	if !ok {
		return fixture.Fixture{}, false, nil
	}
	return item.Clone(), true, nil
}

func (r *FixtureRepository) Query(_ context.Context, filter fixture.Filter) ([]fixture.Fixture, error) {
	items := *r.snapshot.Load()

	out := make([]fixture.Fixture, 0)
	for _, item := range items {
		if filter.Matches(item) {
			out = append(out, item.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].KickoffAt.Equal(out[j].KickoffAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].KickoffAt.Before(out[j].KickoffAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}

	return out, nil
}

func (r *FixtureRepository) Upsert(_ context.Context, item fixture.Fixture) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.copyLocked(1)
	next[item.ID] = item.Clone()
	r.snapshot.Store(&next)
	return nil
}

func (r *FixtureRepository) DeleteCompletedBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.copyLocked(0)
	removed := 0
	for id, item := range next {
		if item.Status == fixture.StatusCompleted && item.KickoffAt.Before(cutoff) {
			delete(next, id)
			removed++
		}
	}
	if removed > 0 {
		r.snapshot.Store(&next)
	}
	return removed, nil
}

func (r *FixtureRepository) copyLocked(extra int) map[string]fixture.Fixture {
	current := *r.snapshot.Load()
	next := make(map[string]fixture.Fixture, len(current)+extra)
	for id, item := range current {
		next[id] = item
	}
	return next
}
