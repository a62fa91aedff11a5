package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/league"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
)

type LeagueRepository struct {
	mu      sync.RWMutex
	leagues []league.League
}

func NewLeagueRepository(leagues []league.League) *LeagueRepository {
	items := make([]league.League, 0, len(leagues))
	items = append(items, leagues...)
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	return &LeagueRepository{leagues: items}
}

func (r *LeagueRepository) List(_ context.Context) ([]league.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]league.League, 0, len(r.leagues))
	out = append(out, r.leagues...)
	return out, nil
}

func (r *LeagueRepository) ListBySport(_ context.Context, s sport.Sport) ([]league.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]league.League, 0)
	for _, item := range r.leagues {
		if item.Sport == s {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *LeagueRepository) GetByID(_ context.Context, leagueID string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.leagues {
		if item.ID == leagueID {
			return item, true, nil
		}
	}

	return league.League{}, false, nil
}

func (r *LeagueRepository) GetByProviderRef(_ context.Context, provider, ref string) (league.League, bool, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return league.League{}, false, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.leagues {
		if got, ok := item.RefFor(provider); ok && got == ref {
			return item, true, nil
		}
	}

	return league.League{}, false, nil
}
