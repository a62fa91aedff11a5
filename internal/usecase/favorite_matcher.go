package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/favorite"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/plan"
)

type FixtureReader interface {
	Query(ctx context.Context, filter fixture.Filter) ([]fixture.Fixture, error)
}

// Eligibility is the per-user aggregate passed from the matcher to the
// orchestrator.
type Eligibility struct {
	UserID    string
	Plan      plan.Plan
	Favorites favorite.Set
	Fixtures  []fixture.Fixture
}

// Covers reports whether f still belongs to one of the user's favorites,
// regardless of the horizon.
func (e Eligibility) Covers(f fixture.Fixture) bool {
	for _, teamID := range e.Favorites.TeamIDs {
		if f.HasTeam(teamID) {
			return true
		}
	}
	for _, leagueID := range e.Favorites.LeagueIDs {
		if f.LeagueID != "" && f.LeagueID == leagueID {
			return true
		}
	}
	return false
}

type FavoriteMatcher struct {
	fixtures  FixtureReader
	favorites favorite.Repository
	plans     plan.Repository
	catalog   plan.Catalog
	horizon   time.Duration
}

func NewFavoriteMatcher(fixtures FixtureReader, favorites favorite.Repository, plans plan.Repository, catalog plan.Catalog, horizon time.Duration) *FavoriteMatcher {
	if horizon <= 0 {
		horizon = 48 * time.Hour
	}
	if catalog == nil {
		catalog = plan.DefaultCatalog()
	}
	return &FavoriteMatcher{
		fixtures:  fixtures,
		favorites: favorites,
		plans:     plans,
		catalog:   catalog,
		horizon:   horizon,
	}
}

// Match selects fixtures kicking off within now..now+horizon that involve a
// favorite team, or a favorite league when the plan allows leagues.
func (m *FavoriteMatcher) Match(ctx context.Context, userID string, now time.Time) (Eligibility, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FavoriteMatcher.Match")
	defer span.End()

	tier, err := m.plans.TierForUser(ctx, userID)
	if err != nil {
		return Eligibility{}, fmt.Errorf("get plan tier user=%s: %w", userID, err)
	}
	items, err := m.favorites.ListByUser(ctx, userID)
	if err != nil {
		return Eligibility{}, fmt.Errorf("list favorites user=%s: %w", userID, err)
	}

	out := Eligibility{
		UserID:    userID,
		Plan:      m.catalog.For(tier),
		Favorites: favorite.NewSet(items),
	}
	if !out.Plan.AllowsLeagues() {
		out.Favorites.LeagueIDs = nil
	}
	if out.Favorites.Empty() {
		return out, nil
	}

	fixtures, err := m.fixtures.Query(ctx, fixture.Filter{
		TeamIDs:     out.Favorites.TeamIDs,
		LeagueIDs:   out.Favorites.LeagueIDs,
		KickoffFrom: now,
		KickoffTo:   now.Add(m.horizon),
	})
	if err != nil {
		return Eligibility{}, fmt.Errorf("query eligible fixtures user=%s: %w", userID, err)
	}

	seen := make(map[string]struct{}, len(fixtures))
	out.Fixtures = make([]fixture.Fixture, 0, len(fixtures))
	for _, item := range fixtures {
		if item.Provisional || item.Status == fixture.StatusCancelled {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		out.Fixtures = append(out.Fixtures, item)
	}
	return out, nil
}
