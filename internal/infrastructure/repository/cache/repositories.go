package cache

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/league"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/team"
	basecache "github.com/riskibarqy/fixture-calendar-sync/internal/platform/cache"
)

const (
	leaguePrefix  = "league:"
	teamPrefix    = "team:"
	fixturePrefix = "fixture:"
)

// LeagueRepository caches the curated league catalog. It is read-only.
type LeagueRepository struct {
	next  league.Repository
	cache *basecache.Store
}

func NewLeagueRepository(next league.Repository, cache *basecache.Store) *LeagueRepository {
	return &LeagueRepository{next: next, cache: cache}
}

func (r *LeagueRepository) List(ctx context.Context) ([]league.League, error) {
	return r.list(ctx, leaguePrefix+"list", func(ctx context.Context) ([]league.League, error) {
		return r.next.List(ctx)
	})
}

func (r *LeagueRepository) ListBySport(ctx context.Context, s sport.Sport) ([]league.League, error) {
	return r.list(ctx, leaguePrefix+"sport:"+string(s), func(ctx context.Context) ([]league.League, error) {
		return r.next.ListBySport(ctx, s)
	})
}

func (r *LeagueRepository) list(ctx context.Context, key string, load func(context.Context) ([]league.League, error)) ([]league.League, error) {
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return append([]league.League(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]league.League)
	return append([]league.League(nil), items...), nil
}

func (r *LeagueRepository) GetByID(ctx context.Context, leagueID string) (league.League, bool, error) {
	return r.get(ctx, leaguePrefix+"id:"+leagueID, func(ctx context.Context) (league.League, bool, error) {
		return r.next.GetByID(ctx, leagueID)
	})
}

func (r *LeagueRepository) GetByProviderRef(ctx context.Context, provider, ref string) (league.League, bool, error) {
	key := leaguePrefix + "ref:" + strings.ToLower(provider) + ":" + ref
	return r.get(ctx, key, func(ctx context.Context) (league.League, bool, error) {
		return r.next.GetByProviderRef(ctx, provider, ref)
	})
}

func (r *LeagueRepository) get(ctx context.Context, key string, load func(context.Context) (league.League, bool, error)) (league.League, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return cachedLeague{value: item, exists: exists}, nil
	})
	if err != nil {
		return league.League{}, false, err
	}

	cached, _ := v.(cachedLeague)
	return cached.value, cached.exists, nil
}

type cachedLeague struct {
	value  league.League
	exists bool
}

// TeamRepository caches team lookups and drops every team entry on write,
// since a new provisional team changes the per-sport listing.
type TeamRepository struct {
	next  team.Repository
	cache *basecache.Store
}

func NewTeamRepository(next team.Repository, cache *basecache.Store) *TeamRepository {
	return &TeamRepository{next: next, cache: cache}
}

func (r *TeamRepository) ListBySport(ctx context.Context, s sport.Sport) ([]team.Team, error) {
	v, err := r.cache.GetOrLoad(ctx, teamPrefix+"sport:"+string(s), func(ctx context.Context) (any, error) {
		items, err := r.next.ListBySport(ctx, s)
		if err != nil {
			return nil, err
		}
		return append([]team.Team(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]team.Team)
	return append([]team.Team(nil), items...), nil
}

func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (team.Team, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, teamPrefix+"id:"+teamID, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, teamID)
		if err != nil {
			return nil, err
		}
		return cachedTeam{value: item, exists: exists}, nil
	})
	if err != nil {
		return team.Team{}, false, err
	}

	cached, _ := v.(cachedTeam)
	return cached.value, cached.exists, nil
}

func (r *TeamRepository) Upsert(ctx context.Context, item team.Team) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, teamPrefix)
	return nil
}

type cachedTeam struct {
	value  team.Team
	exists bool
}

// FixtureRepository serves fixture reads from a short-lived snapshot. Any
// write invalidates every cached fixture read.
type FixtureRepository struct {
	next  fixture.Repository
	cache *basecache.Store
}

func NewFixtureRepository(next fixture.Repository, cache *basecache.Store) *FixtureRepository {
	return &FixtureRepository{next: next, cache: cache}
}

func (r *FixtureRepository) GetByID(ctx context.Context, fixtureID string) (fixture.Fixture, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, fixturePrefix+"id:"+fixtureID, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, fixtureID)
		if err != nil {
			return nil, err
		}
		return cachedFixture{value: item.Clone(), exists: exists}, nil
	})
	if err != nil {
		return fixture.Fixture{}, false, err
	}

	cached, _ := v.(cachedFixture)
	return cached.value.Clone(), cached.exists, nil
}

func (r *FixtureRepository) Query(ctx context.Context, filter fixture.Filter) ([]fixture.Fixture, error) {
	v, err := r.cache.GetOrLoad(ctx, fixturePrefix+"query:"+filterKey(filter), func(ctx context.Context) (any, error) {
		items, err := r.next.Query(ctx, filter)
		if err != nil {
			return nil, err
		}
		return cloneFixtures(items), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]fixture.Fixture)
	return cloneFixtures(items), nil
}

func (r *FixtureRepository) Upsert(ctx context.Context, item fixture.Fixture) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, fixturePrefix)
	return nil
}

func (r *FixtureRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	removed, err := r.next.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		r.cache.DeletePrefix(ctx, fixturePrefix)
	}
	return removed, nil
}

type cachedFixture struct {
	value  fixture.Fixture
	exists bool
}

func cloneFixtures(items []fixture.Fixture) []fixture.Fixture {
	out := make([]fixture.Fixture, 0, len(items))
	for _, item := range items {
		out = append(out, item.Clone())
	}
	return out
}

// filterKey renders a filter into a stable cache key; slice order does not matter.
func filterKey(filter fixture.Filter) string {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}

	var b strings.Builder
	b.WriteString("ids=")
	b.WriteString(sortedJoin(filter.IDs))
	b.WriteString("|sport=")
	b.WriteString(string(filter.Sport))
	b.WriteString("|leagues=")
	b.WriteString(sortedJoin(filter.LeagueIDs))
	b.WriteString("|teams=")
	b.WriteString(sortedJoin(filter.TeamIDs))
	b.WriteString("|status=")
	b.WriteString(sortedJoin(statuses))
	b.WriteString("|from=")
	b.WriteString(unixOrEmpty(filter.KickoffFrom))
	b.WriteString("|to=")
	b.WriteString(unixOrEmpty(filter.KickoffTo))
	b.WriteString("|prov=")
	b.WriteString(strconv.FormatBool(filter.IncludeProvisional))
	b.WriteString("|limit=")
	b.WriteString(strconv.Itoa(filter.Limit))
	return b.String()
}

func sortedJoin(values []string) string {
	if len(values) == 0 {
		return ""
	}
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func unixOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UnixNano(), 10)
}
