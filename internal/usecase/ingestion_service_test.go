package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/provider"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/team"
	calendarmock "github.com/riskibarqy/fixture-calendar-sync/internal/mocks/domain/calendar"
	providermock "github.com/riskibarqy/fixture-calendar-sync/internal/mocks/domain/provider"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

func newHarnessIngestion(h *syncHarness, routes ...ProviderRoute) *IngestionService {
	logger := logging.NewNop()
	gateway := NewProviderGateway(routes, ProviderGatewayConfig{}, logger)
	svc := NewIngestionService(gateway, h.normalizer, h.store, IngestionConfig{}, logger)
	svc.now = h.now
	return svc
}

func footballRoute(adapter provider.Adapter, priority int, live bool) ProviderRoute {
	return ProviderRoute{
		Adapter:          adapter,
		Sports:           []sport.Sport{sport.Football},
		SchedulePriority: priority,
		LiveCapable:      live,
	}
}

func TestIngestionService_SameMatchFromTwoProvidersIsOneFixture(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kickoff := harnessNow.Add(30 * time.Hour)
	h := newSyncHarness(t, calendarmock.NewTokenRefresher(t))
	sportmonks := &staticAdapter{name: "sportmonks", fixtures: map[sport.Sport][]provider.Fixture{
		sport.Football: {{ExternalID: "19135", LeagueRef: "8", HomeTeamName: "Man United", AwayTeamName: "Arsenal FC", KickoffAt: kickoff, Venue: "Old Trafford", Status: "NS"}},
	}}
	espn := &staticAdapter{name: "espn", fixtures: map[sport.Sport][]provider.Fixture{
		sport.Football: {{ExternalID: "704512", LeagueRef: "soccer/eng.1", HomeTeamName: "Man Utd", AwayTeamName: "ARS", KickoffAt: kickoff, Venue: "Old Trafford Stadium", Status: "STATUS_SCHEDULED"}},
	}}
	svc := newHarnessIngestion(h, footballRoute(sportmonks, 2, false), footballRoute(espn, 1, true))

	result, err := svc.RefreshSchedules(ctx)
	if err != nil {
		t.Fatalf("refresh schedules: %v", err)
	}
	if result.FixturesSeen != 2 || result.FixturesCreated != 1 {
		t.Fatalf("expected two payloads merged into one fixture, got %+v", result)
	}

	items, err := h.store.Query(ctx, fixture.Filter{Sport: sport.Football})
	if err != nil {
		t.Fatalf("query fixtures: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one canonical fixture, got %d", len(items))
	}
	got := items[0]
	if got.ID != fixture.CanonicalID(sport.Football, "eng-mun", "eng-ars", kickoff) {
		t.Fatalf("unexpected canonical id %s", got.ID)
	}
	if got.LeagueID != "eng-premier-league" {
		t.Fatalf("unexpected league %q", got.LeagueID)
	}
	if got.Venue != "Old Trafford" || got.Sources.ScheduleProvider != "sportmonks" {
		t.Fatalf("higher priority provider must own schedule fields, got venue=%q sources=%+v", got.Venue, got.Sources)
	}
}

func TestNormalizer_ProviderSpellingsResolveToSameTeam(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newSyncHarness(t, calendarmock.NewTokenRefresher(t))

	first, err := h.normalizer.ResolveTeam(ctx, sport.Football, "sportmonks", "Man United")
	if err != nil {
		t.Fatalf("resolve provider A spelling: %v", err)
	}
	second, err := h.normalizer.ResolveTeam(ctx, sport.Football, "espn", "Man Utd")
	if err != nil {
		t.Fatalf("resolve provider B spelling: %v", err)
	}
	if first.TeamID != "eng-mun" || second.TeamID != first.TeamID {
		t.Fatalf("expected both spellings to resolve to eng-mun, got %q and %q", first.TeamID, second.TeamID)
	}
}

func TestIngestionService_UnresolvedTeamIsProvisionalAndNotMatched(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kickoff := harnessNow.Add(10 * time.Hour)
	h := newSyncHarness(t, calendarmock.NewTokenRefresher(t))
	adapter := &staticAdapter{name: "sportmonks", fixtures: map[sport.Sport][]provider.Fixture{
		sport.Football: {{ExternalID: "1", HomeTeamName: "Arsenal", AwayTeamName: "Sporting Lisbon", KickoffAt: kickoff}},
	}}
	svc := newHarnessIngestion(h, footballRoute(adapter, 1, false))
	h.connect(t, "u1")
	h.favoriteTeam(t, "u1", "eng-ars")

	result, err := svc.RefreshSchedules(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if result.Provisional != 1 {
		t.Fatalf("expected one provisional fixture, got %+v", result)
	}

	provisionalID := team.ProvisionalID(sport.Football, "Sporting Lisbon")
	item, found, err := h.teams.GetByID(ctx, provisionalID)
	if err != nil || !found || !item.Provisional {
		t.Fatalf("expected provisional team %s, found=%v err=%v item=%+v", provisionalID, found, err, item)
	}

	eligibility, err := h.matcher.Match(ctx, "u1", harnessNow)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(eligibility.Fixtures) != 0 {
		t.Fatalf("provisional fixtures must not be matched, got %+v", eligibility.Fixtures)
	}
}

func TestIngestionService_CompletedStatusNeverRegresses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kickoff := harnessNow.Add(-3 * time.Hour)
	done := scheduledFixture(sport.Football, "eng-liv", "eng-che", "Liverpool", "Chelsea", kickoff)
	done.Status = fixture.StatusCompleted
	done.HomeScore, done.AwayScore = intPtr(2), intPtr(1)
	h := newSyncHarness(t, calendarmock.NewTokenRefresher(t), done)

	laggard := &staticAdapter{name: "espn", scores: map[sport.Sport][]provider.ScoreUpdate{
		sport.Football: {{HomeTeamName: "LIV", AwayTeamName: "CHE", KickoffAt: kickoff, Status: "STATUS_IN_PROGRESS", HomeScore: intPtr(1), AwayScore: intPtr(1)}},
	}}
	svc := newHarnessIngestion(h, footballRoute(laggard, 1, true))

	result, err := svc.RefreshLive(ctx, true)
	if err != nil {
		t.Fatalf("refresh live: %v", err)
	}
	if result.StatusRejected != 1 {
		t.Fatalf("expected rejected regression, got %+v", result)
	}

	stored, _, err := h.store.Get(ctx, done.ID)
	if err != nil {
		t.Fatalf("get fixture: %v", err)
	}
	if stored.Status != fixture.StatusCompleted || *stored.HomeScore != 2 || *stored.AwayScore != 1 {
		t.Fatalf("completed fixture changed: %+v", stored)
	}
}

func TestIngestionService_AllProvidersDownServesStaleCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cached := scheduledFixture(sport.Football, "eng-ars", "eng-tot", "Arsenal", "Tottenham Hotspur", harnessNow.Add(5*time.Hour))
	h := newSyncHarness(t, calendarmock.NewTokenRefresher(t), cached)
	down := &staticAdapter{name: "sportmonks", err: errors.New("status=503")}
	svc := newHarnessIngestion(h, footballRoute(down, 1, false))

	result, err := svc.RefreshSchedules(ctx)
	if err != nil {
		t.Fatalf("provider outage must not fail the cycle: %v", err)
	}
	if !result.Stale || len(result.ProvidersFailed) != 1 {
		t.Fatalf("expected stale cycle with one failed provider, got %+v", result)
	}

	staleness := h.store.Staleness()
	if !staleness.Stale || len(staleness.FailedProviders) != 1 {
		t.Fatalf("expected stale indicator, got %+v", staleness)
	}
	items, err := h.store.Query(ctx, fixture.Filter{})
	if err != nil || len(items) != 1 {
		t.Fatalf("expected cached fixture to still be served, got %d err=%v", len(items), err)
	}
}

func TestProviderGateway_RateLimitedProviderCoolsDown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	limited := providermock.NewAdapter(t)
	limited.On("Name").Return("sportmonks")
	limited.
		On("FetchSchedule", mock.Anything, sport.Football, "", mock.Anything, mock.Anything).
		Return(nil, &RateLimitedError{Provider: "sportmonks", RetryAfter: time.Minute}).
		Once()

	healthy := &staticAdapter{name: "espn", fixtures: map[sport.Sport][]provider.Fixture{
		sport.Football: {{HomeTeamName: "Arsenal", AwayTeamName: "Chelsea", KickoffAt: harnessNow.Add(time.Hour)}},
	}}
	gateway := NewProviderGateway([]ProviderRoute{footballRoute(limited, 2, false), footballRoute(healthy, 1, true)}, ProviderGatewayConfig{}, logging.NewNop())

	for cycle := 0; cycle < 2; cycle++ {
		results := gateway.FetchSchedules(ctx, harnessNow, harnessNow.Add(24*time.Hour))
		if len(results) != 2 {
			t.Fatalf("cycle %d: expected two results, got %d", cycle, len(results))
		}
		for _, result := range results {
			switch result.Provider {
			case "sportmonks":
				if !result.Skipped || !errors.Is(result.Err, ErrProviderRateLimited) {
					t.Fatalf("cycle %d: expected rate limited skip, got %+v", cycle, result)
				}
			case "espn":
				if !result.OK() || len(result.Fixtures) != 1 {
					t.Fatalf("cycle %d: healthy provider must not be affected, got %+v", cycle, result)
				}
				if result.Fixtures[0].Provider != "espn" || result.Fixtures[0].Sport != sport.Football {
					t.Fatalf("cycle %d: gateway must stamp provider and sport, got %+v", cycle, result.Fixtures[0])
				}
			}
		}
	}
}

func TestProviderGateway_FailureIsWrappedAsUnavailable(t *testing.T) {
	t.Parallel()

	broken := providermock.NewAdapter(t)
	broken.On("Name").Return("sportmonks")
	broken.
		On("FetchLiveScores", mock.Anything, sport.Football).
		Return(nil, errors.New("dial tcp: i/o timeout")).
		Once()

	gateway := NewProviderGateway([]ProviderRoute{footballRoute(broken, 1, true)}, ProviderGatewayConfig{}, logging.NewNop())
	results := gateway.FetchLive(context.Background())
	if len(results) != 1 || !errors.Is(results[0].Err, ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %+v", results)
	}
	if got := gateway.ProvidersFor(sport.Football); len(got) != 1 || got[0] != "sportmonks" {
		t.Fatalf("unexpected routing table: %v", got)
	}
}
