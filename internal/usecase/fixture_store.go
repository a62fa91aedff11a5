package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/resilience"
)

// liveRankBoost lifts live-capable providers above any schedule priority for
// score and status fields.
const liveRankBoost = 1000

type FixtureStoreConfig struct {
	LiveRefreshInterval      time.Duration
	ScheduledRefreshInterval time.Duration
	Retention                time.Duration
	RescheduleWindow         time.Duration
}

// FixtureSource describes who supplied an upsert.
type FixtureSource struct {
	Provider         string
	SchedulePriority int
	LiveCapable      bool
	Origin           ProviderCallKind
}

func (s FixtureSource) scoreRank() int {
	rank := s.SchedulePriority
	if s.LiveCapable {
		rank += liveRankBoost
	}
	return rank
}

type UpsertResult struct {
	Fixture        fixture.Fixture
	Created        bool
	Changed        bool
	Frozen         bool
	StatusRejected bool
}

// Staleness tells readers whether the last refresh cycle reached any provider.
type Staleness struct {
	Stale                 bool      `json:"stale"`
	LastSuccessfulRefresh time.Time `json:"last_successful_refresh"`
	LastAttempt           time.Time `json:"last_attempt"`
	FailedProviders       []string  `json:"failed_providers,omitempty"`
}

// FixtureStore holds the canonical fixture state. Writes for one fixture id
// are serialized; reads go straight to the repository snapshot.
type FixtureStore struct {
	repo   fixture.Repository
	locks  resilience.KeyedMutex
	cfg    FixtureStoreConfig
	logger *logging.Logger
	now    func() time.Time

	mu        sync.RWMutex
	staleness Staleness
}

func NewFixtureStore(repo fixture.Repository, cfg FixtureStoreConfig, logger *logging.Logger) *FixtureStore {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.LiveRefreshInterval <= 0 {
		cfg.LiveRefreshInterval = 90 * time.Second
	}
	if cfg.ScheduledRefreshInterval <= 0 {
		cfg.ScheduledRefreshInterval = 24 * time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.RescheduleWindow <= 0 {
		cfg.RescheduleWindow = 36 * time.Hour
	}

	return &FixtureStore{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *FixtureStore) Get(ctx context.Context, fixtureID string) (fixture.Fixture, bool, error) {
	item, found, err := s.repo.GetByID(ctx, strings.TrimSpace(fixtureID))
	if err != nil {
		return fixture.Fixture{}, false, fmt.Errorf("get fixture %s: %w", fixtureID, err)
	}
	return item, found, nil
}

func (s *FixtureStore) Query(ctx context.Context, filter fixture.Filter) ([]fixture.Fixture, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureStore.Query")
	defer span.End()

	items, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query fixtures: %w", err)
	}
	return items, nil
}

// Upsert merges incoming into the stored fixture using field-level source
// priority. Completed fixtures are frozen.
func (s *FixtureStore) Upsert(ctx context.Context, src FixtureSource, incoming fixture.Fixture) (UpsertResult, error) {
	if strings.TrimSpace(incoming.ID) == "" {
		return UpsertResult{}, fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
	}

	fixtureID, err := s.resolveID(ctx, incoming)
	if err != nil {
		return UpsertResult{}, err
	}
	incoming.ID = fixtureID

	unlock, err := s.locks.Lock(ctx, fixtureID)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("lock fixture %s: %w", fixtureID, err)
	}
	defer unlock()

	now := s.now().UTC()
	existing, found, err := s.repo.GetByID(ctx, fixtureID)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("get fixture %s: %w", fixtureID, err)
	}

	if !found {
		created := incoming.Clone()
		created.Sources = fixture.Provenance{
			ScheduleProvider: src.Provider,
			SchedulePriority: src.SchedulePriority,
			ScoreProvider:    src.Provider,
			ScoreRank:        src.scoreRank(),
		}
		created.RefreshedAt = now
		created.UpdatedAt = now
		if err := s.repo.Upsert(ctx, created); err != nil {
			return UpsertResult{}, fmt.Errorf("insert fixture %s: %w", fixtureID, err)
		}
		return UpsertResult{Fixture: created, Created: true, Changed: true}, nil
	}

	merged, outcome := mergeFixture(existing, incoming, src)
	if outcome.statusRejected {
		s.logger.WarnContext(ctx, "fixture status regression rejected",
			"fixture_id", fixtureID,
			"provider", src.Provider,
			"current_status", existing.Status,
			"incoming_status", incoming.Status,
		)
	}
	if outcome.frozen {
		return UpsertResult{Fixture: existing, Frozen: true, StatusRejected: outcome.statusRejected}, nil
	}

	merged.RefreshedAt = now
	if outcome.changed {
		merged.UpdatedAt = now
	}
	if err := s.repo.Upsert(ctx, merged); err != nil {
		return UpsertResult{}, fmt.Errorf("update fixture %s: %w", fixtureID, err)
	}

	return UpsertResult{Fixture: merged, Changed: outcome.changed, StatusRejected: outcome.statusRejected}, nil
}

// resolveID keeps a rescheduled match on its original id when the kickoff
// moved across a UTC date boundary.
func (s *FixtureStore) resolveID(ctx context.Context, incoming fixture.Fixture) (string, error) {
	if incoming.Provisional || incoming.HomeTeamID == "" || incoming.AwayTeamID == "" {
		return incoming.ID, nil
	}
	if _, found, err := s.repo.GetByID(ctx, incoming.ID); err != nil {
		return "", fmt.Errorf("get fixture %s: %w", incoming.ID, err)
	} else if found {
		return incoming.ID, nil
	}

	candidates, err := s.repo.Query(ctx, fixture.Filter{
		Sport:       incoming.Sport,
		TeamIDs:     []string{incoming.HomeTeamID},
		KickoffFrom: incoming.KickoffAt.Add(-s.cfg.RescheduleWindow),
		KickoffTo:   incoming.KickoffAt.Add(s.cfg.RescheduleWindow),
	})
	if err != nil {
		return "", fmt.Errorf("find rescheduled fixture: %w", err)
	}
	for _, candidate := range candidates {
		if candidate.ID == incoming.ID || candidate.Status.IsTerminal() {
			continue
		}
		if candidate.HasTeam(incoming.HomeTeamID) && candidate.HasTeam(incoming.AwayTeamID) {
			return candidate.ID, nil
		}
	}
	return incoming.ID, nil
}

type mergeOutcome struct {
	changed        bool
	frozen         bool
	statusRejected bool
}

func mergeFixture(existing, incoming fixture.Fixture, src FixtureSource) (fixture.Fixture, mergeOutcome) {
	var outcome mergeOutcome
	if existing.Status.IsTerminal() {
		outcome.frozen = true
		outcome.statusRejected = incoming.Status != "" && incoming.Status != existing.Status
		return existing, outcome
	}

	out := existing.Clone()

	// Live score payloads only fill schedule gaps.
	scheduleWins := src.Origin != ProviderCallLive && src.SchedulePriority >= existing.Sources.SchedulePriority
	setString := func(dst *string, value string) {
		value = strings.TrimSpace(value)
		if value == "" || *dst == value {
			return
		}
		if *dst == "" || scheduleWins {
			*dst = value
			outcome.changed = true
		}
	}
	setString(&out.LeagueID, incoming.LeagueID)
	setString(&out.HomeTeamName, incoming.HomeTeamName)
	setString(&out.AwayTeamName, incoming.AwayTeamName)
	setString(&out.Venue, incoming.Venue)
	if !incoming.KickoffAt.IsZero() && !incoming.KickoffAt.Equal(out.KickoffAt) && (out.KickoffAt.IsZero() || scheduleWins) {
		out.KickoffAt = incoming.KickoffAt
		outcome.changed = true
	}
	if scheduleWins {
		out.Sources.ScheduleProvider = src.Provider
		out.Sources.SchedulePriority = src.SchedulePriority
	}

	rank := src.scoreRank()
	scoreWins := rank >= existing.Sources.ScoreRank
	scoreApplied := false
	if incoming.Status != "" && incoming.Status != out.Status {
		switch {
		case !fixture.CanTransition(out.Status, incoming.Status):
			outcome.statusRejected = true
		case scoreWins || advances(out.Status, incoming.Status):
			out.Status = incoming.Status
			outcome.changed = true
			scoreApplied = true
		}
	}
	if incoming.HomeScore != nil && (scoreWins || out.HomeScore == nil) && !sameScore(out.HomeScore, incoming.HomeScore) {
		out.HomeScore = cloneScore(incoming.HomeScore)
		outcome.changed = true
		scoreApplied = true
	}
	if incoming.AwayScore != nil && (scoreWins || out.AwayScore == nil) && !sameScore(out.AwayScore, incoming.AwayScore) {
		out.AwayScore = cloneScore(incoming.AwayScore)
		outcome.changed = true
		scoreApplied = true
	}
	if scoreApplied && scoreWins {
		out.Sources.ScoreProvider = src.Provider
		out.Sources.ScoreRank = rank
	}

	if existing.Provisional && !incoming.Provisional {
		out.Provisional = false
		outcome.changed = true
	}

	return out, outcome
}

func advances(from, to fixture.Status) bool {
	switch from {
	case fixture.StatusScheduled, fixture.StatusPostponed:
		return to == fixture.StatusLive || to == fixture.StatusCompleted
	case fixture.StatusLive:
		return to == fixture.StatusCompleted
	default:
		return false
	}
}

func sameScore(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneScore(v *int) *int {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}

// NeedsRefresh applies the staleness policy: live fixtures every live
// interval, scheduled ones daily, finished ones never.
func (s *FixtureStore) NeedsRefresh(item fixture.Fixture, now time.Time) bool {
	switch item.Status {
	case fixture.StatusCompleted, fixture.StatusCancelled:
		return false
	case fixture.StatusLive:
		return now.Sub(item.RefreshedAt) >= s.cfg.LiveRefreshInterval
	default:
		return now.Sub(item.RefreshedAt) >= s.cfg.ScheduledRefreshInterval
	}
}

func (s *FixtureStore) HasLive(ctx context.Context) (bool, error) {
	items, err := s.repo.Query(ctx, fixture.Filter{
		Statuses:           []fixture.Status{fixture.StatusLive},
		IncludeProvisional: true,
		Limit:              1,
	})
	if err != nil {
		return false, fmt.Errorf("query live fixtures: %w", err)
	}
	return len(items) > 0, nil
}

// LiveDueForRefresh reports whether at least one live fixture is older than
// the live interval.
func (s *FixtureStore) LiveDueForRefresh(ctx context.Context, now time.Time) (bool, error) {
	items, err := s.repo.Query(ctx, fixture.Filter{
		Statuses:           []fixture.Status{fixture.StatusLive},
		IncludeProvisional: true,
	})
	if err != nil {
		return false, fmt.Errorf("query live fixtures: %w", err)
	}
	for _, item := range items {
		if s.NeedsRefresh(item, now) {
			return true, nil
		}
	}
	return false, nil
}

// RecordCycle updates the staleness indicator after one refresh cycle.
func (s *FixtureStore) RecordCycle(results []ProviderResult, at time.Time) Staleness {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(results) == 0 {
		return s.staleness
	}

	anyOK := false
	failed := make([]string, 0)
	for _, result := range results {
		if result.OK() {
			anyOK = true
			continue
		}
		failed = append(failed, result.Label())
	}

	s.staleness.LastAttempt = at
	s.staleness.FailedProviders = failed
	s.staleness.Stale = !anyOK
	if anyOK {
		s.staleness.LastSuccessfulRefresh = at
	}
	return s.staleness
}

func (s *FixtureStore) Staleness() Staleness {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.staleness
	out.FailedProviders = append([]string(nil), s.staleness.FailedProviders...)
	return out
}

// Purge removes completed fixtures whose kickoff is older than the retention
// window.
func (s *FixtureStore) Purge(ctx context.Context, now time.Time) (int, error) {
	removed, err := s.repo.DeleteCompletedBefore(ctx, now.Add(-s.cfg.Retention))
	if err != nil {
		return 0, fmt.Errorf("purge completed fixtures: %w", err)
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "purged completed fixtures", "count", removed, "retention", s.cfg.Retention.String())
	}
	return removed, nil
}
