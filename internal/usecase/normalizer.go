package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/league"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/provider"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/team"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

type TeamResolution struct {
	TeamID      string
	Method      string
	Provisional bool
}

// Normalizer maps raw provider payloads onto canonical teams, leagues and
// fixtures. Alias tables are built lazily per sport from the curated catalog.
type Normalizer struct {
	teamRepo   team.Repository
	leagueRepo league.Repository
	nicknames  map[string]string
	logger     *logging.Logger
	now        func() time.Time

	mu     sync.RWMutex
	tables map[sport.Sport]*team.AliasTable
}

func NewNormalizer(teamRepo team.Repository, leagueRepo league.Repository, nicknames map[string]string, logger *logging.Logger) *Normalizer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Normalizer{
		teamRepo:   teamRepo,
		leagueRepo: leagueRepo,
		nicknames:  nicknames,
		logger:     logger,
		now:        time.Now,
		tables:     make(map[sport.Sport]*team.AliasTable),
	}
}

// Reload drops cached alias tables, e.g. after provisional teams were promoted.
func (n *Normalizer) Reload() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tables = make(map[sport.Sport]*team.AliasTable)
}

func (n *Normalizer) ResolveTeam(ctx context.Context, s sport.Sport, providerName, rawName string) (TeamResolution, error) {
	table, err := n.table(ctx, s)
	if err != nil {
		return TeamResolution{}, err
	}

	if teamID, method, ok := table.Resolve(s, providerName, rawName); ok {
		return TeamResolution{TeamID: teamID, Method: method}, nil
	}

	teamID, err := n.ensureProvisional(ctx, s, providerName, rawName)
	if err != nil {
		return TeamResolution{}, err
	}
	return TeamResolution{TeamID: teamID, Method: team.MatchNone, Provisional: true}, nil
}

// NormalizeFixture converts one provider fixture into its canonical form.
// When a participant cannot be resolved the fixture is still returned, flagged
// provisional, together with ErrNormalizationAmbiguous.
func (n *Normalizer) NormalizeFixture(ctx context.Context, raw provider.Fixture) (fixture.Fixture, error) {
	if !raw.Sport.Valid() {
		return fixture.Fixture{}, fmt.Errorf("%w: provider=%s unsupported sport %q", ErrInvalidInput, raw.Provider, raw.Sport)
	}
	if strings.TrimSpace(raw.HomeTeamName) == "" || strings.TrimSpace(raw.AwayTeamName) == "" {
		return fixture.Fixture{}, fmt.Errorf("%w: provider=%s external_id=%s missing team names", ErrInvalidInput, raw.Provider, raw.ExternalID)
	}
	if raw.KickoffAt.IsZero() {
		return fixture.Fixture{}, fmt.Errorf("%w: provider=%s external_id=%s missing kickoff", ErrInvalidInput, raw.Provider, raw.ExternalID)
	}
	status, ok := fixture.ParseStatus(raw.Status)
	if !ok {
		return fixture.Fixture{}, fmt.Errorf("%w: provider=%s external_id=%s unknown status %q", ErrInvalidInput, raw.Provider, raw.ExternalID, raw.Status)
	}

	home, err := n.ResolveTeam(ctx, raw.Sport, raw.Provider, raw.HomeTeamName)
	if err != nil {
		return fixture.Fixture{}, fmt.Errorf("resolve home team: %w", err)
	}
	away, err := n.ResolveTeam(ctx, raw.Sport, raw.Provider, raw.AwayTeamName)
	if err != nil {
		return fixture.Fixture{}, fmt.Errorf("resolve away team: %w", err)
	}

	leagueID := ""
	if raw.LeagueRef != "" {
		item, found, err := n.leagueRepo.GetByProviderRef(ctx, raw.Provider, raw.LeagueRef)
		if err != nil {
			return fixture.Fixture{}, fmt.Errorf("resolve league provider=%s ref=%s: %w", raw.Provider, raw.LeagueRef, err)
		}
		if found {
			leagueID = item.ID
		}
	}

	out := fixture.Fixture{
		ID:           fixture.CanonicalID(raw.Sport, home.TeamID, away.TeamID, raw.KickoffAt),
		Sport:        raw.Sport,
		LeagueID:     leagueID,
		HomeTeamID:   home.TeamID,
		AwayTeamID:   away.TeamID,
		HomeTeamName: strings.TrimSpace(raw.HomeTeamName),
		AwayTeamName: strings.TrimSpace(raw.AwayTeamName),
		KickoffAt:    raw.KickoffAt.UTC(),
		Venue:        strings.TrimSpace(raw.Venue),
		Status:       status,
		HomeScore:    raw.HomeScore,
		AwayScore:    raw.AwayScore,
		Provisional:  home.Provisional || away.Provisional,
	}
	if out.Provisional {
		return out, fmt.Errorf("%w: provider=%s home=%q away=%q", ErrNormalizationAmbiguous, raw.Provider, raw.HomeTeamName, raw.AwayTeamName)
	}
	return out, nil
}

func (n *Normalizer) table(ctx context.Context, s sport.Sport) (*team.AliasTable, error) {
	n.mu.RLock()
	table, ok := n.tables[s]
	n.mu.RUnlock()
	if ok {
		return table, nil
	}

	teams, err := n.teamRepo.ListBySport(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("load alias table sport=%s: %w", s, err)
	}
	table = team.NewAliasTable(teams, n.nicknames)

	n.mu.Lock()
	n.tables[s] = table
	n.mu.Unlock()
	return table, nil
}

func (n *Normalizer) ensureProvisional(ctx context.Context, s sport.Sport, providerName, rawName string) (string, error) {
	teamID := team.ProvisionalID(s, rawName)
	if teamID == team.ProvisionalID(s, "") {
		return "", fmt.Errorf("%w: team name %q has no usable characters", ErrInvalidInput, rawName)
	}

	_, exists, err := n.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return "", fmt.Errorf("get provisional team %s: %w", teamID, err)
	}
	if exists {
		return teamID, nil
	}

	item := team.Team{
		ID:          teamID,
		Sport:       s,
		Name:        strings.TrimSpace(rawName),
		Aliases:     []team.Alias{{Provider: providerName, Name: strings.TrimSpace(rawName)}},
		Provisional: true,
		CreatedAt:   n.now().UTC(),
	}
	if err := n.teamRepo.Upsert(ctx, item); err != nil {
		return "", fmt.Errorf("store provisional team %s: %w", teamID, err)
	}
	n.logger.WarnContext(ctx, "team alias unresolved, quarantined as provisional",
		"sport", s,
		"provider", providerName,
		"raw_name", rawName,
		"team_id", teamID,
	)
	return teamID, nil
}
