package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/calendar"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/league"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/team"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFixtureQuery_DefaultsExcludeProvisional(t *testing.T) {
	query, args, err := buildFixtureQuery(fixture.Filter{})
	require.NoError(t, err)

	want := "SELECT " + fixtureColumns + " FROM fixtures WHERE provisional = $1 ORDER BY kickoff_at ASC, id ASC"
	assert.Equal(t, want, query)
	assert.Equal(t, []any{false}, args)
}

func TestBuildFixtureQuery_TeamsAndLeaguesAreOred(t *testing.T) {
	from := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)

	query, args, err := buildFixtureQuery(fixture.Filter{
		Sport:              sport.Football,
		LeagueIDs:          []string{"eng-premier-league"},
		TeamIDs:            []string{"eng-mun", "esp-rma"},
		Statuses:           []fixture.Status{fixture.StatusScheduled, fixture.StatusLive},
		KickoffFrom:        from,
		KickoffTo:          to,
		IncludeProvisional: true,
		Limit:              25,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(query, "ORDER BY kickoff_at ASC, id ASC LIMIT 25"), query)
	assert.Contains(t, query, "sport = $1")
	assert.Contains(t, query, "status IN ($2, $3)")
	assert.Contains(t, query, "kickoff_at >= $4")
	assert.Contains(t, query, "kickoff_at <= $5")
	assert.Contains(t, query, "(league_id = ANY($6) OR home_team_id = ANY($7) OR away_team_id = ANY($8))")
	assert.NotContains(t, query, "provisional =")

	require.Len(t, args, 8)
	assert.Equal(t, pq.StringArray{"eng-premier-league"}, args[5])
	assert.Equal(t, pq.StringArray{"eng-mun", "esp-rma"}, args[6])
}

func TestFixtureRowRoundTripKeepsScoresAndProvenance(t *testing.T) {
	home, away := 2, 0
	kickoff := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	item := fixture.Fixture{
		ID:           "fx_1",
		Sport:        sport.Football,
		LeagueID:     "eng-premier-league",
		HomeTeamID:   "eng-mun",
		AwayTeamID:   "eng-mci",
		HomeTeamName: "Manchester United",
		AwayTeamName: "Manchester City",
		KickoffAt:    kickoff,
		Status:       fixture.StatusLive,
		HomeScore:    &home,
		AwayScore:    &away,
		Sources:      fixture.Provenance{ScheduleProvider: "sportmonks", SchedulePriority: 1, ScoreProvider: "espn", ScoreRank: 1002},
		RefreshedAt:  kickoff,
		UpdatedAt:    kickoff,
	}

	got := fixtureFromRow(fixtureToRow(item))
	assert.Equal(t, item, got)

	item.HomeScore, item.AwayScore = nil, nil
	got = fixtureFromRow(fixtureToRow(item))
	assert.Nil(t, got.HomeScore)
	assert.Nil(t, got.AwayScore)
}

func TestTeamRowEncodesAliases(t *testing.T) {
	row, err := teamToRow(team.Team{
		ID:      "eng-mun",
		Sport:   sport.Football,
		Name:    "Manchester United",
		Aliases: []team.Alias{{Name: "Man United"}, {Provider: "espn", Name: "MAN"}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Man United"},{"provider":"espn","name":"MAN"}]`, row.Aliases)

	back, err := teamFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, []team.Alias{{Name: "Man United"}, {Provider: "espn", Name: "MAN"}}, back.Aliases)
}

func TestLeagueRowLowercasesProviderRefs(t *testing.T) {
	row, err := leagueToRow(league.League{
		ID:           "usa-nba",
		Sport:        sport.Basketball,
		Name:         "NBA",
		ProviderRefs: map[string]string{"ESPN": "basketball/nba"},
	})
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{}, row.TeamIDs)

	back, err := leagueFromRow(row)
	require.NoError(t, err)
	ref, ok := back.RefFor("espn")
	assert.True(t, ok)
	assert.Equal(t, "basketball/nba", ref)
}

func TestSyncRecordRowKeepsSnapshot(t *testing.T) {
	kickoff := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	item := calendar.SyncRecord{
		UserID:       "user-1",
		FixtureID:    "fx_1",
		EventID:      "evt-1",
		SnapshotHash: "hash",
		Snapshot:     calendar.Snapshot{KickoffAt: kickoff, Venue: "Old Trafford", HomeTeamName: "Manchester United", AwayTeamName: "Manchester City"},
		State:        calendar.StateSynced,
		SyncedAt:     kickoff,
	}
	assert.Equal(t, item, syncRecordFromRow(syncRecordToRow(item)))
}
