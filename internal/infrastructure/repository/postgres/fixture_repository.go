package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	qb "github.com/riskibarqy/fixture-calendar-sync/internal/platform/querybuilder"
)

const fixtureColumns = "id, sport, league_id, home_team_id, away_team_id, home_team_name, away_team_name, kickoff_at, venue, status, home_score, away_score, provisional, schedule_provider, schedule_priority, score_provider, score_rank, refreshed_at, updated_at"

type FixtureRepository struct {
	db *sqlx.DB
}

func NewFixtureRepository(db *sqlx.DB) *FixtureRepository {
	return &FixtureRepository{db: db}
}

func (r *FixtureRepository) GetByID(ctx context.Context, fixtureID string) (fixture.Fixture, bool, error) {
	query, args, err := qb.Select(fixtureColumns).From("fixtures").
		Where(qb.Eq("id", fixtureID)).
		ToSQL()
	if err != nil {
		return fixture.Fixture{}, false, fmt.Errorf("build get fixture by id query: %w", err)
	}

	var row fixtureTableModel
	err = retryPooledStatement(func() error {
		return r.db.GetContext(ctx, &row, query, args...)
	})
	if err != nil {
		if isNotFound(err) {
			return fixture.Fixture{}, false, nil
		}
		return fixture.Fixture{}, false, fmt.Errorf("get fixture by id: %w", err)
	}

	return fixtureFromRow(row), true, nil
}

func (r *FixtureRepository) Query(ctx context.Context, filter fixture.Filter) ([]fixture.Fixture, error) {
	query, args, err := buildFixtureQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("build query fixtures query: %w", err)
	}

	var rows []fixtureTableModel
	err = retryPooledStatement(func() error {
		rows = rows[:0]
		return r.db.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("query fixtures: %w", err)
	}

	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		out = append(out, fixtureFromRow(row))
	}
	return out, nil
}

func buildFixtureQuery(filter fixture.Filter) (string, []any, error) {
	conditions := make([]qb.Condition, 0, 8)
	if !filter.IncludeProvisional {
		conditions = append(conditions, qb.Eq("provisional", false))
	}
	if len(filter.IDs) > 0 {
		conditions = append(conditions, qb.InStrings("id", filter.IDs))
	}
	if filter.Sport != "" {
		conditions = append(conditions, qb.Eq("sport", string(filter.Sport)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		conditions = append(conditions, qb.InStrings("status", statuses))
	}
	if !filter.KickoffFrom.IsZero() {
		conditions = append(conditions, qb.Gte("kickoff_at", filter.KickoffFrom.UTC()))
	}
	if !filter.KickoffTo.IsZero() {
		conditions = append(conditions, qb.Lte("kickoff_at", filter.KickoffTo.UTC()))
	}
	if len(filter.TeamIDs) > 0 || len(filter.LeagueIDs) > 0 {
		teams := pq.StringArray(filter.TeamIDs)
		conditions = append(conditions, qb.Expr(
			"(league_id = ANY(?) OR home_team_id = ANY(?) OR away_team_id = ANY(?))",
			pq.StringArray(filter.LeagueIDs), teams, teams,
		))
	}

	builder := qb.Select(fixtureColumns).From("fixtures").
		Where(conditions...).
		OrderBy("kickoff_at ASC", "id ASC")
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	return builder.ToSQL()
}

func (r *FixtureRepository) Upsert(ctx context.Context, item fixture.Fixture) error {
	query, args, err := qb.UpsertModel("fixtures", fixtureToRow(item), []string{"id"}, "sport")
	if err != nil {
		return fmt.Errorf("build upsert fixture query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert fixture %s: %w", item.ID, err)
	}
	return nil
}

func (r *FixtureRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query, args, err := qb.DeleteFrom("fixtures").
		Where(
			qb.Eq("status", string(fixture.StatusCompleted)),
			qb.Lt("kickoff_at", cutoff.UTC()),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build purge fixtures query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge fixtures: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge fixtures rows affected: %w", err)
	}
	return int(affected), nil
}

func fixtureFromRow(row fixtureTableModel) fixture.Fixture {
	return fixture.Fixture{
		ID:           row.ID,
		Sport:        sport.Sport(row.Sport),
		LeagueID:     row.LeagueID,
		HomeTeamID:   row.HomeTeamID,
		AwayTeamID:   row.AwayTeamID,
		HomeTeamName: row.HomeTeamName,
		AwayTeamName: row.AwayTeamName,
		KickoffAt:    row.KickoffAt.UTC(),
		Venue:        row.Venue,
		Status:       fixture.Status(row.Status),
		HomeScore:    nullIntPtr(row.HomeScore),
		AwayScore:    nullIntPtr(row.AwayScore),
		Provisional:  row.Provisional,
		Sources: fixture.Provenance{
			ScheduleProvider: row.ScheduleProvider,
			SchedulePriority: row.SchedulePriority,
			ScoreProvider:    row.ScoreProvider,
			ScoreRank:        row.ScoreRank,
		},
		RefreshedAt: row.RefreshedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func fixtureToRow(item fixture.Fixture) fixtureTableModel {
	updatedAt := item.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	refreshedAt := item.RefreshedAt
	if refreshedAt.IsZero() {
		refreshedAt = updatedAt
	}
	return fixtureTableModel{
		ID:               item.ID,
		Sport:            string(item.Sport),
		LeagueID:         item.LeagueID,
		HomeTeamID:       item.HomeTeamID,
		AwayTeamID:       item.AwayTeamID,
		HomeTeamName:     item.HomeTeamName,
		AwayTeamName:     item.AwayTeamName,
		KickoffAt:        item.KickoffAt.UTC(),
		Venue:            item.Venue,
		Status:           string(item.Status),
		HomeScore:        intPtrToNull(item.HomeScore),
		AwayScore:        intPtrToNull(item.AwayScore),
		Provisional:      item.Provisional,
		ScheduleProvider: item.Sources.ScheduleProvider,
		SchedulePriority: item.Sources.SchedulePriority,
		ScoreProvider:    item.Sources.ScoreProvider,
		ScoreRank:        item.Sources.ScoreRank,
		RefreshedAt:      refreshedAt.UTC(),
		UpdatedAt:        updatedAt.UTC(),
	}
}
