package postgres

import (
	"context"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/team"
	qb "github.com/riskibarqy/fixture-calendar-sync/internal/platform/querybuilder"
)

const teamColumns = "id, sport, name, nickname, aliases, provisional, created_at"

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (team.Team, bool, error) {
	query, args, err := qb.Select(teamColumns).From("teams").
		Where(qb.Eq("id", teamID)).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build get team by id query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("get team by id: %w", err)
	}

	item, err := teamFromRow(row)
	if err != nil {
		return team.Team{}, false, err
	}
	return item, true, nil
}

func (r *TeamRepository) ListBySport(ctx context.Context, s sport.Sport) ([]team.Team, error) {
	query, args, err := qb.Select(teamColumns).From("teams").
		Where(qb.Eq("sport", string(s))).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list teams by sport query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list teams by sport: %w", err)
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		item, err := teamFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *TeamRepository) Upsert(ctx context.Context, item team.Team) error {
	row, err := teamToRow(item)
	if err != nil {
		return err
	}

	query, args, err := qb.UpsertModel("teams", row, []string{"id"}, "sport", "created_at")
	if err != nil {
		return fmt.Errorf("build upsert team query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert team %s: %w", item.ID, err)
	}
	return nil
}

func teamFromRow(row teamTableModel) (team.Team, error) {
	var aliases []teamAliasJSON
	if row.Aliases != "" {
		if err := sonic.UnmarshalString(row.Aliases, &aliases); err != nil {
			return team.Team{}, fmt.Errorf("decode aliases for team %s: %w", row.ID, err)
		}
	}

	item := team.Team{
		ID:          row.ID,
		Sport:       sport.Sport(row.Sport),
		Name:        row.Name,
		Nickname:    row.Nickname,
		Provisional: row.Provisional,
		CreatedAt:   row.CreatedAt.UTC(),
	}
	for _, alias := range aliases {
		item.Aliases = append(item.Aliases, team.Alias{Provider: alias.Provider, Name: alias.Name})
	}
	return item, nil
}

func teamToRow(item team.Team) (teamTableModel, error) {
	aliases := make([]teamAliasJSON, 0, len(item.Aliases))
	for _, alias := range item.Aliases {
		aliases = append(aliases, teamAliasJSON{Provider: alias.Provider, Name: alias.Name})
	}
	encoded, err := sonic.MarshalString(aliases)
	if err != nil {
		return teamTableModel{}, fmt.Errorf("encode aliases for team %s: %w", item.ID, err)
	}

	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return teamTableModel{
		ID:          item.ID,
		Sport:       string(item.Sport),
		Name:        item.Name,
		Nickname:    item.Nickname,
		Aliases:     encoded,
		Provisional: item.Provisional,
		CreatedAt:   createdAt.UTC(),
	}, nil
}
