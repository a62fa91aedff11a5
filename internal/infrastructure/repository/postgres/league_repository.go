package postgres

import (
	"context"
	"fmt"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/league"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	qb "github.com/riskibarqy/fixture-calendar-sync/internal/platform/querybuilder"
)

const leagueColumns = "id, sport, name, team_ids, provider_refs"

type LeagueRepository struct {
	db *sqlx.DB
}

func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

func (r *LeagueRepository) List(ctx context.Context) ([]league.League, error) {
	return r.list(ctx)
}

func (r *LeagueRepository) ListBySport(ctx context.Context, s sport.Sport) ([]league.League, error) {
	return r.list(ctx, qb.Eq("sport", string(s)))
}

func (r *LeagueRepository) list(ctx context.Context, conditions ...qb.Condition) ([]league.League, error) {
	query, args, err := qb.Select(leagueColumns).From("leagues").
		Where(conditions...).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select leagues query: %w", err)
	}

	var rows []leagueTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select leagues: %w", err)
	}

	out := make([]league.League, 0, len(rows))
	for _, row := range rows {
		item, err := leagueFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *LeagueRepository) GetByID(ctx context.Context, leagueID string) (league.League, bool, error) {
	return r.getOne(ctx, "get league by id", qb.Eq("id", leagueID))
}

func (r *LeagueRepository) GetByProviderRef(ctx context.Context, provider, ref string) (league.League, bool, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	ref = strings.TrimSpace(ref)
	if provider == "" || ref == "" {
		return league.League{}, false, nil
	}
	return r.getOne(ctx, "get league by provider ref", qb.Expr("provider_refs ->> ? = ?", provider, ref))
}

func (r *LeagueRepository) getOne(ctx context.Context, op string, condition qb.Condition) (league.League, bool, error) {
	query, args, err := qb.Select(leagueColumns).From("leagues").
		Where(condition).
		OrderBy("id").
		Limit(1).
		ToSQL()
	if err != nil {
		return league.League{}, false, fmt.Errorf("build %s query: %w", op, err)
	}

	var row leagueTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return league.League{}, false, nil
		}
		return league.League{}, false, fmt.Errorf("%s: %w", op, err)
	}

	item, err := leagueFromRow(row)
	if err != nil {
		return league.League{}, false, err
	}
	return item, true, nil
}

func leagueFromRow(row leagueTableModel) (league.League, error) {
	refs := map[string]string{}
	if row.ProviderRefs != "" {
		if err := sonic.UnmarshalString(row.ProviderRefs, &refs); err != nil {
			return league.League{}, fmt.Errorf("decode provider refs for league %s: %w", row.ID, err)
		}
	}
	return league.League{
		ID:           row.ID,
		Sport:        sport.Sport(row.Sport),
		Name:         row.Name,
		TeamIDs:      append([]string(nil), row.TeamIDs...),
		ProviderRefs: refs,
	}, nil
}

func leagueToRow(item league.League) (leagueTableModel, error) {
	refs := make(map[string]string, len(item.ProviderRefs))
	for provider, ref := range item.ProviderRefs {
		refs[strings.ToLower(provider)] = ref
	}
	encoded, err := sonic.MarshalString(refs)
	if err != nil {
		return leagueTableModel{}, fmt.Errorf("encode provider refs for league %s: %w", item.ID, err)
	}
	teamIDs := item.TeamIDs
	if teamIDs == nil {
		teamIDs = []string{}
	}
	return leagueTableModel{
		ID:           item.ID,
		Sport:        string(item.Sport),
		Name:         item.Name,
		TeamIDs:      teamIDs,
		ProviderRefs: encoded,
	}, nil
}
