package postgres

import (
	"context"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/league"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/team"
	"github.com/riskibarqy/fixture-calendar-sync/internal/infrastructure/repository/memory"
	qb "github.com/riskibarqy/fixture-calendar-sync/internal/platform/querybuilder"
)

const seedConflict = "ON CONFLICT (id) DO NOTHING"

// BootstrapSeed loads the curated league and team catalog in one transaction.
// Existing rows are left untouched so operator edits survive restarts.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return crerr.Wrap(err, "begin seed tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = seedRows(ctx, tx, "leagues", memory.SeedLeagues(), func(l league.League) (string, any, error) {
		row, err := leagueToRow(l)
		return l.ID, row, err
	}); err != nil {
		return err
	}
	if err = seedRows(ctx, tx, "teams", memory.SeedTeams(), func(t team.Team) (string, any, error) {
		row, err := teamToRow(t)
		return t.ID, row, err
	}); err != nil {
		return err
	}
	return crerr.Wrap(tx.Commit(), "commit seed tx")
}

func seedRows[T any](ctx context.Context, tx *sqlx.Tx, table string, items []T, toRow func(T) (string, any, error)) error {
	for _, item := range items {
		id, row, err := toRow(item)
		if err != nil {
			return err
		}
		query, args, err := qb.InsertModel(table, row, seedConflict)
		if err != nil {
			return crerr.Wrapf(err, "build seed %s %s", table, id)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return crerr.Wrapf(err, "seed %s %s", table, id)
		}
	}
	return nil
}
