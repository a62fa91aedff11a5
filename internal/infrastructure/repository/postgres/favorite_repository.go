package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/favorite"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/plan"
	qb "github.com/riskibarqy/fixture-calendar-sync/internal/platform/querybuilder"
)

type FavoriteRepository struct {
	db *sqlx.DB
}

func NewFavoriteRepository(db *sqlx.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

func (r *FavoriteRepository) ListByUser(ctx context.Context, userID string) ([]favorite.Favorite, error) {
	query, args, err := qb.Select("user_id", "kind", "target_id", "created_at").From("favorites").
		Where(qb.Eq("user_id", userID)).
		OrderBy("kind DESC", "target_id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list favorites query: %w", err)
	}

	var rows []favoriteTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	out := make([]favorite.Favorite, 0, len(rows))
	for _, row := range rows {
		out = append(out, favorite.Favorite{
			UserID:    row.UserID,
			Kind:      favorite.Kind(row.Kind),
			TargetID:  row.TargetID,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *FavoriteRepository) Exists(ctx context.Context, userID string, kind favorite.Kind, targetID string) (bool, error) {
	query, args, err := qb.Select("1").From("favorites").
		Where(
			qb.Eq("user_id", userID),
			qb.Eq("kind", string(kind)),
			qb.Eq("target_id", targetID),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build favorite exists query: %w", err)
	}

	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("favorite exists: %w", err)
	}
	return true, nil
}

func (r *FavoriteRepository) Count(ctx context.Context, userID string, kind favorite.Kind) (int, error) {
	query, args, err := qb.Select("COUNT(1)").From("favorites").
		Where(
			qb.Eq("user_id", userID),
			qb.Eq("kind", string(kind)),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count favorites query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count favorites: %w", err)
	}
	return count, nil
}

func (r *FavoriteRepository) Add(ctx context.Context, item favorite.Favorite) (bool, error) {
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	query, args, err := qb.InsertModel("favorites", favoriteTableModel{
		UserID:    item.UserID,
		Kind:      string(item.Kind),
		TargetID:  item.TargetID,
		CreatedAt: createdAt.UTC(),
	}, "ON CONFLICT (user_id, kind, target_id) DO NOTHING")
	if err != nil {
		return false, fmt.Errorf("build add favorite query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add favorite rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *FavoriteRepository) Remove(ctx context.Context, userID string, kind favorite.Kind, targetID string) (bool, error) {
	query, args, err := qb.DeleteFrom("favorites").
		Where(
			qb.Eq("user_id", userID),
			qb.Eq("kind", string(kind)),
			qb.Eq("target_id", targetID),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build remove favorite query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove favorite rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *FavoriteRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	var out []string
	if err := r.db.SelectContext(ctx, &out, `SELECT DISTINCT user_id FROM favorites ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("list favorite user ids: %w", err)
	}
	return out, nil
}

// PlanRepository reads tiers written by the billing service into user_plans.
type PlanRepository struct {
	db *sqlx.DB
}

func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) TierForUser(ctx context.Context, userID string) (plan.Tier, error) {
	query, args, err := qb.Select("tier").From("user_plans").
		Where(qb.Eq("user_id", userID)).
		ToSQL()
	if err != nil {
		return "", fmt.Errorf("build get user tier query: %w", err)
	}

	var raw string
	if err := r.db.GetContext(ctx, &raw, query, args...); err != nil {
		if isNotFound(err) {
			return plan.TierFree, nil
		}
		return "", fmt.Errorf("get user tier: %w", err)
	}
	tier, ok := plan.ParseTier(raw)
	if !ok {
		return plan.TierFree, nil
	}
	return tier, nil
}
