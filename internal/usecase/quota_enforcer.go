package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/favorite"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/league"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/plan"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/team"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

type FavoriteAddResult struct {
	Favorite favorite.Favorite `json:"favorite"`
	Created  bool              `json:"created"`
	Used     int               `json:"used"`
	Limit    int               `json:"limit"`
}

// QuotaEnforcer admits favorite adds against the user's plan. Adds for one
// user run under a per-user lock so the limit cannot be raced past.
type QuotaEnforcer struct {
	favorites favorite.Repository
	plans     plan.Repository
	catalog   plan.Catalog
	teams     team.Repository
	leagues   league.Repository
	locker    UserLocker
	logger    *logging.Logger
	now       func() time.Time
}

func NewQuotaEnforcer(
	favorites favorite.Repository,
	plans plan.Repository,
	catalog plan.Catalog,
	teams team.Repository,
	leagues league.Repository,
	locker UserLocker,
	logger *logging.Logger,
) *QuotaEnforcer {
	if logger == nil {
		logger = logging.Default()
	}
	if catalog == nil {
		catalog = plan.DefaultCatalog()
	}
	return &QuotaEnforcer{
		favorites: favorites,
		plans:     plans,
		catalog:   catalog,
		teams:     teams,
		leagues:   leagues,
		locker:    locker,
		logger:    logger,
		now:       time.Now,
	}
}

func (q *QuotaEnforcer) AddFavorite(ctx context.Context, userID string, kind favorite.Kind, targetID string) (FavoriteAddResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QuotaEnforcer.AddFavorite", attrUserID.String(userID))
	defer span.End()

	userID = strings.TrimSpace(userID)
	targetID = strings.TrimSpace(targetID)
	item := favorite.Favorite{UserID: userID, Kind: kind, TargetID: targetID}
	if err := item.Validate(); err != nil {
		return FavoriteAddResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := q.ensureTarget(ctx, kind, targetID); err != nil {
		return FavoriteAddResult{}, err
	}

	unlock, err := q.locker.Lock(ctx, favoritesLockKey(userID))
	if err != nil {
		return FavoriteAddResult{}, fmt.Errorf("%w: lock favorites user=%s: %v", ErrDependencyUnavailable, userID, err)
	}
	defer unlock()

	tier, err := q.plans.TierForUser(ctx, userID)
	if err != nil {
		return FavoriteAddResult{}, fmt.Errorf("get plan tier user=%s: %w", userID, err)
	}
	p := q.catalog.For(tier)
	limit := p.Limit(kind)

	used, err := q.favorites.Count(ctx, userID, kind)
	if err != nil {
		return FavoriteAddResult{}, fmt.Errorf("count favorites user=%s: %w", userID, err)
	}

	exists, err := q.favorites.Exists(ctx, userID, kind, targetID)
	if err != nil {
		return FavoriteAddResult{}, fmt.Errorf("check favorite user=%s: %w", userID, err)
	}
	if exists {
		return FavoriteAddResult{Favorite: item, Used: used, Limit: limit}, nil
	}

	if limit <= 0 {
		return FavoriteAddResult{}, fmt.Errorf("%w: plan %s does not include %s favorites", ErrQuotaExceeded, p.Tier, kind)
	}
	if used >= limit {
		return FavoriteAddResult{}, fmt.Errorf("%w: plan %s allows %d %s favorites", ErrQuotaExceeded, p.Tier, limit, kind)
	}

	item.CreatedAt = q.now().UTC()
	created, err := q.favorites.Add(ctx, item)
	if err != nil {
		return FavoriteAddResult{}, fmt.Errorf("add favorite user=%s: %w", userID, err)
	}
	if created {
		used++
		q.logger.InfoContext(ctx, "favorite added", "user_id", userID, "kind", kind, "target_id", targetID, "used", used, "limit", limit)
	}
	return FavoriteAddResult{Favorite: item, Created: created, Used: used, Limit: limit}, nil
}

func (q *QuotaEnforcer) ensureTarget(ctx context.Context, kind favorite.Kind, targetID string) error {
	switch kind {
	case favorite.KindTeam:
		item, found, err := q.teams.GetByID(ctx, targetID)
		if err != nil {
			return fmt.Errorf("get team %s: %w", targetID, err)
		}
		if !found {
			return fmt.Errorf("%w: team=%s", ErrNotFound, targetID)
		}
		if item.Provisional {
			return fmt.Errorf("%w: team %s is provisional", ErrInvalidInput, targetID)
		}
	case favorite.KindLeague:
		_, found, err := q.leagues.GetByID(ctx, targetID)
		if err != nil {
			return fmt.Errorf("get league %s: %w", targetID, err)
		}
		if !found {
			return fmt.Errorf("%w: league=%s", ErrNotFound, targetID)
		}
	}
	return nil
}
