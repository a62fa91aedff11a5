package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/favorite"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/plan"
)

type FavoritesView struct {
	Teams   []favorite.Favorite `json:"teams"`
	Leagues []favorite.Favorite `json:"leagues"`
	Plan    plan.Plan           `json:"plan"`
}

// FavoriteService is the read/remove side of favorites; adds go through the
// QuotaEnforcer.
type FavoriteService struct {
	quota     *QuotaEnforcer
	favorites favorite.Repository
	plans     plan.Repository
	catalog   plan.Catalog
	locker    UserLocker
}

func NewFavoriteService(quota *QuotaEnforcer, favorites favorite.Repository, plans plan.Repository, catalog plan.Catalog, locker UserLocker) *FavoriteService {
	if catalog == nil {
		catalog = plan.DefaultCatalog()
	}
	return &FavoriteService{
		quota:     quota,
		favorites: favorites,
		plans:     plans,
		catalog:   catalog,
		locker:    locker,
	}
}

func (s *FavoriteService) Add(ctx context.Context, userID string, kind favorite.Kind, targetID string) (FavoriteAddResult, error) {
	return s.quota.AddFavorite(ctx, userID, kind, targetID)
}

func (s *FavoriteService) Remove(ctx context.Context, userID string, kind favorite.Kind, targetID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.FavoriteService.Remove", attrUserID.String(userID))
	defer span.End()

	userID = strings.TrimSpace(userID)
	targetID = strings.TrimSpace(targetID)
	if err := (favorite.Favorite{UserID: userID, Kind: kind, TargetID: targetID}).Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	unlock, err := s.locker.Lock(ctx, favoritesLockKey(userID))
	if err != nil {
		return fmt.Errorf("%w: lock favorites user=%s: %v", ErrDependencyUnavailable, userID, err)
	}
	defer unlock()

	removed, err := s.favorites.Remove(ctx, userID, kind, targetID)
	if err != nil {
		return fmt.Errorf("remove favorite user=%s: %w", userID, err)
	}
	if !removed {
		return fmt.Errorf("%w: %s favorite %s", ErrNotFound, kind, targetID)
	}
	return nil
}

func (s *FavoriteService) List(ctx context.Context, userID string) (FavoritesView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FavoriteService.List", attrUserID.String(userID))
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return FavoritesView{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	tier, err := s.plans.TierForUser(ctx, userID)
	if err != nil {
		return FavoritesView{}, fmt.Errorf("get plan tier user=%s: %w", userID, err)
	}
	items, err := s.favorites.ListByUser(ctx, userID)
	if err != nil {
		return FavoritesView{}, fmt.Errorf("list favorites user=%s: %w", userID, err)
	}

	out := FavoritesView{
		Teams:   make([]favorite.Favorite, 0),
		Leagues: make([]favorite.Favorite, 0),
		Plan:    s.catalog.For(tier),
	}
	for _, item := range items {
		switch item.Kind {
		case favorite.KindTeam:
			out.Teams = append(out.Teams, item)
		case favorite.KindLeague:
			out.Leagues = append(out.Leagues, item)
		}
	}
	return out, nil
}
