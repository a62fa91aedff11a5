package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/favorite"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/plan"
	calendarmock "github.com/riskibarqy/fixture-calendar-sync/internal/mocks/domain/calendar"
)

func TestFavoriteService_FreePlanRejectsThirdTeam(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newSyncHarness(t, calendarmock.NewTokenRefresher(t))
	h.favoriteTeam(t, "u1", "eng-ars")
	h.favoriteTeam(t, "u1", "nba-lal")

	_, err := h.favoriteSvc.Add(ctx, "u1", favorite.KindTeam, "esp-rma")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	count, err := h.favorites.Count(ctx, "u1", favorite.KindTeam)
	if err != nil {
		t.Fatalf("count favorites: %v", err)
	}
	if count != 2 {
		t.Fatalf("rejected add must not change state, got count=%d", count)
	}
}

func TestFavoriteService_ReAddingExistingFavoriteIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newSyncHarness(t, calendarmock.NewTokenRefresher(t))
	h.favoriteTeam(t, "u1", "eng-ars")
	h.favoriteTeam(t, "u1", "nba-lal")

	result, err := h.favoriteSvc.Add(ctx, "u1", favorite.KindTeam, "eng-ars")
	if err != nil {
		t.Fatalf("re-add at full quota must succeed: %v", err)
	}
	if result.Created || result.Used != 2 || result.Limit != 2 {
		t.Fatalf("unexpected re-add result: %+v", result)
	}
}

func TestFavoriteService_ConcurrentAddsNeverExceedLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newSyncHarness(t, calendarmock.NewTokenRefresher(t))
	targets := []string{"eng-ars", "eng-che", "eng-liv", "eng-mci", "eng-mun", "eng-tot", "nba-lal", "nba-bos"}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for _, target := range targets {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()
			_, err := h.favoriteSvc.Add(ctx, "u1", favorite.KindTeam, target)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, ErrQuotaExceeded):
				rejected++
			default:
				t.Errorf("unexpected add error: %v", err)
			}
		}(target)
	}
	wg.Wait()

	count, err := h.favorites.Count(ctx, "u1", favorite.KindTeam)
	if err != nil {
		t.Fatalf("count favorites: %v", err)
	}
	if count != 2 || accepted != 2 || rejected != len(targets)-2 {
		t.Fatalf("quota raced: count=%d accepted=%d rejected=%d", count, accepted, rejected)
	}
}

func TestFavoriteService_LeagueFavoritesNeedPaidPlan(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newSyncHarness(t, calendarmock.NewTokenRefresher(t))

	if _, err := h.favoriteSvc.Add(ctx, "free-user", favorite.KindLeague, "usa-nba"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("free plan must reject league favorites, got %v", err)
	}

	h.plans.SetTier("pro-user", plan.TierPro)
	result, err := h.favoriteSvc.Add(ctx, "pro-user", favorite.KindLeague, "usa-nba")
	if err != nil {
		t.Fatalf("pro plan league add: %v", err)
	}
	if !result.Created || result.Limit != 5 {
		t.Fatalf("unexpected pro add result: %+v", result)
	}

	view, err := h.favoriteSvc.List(ctx, "pro-user")
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if len(view.Leagues) != 1 || view.Plan.Tier != plan.TierPro {
		t.Fatalf("unexpected favorites view: %+v", view)
	}
}

func TestFavoriteService_ValidatesTargets(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newSyncHarness(t, calendarmock.NewTokenRefresher(t))

	cases := []struct {
		name   string
		kind   favorite.Kind
		target string
		want   error
	}{
		{name: "unknown team", kind: favorite.KindTeam, target: "eng-xyz", want: ErrNotFound},
		{name: "unknown league", kind: favorite.KindLeague, target: "mars-league", want: ErrNotFound},
		{name: "empty target", kind: favorite.KindTeam, target: " ", want: ErrInvalidInput},
		{name: "unknown kind", kind: favorite.Kind("player"), target: "eng-ars", want: ErrInvalidInput},
	}
	for _, tc := range cases {
		if _, err := h.favoriteSvc.Add(ctx, "u1", tc.kind, tc.target); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	if err := h.favoriteSvc.Remove(ctx, "u1", favorite.KindTeam, "eng-ars"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("removing a missing favorite must be not found, got %v", err)
	}
}
