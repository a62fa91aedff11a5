package plan

import (
	"testing"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/favorite"
)

func TestCatalog_For(t *testing.T) {
	catalog := DefaultCatalog()

	free := catalog.For(TierFree)
	if free.Limit(favorite.KindTeam) != 2 || free.AllowsLeagues() {
		t.Fatalf("unexpected free plan: %+v", free)
	}
	pro := catalog.For(TierPro)
	if pro.Limit(favorite.KindTeam) != 20 || pro.Limit(favorite.KindLeague) != 5 {
		t.Fatalf("unexpected pro plan: %+v", pro)
	}
	if got := catalog.For("enterprise"); got.Tier != TierFree {
		t.Fatalf("expected unknown tier to fall back to free, got %+v", got)
	}
}

func TestParseTier(t *testing.T) {
	if tier, ok := ParseTier(" PRO "); !ok || tier != TierPro {
		t.Fatalf("unexpected tier %q %v", tier, ok)
	}
	if _, ok := ParseTier("gold"); ok {
		t.Fatalf("expected unknown tier to be rejected")
	}
}
