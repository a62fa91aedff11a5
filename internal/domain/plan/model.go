package plan

import (
	"strings"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/favorite"
)

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

func ParseTier(value string) (Tier, bool) {
	switch Tier(strings.ToLower(strings.TrimSpace(value))) {
	case TierFree:
		return TierFree, true
	case TierPro:
		return TierPro, true
	default:
		return "", false
	}
}

// Plan holds the favorite quota for one tier.
type Plan struct {
	Tier               Tier
	MaxFavoriteTeams   int
	MaxFavoriteLeagues int
}

func (p Plan) Limit(kind favorite.Kind) int {
	switch kind {
	case favorite.KindTeam:
		return p.MaxFavoriteTeams
	case favorite.KindLeague:
		return p.MaxFavoriteLeagues
	default:
		return 0
	}
}

func (p Plan) AllowsLeagues() bool {
	return p.MaxFavoriteLeagues > 0
}

// Catalog maps tiers to plans. Unknown tiers fall back to free.
type Catalog map[Tier]Plan

func DefaultCatalog() Catalog {
	return Catalog{
		TierFree: {Tier: TierFree, MaxFavoriteTeams: 2, MaxFavoriteLeagues: 0},
		TierPro:  {Tier: TierPro, MaxFavoriteTeams: 20, MaxFavoriteLeagues: 5},
	}
}

func (c Catalog) For(tier Tier) Plan {
	if p, ok := c[tier]; ok {
		return p
	}
	if p, ok := c[TierFree]; ok {
		return p
	}
	return Plan{Tier: TierFree}
}
