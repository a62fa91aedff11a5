package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/plan"
)

type PlanRepository struct {
	mu    sync.RWMutex
	tiers map[string]plan.Tier
}

func NewPlanRepository(tiers map[string]plan.Tier) *PlanRepository {
	items := make(map[string]plan.Tier, len(tiers))
	for userID, tier := range tiers {
		items[userID] = tier
	}
	return &PlanRepository{tiers: items}
}

func (r *PlanRepository) TierForUser(_ context.Context, userID string) (plan.Tier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if tier, ok := r.tiers[userID]; ok {
		return tier, nil
	}
	return plan.TierFree, nil
}

func (r *PlanRepository) SetTier(userID string, tier plan.Tier) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tiers[userID] = tier
}
