package plan

import "context"

// Repository reads the billing-owned tier of a user. Users without a
// subscription row are on the free tier.
type Repository interface {
	TierForUser(ctx context.Context, userID string) (Tier, error)
}
