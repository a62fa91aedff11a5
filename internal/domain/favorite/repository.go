package favorite

import "context"

// Repository persists favorites. Add and Remove report whether state changed.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]Favorite, error)
	Exists(ctx context.Context, userID string, kind Kind, targetID string) (bool, error)
	Count(ctx context.Context, userID string, kind Kind) (int, error)
	Add(ctx context.Context, item Favorite) (bool, error)
	Remove(ctx context.Context, userID string, kind Kind, targetID string) (bool, error)
	// ListUserIDs returns every user holding at least one favorite.
	ListUserIDs(ctx context.Context) ([]string, error)
}
