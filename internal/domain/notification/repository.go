package notification

import "context"

type Repository interface {
	// Create stores item unless a notification with the same user and dedup
	// key exists. It reports whether a row was written.
	Create(ctx context.Context, item Notification) (bool, error)
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID string, ids []string) (int, error)
}
