package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/notification"
)

type NotificationRepository struct {
	mu      sync.RWMutex
	byUser  map[string][]notification.Notification
	dedupes map[string]struct{}
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{
		byUser:  make(map[string][]notification.Notification),
		dedupes: make(map[string]struct{}),
	}
}

func (r *NotificationRepository) Create(_ context.Context, item notification.Notification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.DedupKey != "" {
		key := item.UserID + "|" + item.DedupKey
		if _, exists := r.dedupes[key]; exists {
			return false, nil
		}
		r.dedupes[key] = struct{}{}
	}
	item.FixtureIDs = append([]string(nil), item.FixtureIDs...)
	r.byUser[item.UserID] = append(r.byUser[item.UserID], item)
	return true, nil
}

func (r *NotificationRepository) ListByUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]notification.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.byUser[userID]
	out := make([]notification.Notification, 0, len(rows))
	for _, item := range rows {
		if unreadOnly && item.Read {
			continue
		}
		item.FixtureIDs = append([]string(nil), item.FixtureIDs...)
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, userID string, ids []string) (int, error) {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	updated := 0
	rows := r.byUser[userID]
	for idx := range rows {
		if _, ok := wanted[rows[idx].ID]; !ok || rows[idx].Read {
			continue
		}
		rows[idx].Read = true
		updated++
	}
	return updated, nil
}
