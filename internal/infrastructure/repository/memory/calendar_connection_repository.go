package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/calendar"
)

type CalendarConnectionRepository struct {
	mu    sync.RWMutex
	items map[string]calendar.Connection
}

func NewCalendarConnectionRepository() *CalendarConnectionRepository {
	return &CalendarConnectionRepository{items: make(map[string]calendar.Connection)}
}

func (r *CalendarConnectionRepository) GetByUser(_ context.Context, userID string) (calendar.Connection, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[userID]
	return cloneConnection(item), ok, nil
}

func (r *CalendarConnectionRepository) Upsert(_ context.Context, item calendar.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.UserID] = cloneConnection(item)
	return nil
}

func (r *CalendarConnectionRepository) UpdateToken(_ context.Context, userID string, token calendar.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[userID]
	if !ok {
		return fmt.Errorf("calendar connection for user=%s not found", userID)
	}
	item.Token = token
	r.items[userID] = item
	return nil
}

func (r *CalendarConnectionRepository) MarkInvalid(_ context.Context, userID, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[userID]
	if !ok {
		return fmt.Errorf("calendar connection for user=%s not found", userID)
	}
	if item.Status == calendar.ConnectionInvalid {
		return nil
	}
	item.Status = calendar.ConnectionInvalid
	item.InvalidReason = reason
	invalidatedAt := at
	item.InvalidatedAt = &invalidatedAt
	item.UpdatedAt = at
	r.items[userID] = item
	return nil
}

func (r *CalendarConnectionRepository) MarkReconnectNotified(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[userID]
	if !ok || item.ReconnectNotified {
		return false, nil
	}
	item.ReconnectNotified = true
	r.items[userID] = item
	return true, nil
}

func (r *CalendarConnectionRepository) ListUserIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.items))
	for userID := range r.items {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out, nil
}

func cloneConnection(item calendar.Connection) calendar.Connection {
	if item.InvalidatedAt != nil {
		at := *item.InvalidatedAt
		item.InvalidatedAt = &at
	}
	return item
}
