package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/calendar"
)

type SyncRecordRepository struct {
	mu     sync.RWMutex
	byUser map[string]map[string]calendar.SyncRecord
}

func NewSyncRecordRepository() *SyncRecordRepository {
	return &SyncRecordRepository{byUser: make(map[string]map[string]calendar.SyncRecord)}
}

func (r *SyncRecordRepository) ListByUser(_ context.Context, userID string) ([]calendar.SyncRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.byUser[userID]
	out := make([]calendar.SyncRecord, 0, len(rows))
	for _, item := range rows {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FixtureID < out[j].FixtureID })
	return out, nil
}

func (r *SyncRecordRepository) Get(_ context.Context, userID, fixtureID string) (calendar.SyncRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byUser[userID][fixtureID]
	return item, ok, nil
}

func (r *SyncRecordRepository) Create(_ context.Context, item calendar.SyncRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, ok := r.byUser[item.UserID]
	if !ok {
		rows = make(map[string]calendar.SyncRecord)
		r.byUser[item.UserID] = rows
	}
	if _, exists := rows[item.FixtureID]; exists {
		return fmt.Errorf("%w: user=%s fixture=%s", calendar.ErrRecordExists, item.UserID, item.FixtureID)
	}
	rows[item.FixtureID] = item
	return nil
}

func (r *SyncRecordRepository) Update(_ context.Context, item calendar.SyncRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.byUser[item.UserID]
	if _, exists := rows[item.FixtureID]; !exists {
		return fmt.Errorf("sync record user=%s fixture=%s not found", item.UserID, item.FixtureID)
	}
	rows[item.FixtureID] = item
	return nil
}

func (r *SyncRecordRepository) Delete(_ context.Context, userID, fixtureID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.byUser[userID]
	delete(rows, fixtureID)
	if len(rows) == 0 {
		delete(r.byUser, userID)
	}
	return nil
}
