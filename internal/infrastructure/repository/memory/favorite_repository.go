package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/favorite"
)

type favoriteKey struct {
	kind     favorite.Kind
	targetID string
}

type FavoriteRepository struct {
	mu     sync.RWMutex
	byUser map[string]map[favoriteKey]favorite.Favorite
}

func NewFavoriteRepository() *FavoriteRepository {
	return &FavoriteRepository{byUser: make(map[string]map[favoriteKey]favorite.Favorite)}
}

func (r *FavoriteRepository) ListByUser(_ context.Context, userID string) ([]favorite.Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.byUser[userID]
	out := make([]favorite.Favorite, 0, len(rows))
	for _, item := range rows {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind > out[j].Kind
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out, nil
}

func (r *FavoriteRepository) Exists(_ context.Context, userID string, kind favorite.Kind, targetID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byUser[userID][favoriteKey{kind: kind, targetID: targetID}]
	return ok, nil
}

func (r *FavoriteRepository) Count(_ context.Context, userID string, kind favorite.Kind) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for key := range r.byUser[userID] {
		if key.kind == kind {
			count++
		}
	}
	return count, nil
}

func (r *FavoriteRepository) Add(_ context.Context, item favorite.Favorite) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, ok := r.byUser[item.UserID]
	if !ok {
		rows = make(map[favoriteKey]favorite.Favorite)
		r.byUser[item.UserID] = rows
	}
	key := favoriteKey{kind: item.Kind, targetID: item.TargetID}
	if _, exists := rows[key]; exists {
		return false, nil
	}
	rows[key] = item
	return true, nil
}

func (r *FavoriteRepository) Remove(_ context.Context, userID string, kind favorite.Kind, targetID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.byUser[userID]
	key := favoriteKey{kind: kind, targetID: targetID}
	if _, exists := rows[key]; !exists {
		return false, nil
	}
	delete(rows, key)
	if len(rows) == 0 {
		delete(r.byUser, userID)
	}
	return true, nil
}

func (r *FavoriteRepository) ListUserIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out, nil
}
