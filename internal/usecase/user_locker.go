package usecase

import "context"

// UserLocker serializes work for one key across workers (and instances, when
// backed by Redis). The returned func releases the lock.
type UserLocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

func favoritesLockKey(userID string) string {
	return "favorites:" + userID
}

func syncLockKey(userID string) string {
	return "sync:" + userID
}
