package calendar

import (
	"context"
	"time"
)

type ConnectionRepository interface {
	GetByUser(ctx context.Context, userID string) (Connection, bool, error)
	Upsert(ctx context.Context, item Connection) error
	UpdateToken(ctx context.Context, userID string, token Token) error
	MarkInvalid(ctx context.Context, userID, reason string, at time.Time) error
	// MarkReconnectNotified flips the flag and reports whether this call did
	// the flip, so only one caller emits the notification.
	MarkReconnectNotified(ctx context.Context, userID string) (bool, error)
	// ListUserIDs returns every user with a stored connection, valid or not.
	ListUserIDs(ctx context.Context) ([]string, error)
}

type SyncRecordRepository interface {
	ListByUser(ctx context.Context, userID string) ([]SyncRecord, error)
	Get(ctx context.Context, userID, fixtureID string) (SyncRecord, bool, error)
	// Create returns ErrRecordExists when the pair is already anchored.
	Create(ctx context.Context, item SyncRecord) error
	Update(ctx context.Context, item SyncRecord) error
	Delete(ctx context.Context, userID, fixtureID string) error
}
