package calendar

import (
	"context"
	"errors"
)

// ErrEventGone is returned by UpdateEvent when the remote event was deleted
// outside the engine.
var ErrEventGone = errors.New("calendar event gone")

// Gateway is the external calendar API. Event ids returned by CreateEvent are
// stable for the same Event.Key.
type Gateway interface {
	FindEventsByKey(ctx context.Context, cred Credentials, key string) ([]string, error)
	CreateEvent(ctx context.Context, cred Credentials, event Event) (string, error)
	UpdateEvent(ctx context.Context, cred Credentials, eventID string, event Event) error
	DeleteEvent(ctx context.Context, cred Credentials, eventID string) error
}

// TokenRefresher exchanges a refresh token for a new access token.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (Token, error)
}
