package calendar

import (
	"strings"
	"time"
)

type ConnectionStatus string

const (
	ConnectionActive  ConnectionStatus = "active"
	ConnectionInvalid ConnectionStatus = "invalid"
)

const ProviderGoogle = "google"

// Token is the OAuth2 credential pair persisted per user.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Expired reports whether the access token is unusable at now, keeping a
// small skew so a token does not expire mid-request.
func (t Token) Expired(now time.Time) bool {
	if strings.TrimSpace(t.AccessToken) == "" {
		return true
	}
	if t.Expiry.IsZero() {
		return false
	}
	return !now.Add(30 * time.Second).Before(t.Expiry)
}

// Connection is a user's link to an external calendar account.
type Connection struct {
	UserID            string
	Provider          string
	CalendarID        string
	Token             Token
	Status            ConnectionStatus
	InvalidReason     string
	InvalidatedAt     *time.Time
	ReconnectNotified bool
	UpdatedAt         time.Time
}

func (c Connection) Active() bool {
	return c.Status == ConnectionActive
}

// Credentials are what a gateway call needs.
type Credentials struct {
	CalendarID  string
	AccessToken string
}

func (c Connection) Credentials() Credentials {
	calendarID := c.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	return Credentials{CalendarID: calendarID, AccessToken: c.Token.AccessToken}
}
