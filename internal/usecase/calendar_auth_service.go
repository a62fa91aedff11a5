package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/calendar"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/resilience"
)

type ReconnectInput struct {
	Provider     string
	CalendarID   string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// CalendarAuthService owns the OAuth token lifecycle of calendar connections.
type CalendarAuthService struct {
	connections calendar.ConnectionRepository
	refresher   calendar.TokenRefresher
	notifier    *NotificationEmitter
	flight      resilience.SingleFlight
	logger      *logging.Logger
	now         func() time.Time
}

func NewCalendarAuthService(
	connections calendar.ConnectionRepository,
	refresher calendar.TokenRefresher,
	notifier *NotificationEmitter,
	logger *logging.Logger,
) *CalendarAuthService {
	if logger == nil {
		logger = logging.Default()
	}
	return &CalendarAuthService{
		connections: connections,
		refresher:   refresher,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *CalendarAuthService) Connection(ctx context.Context, userID string) (calendar.Connection, error) {
	conn, found, err := s.connections.GetByUser(ctx, userID)
	if err != nil {
		return calendar.Connection{}, fmt.Errorf("get calendar connection user=%s: %w", userID, err)
	}
	if !found {
		return calendar.Connection{}, fmt.Errorf("%w: user=%s", ErrCalendarNotConnected, userID)
	}
	return conn, nil
}

// AccessToken returns usable credentials, refreshing an expired token first.
func (s *CalendarAuthService) AccessToken(ctx context.Context, userID string) (calendar.Credentials, error) {
	conn, err := s.Connection(ctx, userID)
	if err != nil {
		return calendar.Credentials{}, err
	}
	if !conn.Active() {
		return calendar.Credentials{}, fmt.Errorf("%w: user=%s connection invalid", ErrCalendarAuthExpired, userID)
	}
	if conn.Token.Expired(s.now()) {
		return s.Refresh(ctx, userID, conn.Token.AccessToken)
	}
	return conn.Credentials(), nil
}

// Refresh exchanges the stored refresh token. Concurrent callers for the same
// user share one exchange; a caller holding an already replaced token gets the
// new one without another exchange.
func (s *CalendarAuthService) Refresh(ctx context.Context, userID, staleAccessToken string) (calendar.Credentials, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CalendarAuthService.Refresh", attrUserID.String(userID))
	defer span.End()

	value, err, shared := s.flight.DoContext(ctx, "calendar-refresh:"+userID, func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), userID, staleAccessToken)
	})
	if err != nil {
		return calendar.Credentials{}, err
	}
	if shared {
		s.logger.DebugContext(ctx, "calendar token refresh shared", "user_id", userID)
	}
	return value.(calendar.Credentials), nil
}

func (s *CalendarAuthService) refresh(ctx context.Context, userID, staleAccessToken string) (calendar.Credentials, error) {
	conn, err := s.Connection(ctx, userID)
	if err != nil {
		return calendar.Credentials{}, err
	}
	if !conn.Active() {
		return calendar.Credentials{}, fmt.Errorf("%w: user=%s connection invalid", ErrCalendarAuthExpired, userID)
	}
	now := s.now()
	if conn.Token.AccessToken != staleAccessToken && !conn.Token.Expired(now) {
		return conn.Credentials(), nil
	}
	if strings.TrimSpace(conn.Token.RefreshToken) == "" {
		cause := errors.New("no refresh token stored")
		s.Invalidate(ctx, userID, cause)
		return calendar.Credentials{}, fmt.Errorf("%w: user=%s: %v", ErrCalendarAuthExpired, userID, cause)
	}

	token, err := s.refresher.RefreshToken(ctx, conn.Token.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrCalendarTransient) {
			return calendar.Credentials{}, fmt.Errorf("refresh calendar token user=%s: %w", userID, err)
		}
		s.Invalidate(ctx, userID, err)
		return calendar.Credentials{}, fmt.Errorf("%w: user=%s refresh failed: %v", ErrCalendarAuthExpired, userID, err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = conn.Token.RefreshToken
	}
	if err := s.connections.UpdateToken(ctx, userID, token); err != nil {
		return calendar.Credentials{}, fmt.Errorf("store refreshed token user=%s: %w", userID, err)
	}

	conn.Token = token
	s.logger.InfoContext(ctx, "calendar token refreshed", "user_id", userID, "expiry", token.Expiry)
	return conn.Credentials(), nil
}

// Invalidate pauses sync for the user and emits the reconnect notification
// once per invalidation.
func (s *CalendarAuthService) Invalidate(ctx context.Context, userID string, cause error) {
	now := s.now().UTC()
	reason := "authorization rejected"
	if cause != nil {
		reason = cause.Error()
	}

	if err := s.connections.MarkInvalid(ctx, userID, reason, now); err != nil {
		s.logger.ErrorContext(ctx, "mark calendar connection invalid failed", "user_id", userID, "error", err)
		return
	}
	s.logger.WarnContext(ctx, "calendar connection invalidated, sync paused", "user_id", userID, "reason", reason)

	flipped, err := s.connections.MarkReconnectNotified(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "mark reconnect notified failed", "user_id", userID, "error", err)
		return
	}
	if !flipped || s.notifier == nil {
		return
	}

	invalidatedAt := now
	if conn, found, err := s.connections.GetByUser(ctx, userID); err == nil && found && conn.InvalidatedAt != nil {
		invalidatedAt = *conn.InvalidatedAt
	}
	if _, err := s.notifier.ReconnectRequired(ctx, userID, invalidatedAt); err != nil {
		s.logger.ErrorContext(ctx, "emit reconnect notification failed", "user_id", userID, "error", err)
	}
}

// Reconnect stores fresh credentials and resumes sync for the user.
func (s *CalendarAuthService) Reconnect(ctx context.Context, userID string, input ReconnectInput) (calendar.Connection, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CalendarAuthService.Reconnect", attrUserID.String(userID))
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return calendar.Connection{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.AccessToken) == "" && strings.TrimSpace(input.RefreshToken) == "" {
		return calendar.Connection{}, fmt.Errorf("%w: access token or refresh token is required", ErrInvalidInput)
	}
	providerName := strings.ToLower(strings.TrimSpace(input.Provider))
	if providerName == "" {
		providerName = calendar.ProviderGoogle
	}
	if providerName != calendar.ProviderGoogle {
		return calendar.Connection{}, fmt.Errorf("%w: calendar provider %q is not supported", ErrInvalidInput, input.Provider)
	}

	conn := calendar.Connection{
		UserID:     userID,
		Provider:   providerName,
		CalendarID: strings.TrimSpace(input.CalendarID),
		Token: calendar.Token{
			AccessToken:  strings.TrimSpace(input.AccessToken),
			RefreshToken: strings.TrimSpace(input.RefreshToken),
			Expiry:       input.Expiry.UTC(),
		},
		Status:    calendar.ConnectionActive,
		UpdatedAt: s.now().UTC(),
	}
	if conn.CalendarID == "" {
		conn.CalendarID = "primary"
	}
	if err := s.connections.Upsert(ctx, conn); err != nil {
		return calendar.Connection{}, fmt.Errorf("store calendar connection user=%s: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "calendar connection activated", "user_id", userID, "provider", providerName)
	return conn, nil
}
