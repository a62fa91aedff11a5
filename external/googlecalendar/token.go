package googlecalendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/calendar"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

const (
	defaultAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	calendarScope   = "https://www.googleapis.com/auth/calendar.events"
)

type TokenRefresherConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	HTTPClient   *http.Client
	Timeout      time.Duration
	Logger       *logging.Logger
}

// TokenRefresher exchanges stored refresh tokens through the OAuth2 token
// endpoint.
type TokenRefresher struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	timeout    time.Duration
	logger     *logging.Logger
}

var _ calendar.TokenRefresher = (*TokenRefresher)(nil)

func NewTokenRefresher(cfg TokenRefresherConfig) *TokenRefresher {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	return &TokenRefresher{
		oauth: &oauth2.Config{
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: strings.TrimSpace(cfg.ClientSecret),
			Endpoint: oauth2.Endpoint{
				AuthURL:   defaultAuthURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{calendarScope},
		},
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logger.Named("googlecalendar.token"),
	}
}

// RefreshToken returns a new access token. A rejected grant is permanent; a
// network failure or 5xx from the token endpoint is ErrCalendarTransient.
func (r *TokenRefresher) RefreshToken(ctx context.Context, refreshToken string) (calendar.Token, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return calendar.Token{}, fmt.Errorf("refresh token is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)

	source := r.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < http.StatusInternalServerError {
			r.logger.WarnContext(ctx, "refresh token rejected", "status", retrieveErr.Response.StatusCode, "error_code", retrieveErr.ErrorCode)
			return calendar.Token{}, fmt.Errorf("refresh token rejected: status=%d code=%s", retrieveErr.Response.StatusCode, retrieveErr.ErrorCode)
		}
		return calendar.Token{}, fmt.Errorf("%w: refresh token: %v", usecase.ErrCalendarTransient, err)
	}

	return calendar.Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry.UTC(),
	}, nil
}
