// Package sportmonks adapts the SportMonks v3 football API to
// provider.Adapter.
package sportmonks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/provider"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/resilience"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
)

const (
	ProviderName = "sportmonks"

	defaultBaseURL    = "https://api.sportmonks.com/v3/football"
	fixtureIncludes   = "participants;scores;venue;state;league"
	pageSize          = 50
	maxPages          = 20
	maxBodyBytes      = 6 << 20
	defaultTimeout    = 20 * time.Second
	defaultRetryAfter = 60 * time.Second
)

var (
	errSportMonksTransient = crerr.New("sportmonks transient failure")
	apiTokenParam          = regexp.MustCompile(`api_token=[^&\s"']+`)
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	maxRetries int
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
	flight     resilience.SingleFlight
}

var _ provider.Adapter = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		maxRetries: max(cfg.MaxRetries, 0),
		logger:     logger.Named(ProviderName),
		breaker:    resilience.NewCircuitBreaker(ProviderName, cfg.CircuitBreaker).LogStateChanges(logger),
	}
}

func (c *Client) Name() string { return ProviderName }

// FetchSchedule pages through fixtures/between for the window. leagueRef is a
// SportMonks league id; empty means every subscribed league. Other sports
// return nothing.
func (c *Client) FetchSchedule(ctx context.Context, s sport.Sport, leagueRef string, from, to time.Time) ([]provider.Fixture, error) {
	if s != sport.Football {
		return nil, nil
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%w: schedule window end must be after start", usecase.ErrInvalidInput)
	}

	path := "/fixtures/between/" + from.UTC().Format(time.DateOnly) + "/" + to.UTC().Format(time.DateOnly)
	query := url.Values{"include": {fixtureIncludes}, "per_page": {strconv.Itoa(pageSize)}}
	if ref := strings.TrimSpace(leagueRef); ref != "" {
		query.Set("filters", "fixtureLeagues:"+ref)
	}

	var out []provider.Fixture
	for page := 1; page <= maxPages; page++ {
		query.Set("page", strconv.Itoa(page))
		var body fixturePage
		if err := c.getJSON(ctx, path, query, &body); err != nil {
			return nil, fmt.Errorf("fetch schedule page %d: %w", page, err)
		}
		for _, item := range body.Data {
			if f, ok := item.toFixture(); ok && !f.KickoffAt.Before(from) && !f.KickoffAt.After(to) {
				out = append(out, f)
			}
		}
		if !body.Pagination.HasMore {
			break
		}
	}
	return out, nil
}

func (c *Client) FetchLiveScores(ctx context.Context, s sport.Sport) ([]provider.ScoreUpdate, error) {
	if s != sport.Football {
		return nil, nil
	}

	var body fixturePage
	if err := c.getJSON(ctx, "/livescores/inplay", url.Values{"include": {fixtureIncludes}}, &body); err != nil {
		return nil, fmt.Errorf("fetch livescores: %w", err)
	}

	out := make([]provider.ScoreUpdate, 0, len(body.Data))
	for _, item := range body.Data {
		f, ok := item.toFixture()
		if !ok {
			continue
		}
		out = append(out, provider.ScoreUpdate{
			Provider:     f.Provider,
			ExternalID:   f.ExternalID,
			Sport:        f.Sport,
			LeagueRef:    f.LeagueRef,
			HomeTeamName: f.HomeTeamName,
			AwayTeamName: f.AwayTeamName,
			KickoffAt:    f.KickoffAt,
			Status:       f.Status,
			HomeScore:    f.HomeScore,
			AwayScore:    f.AwayScore,
		})
	}
	return out, nil
}

// getJSON decodes one API response into target. Identical concurrent
// requests share a single upstream call.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, target any) error {
	query = cloneValues(query)
	query.Set("api_token", c.token)
	fullURL := c.baseURL + path + "?" + query.Encode()

	shared, err, _ := c.flight.Do(fullURL, func() (any, error) {
		var raw []byte
		err := c.breaker.Execute(func() (err error) {
			raw, err = c.fetch(ctx, fullURL)
			return err
		}, isSportMonksCircuitFailure)
		return raw, err
	})
	if crerr.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "sportmonks circuit breaker rejected request", "path", path)
		return fmt.Errorf("%w: sportmonks circuit open", usecase.ErrProviderUnavailable)
	}
	if err != nil {
		return err
	}

	raw, _ := shared.([]byte)
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode sportmonks payload: %w", err)
	}
	return nil
}

// fetch retries network errors and 5xx with a linear backoff. 429 is
// returned at once as a RateLimitedError so the gateway can cool down.
func (c *Client) fetch(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, time.Duration(attempt)*time.Second); err != nil {
				return nil, err
			}
		}

		raw, retry, err := c.roundTrip(ctx, fullURL)
		if err == nil || !retry {
			return raw, err
		}
		lastErr = err
	}

	c.logger.WarnContext(ctx, "sportmonks request failed", "url", redactURL(fullURL), "error", lastErr)
	return nil, lastErr
}

func (c *Client) roundTrip(ctx context.Context, fullURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %s", errSportMonksTransient, redactText(err.Error(), c.token))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	switch {
	case err != nil:
		return nil, true, fmt.Errorf("%w: read body: %v", errSportMonksTransient, err)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, false, &usecase.RateLimitedError{
			Provider:   ProviderName,
			RetryAfter: retryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("%w: status=%d body=%s", errSportMonksTransient, resp.StatusCode, snippet(raw))
	case resp.StatusCode >= http.StatusMultipleChoices:
		return nil, false, fmt.Errorf("sportmonks status=%d body=%s", resp.StatusCode, snippet(raw))
	}
	return raw, false, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryAfter reads delta-seconds or an HTTP date, defaulting to a minute.
func retryAfter(raw string, now time.Time) time.Duration {
	raw = strings.TrimSpace(raw)
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return defaultRetryAfter
}

func isSportMonksCircuitFailure(err error) bool {
	return crerr.Is(err, errSportMonksTransient)
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for key, values := range v {
		out[key] = append([]string(nil), values...)
	}
	return out
}

// redactText removes the API token from transport error text, which
// usually embeds the request URL.
func redactText(text, token string) string {
	if token != "" {
		text = strings.ReplaceAll(text, token, "REDACTED")
	}
	return apiTokenParam.ReplaceAllString(text, "api_token=REDACTED")
}

func redactURL(raw string) string {
	return apiTokenParam.ReplaceAllString(raw, "api_token=REDACTED")
}

func snippet(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 240 {
		return text[:240] + "..."
	}
	return text
}
