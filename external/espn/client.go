package espn

import (
	"context"
	"fmt"
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
	"github.com/valyala/fasthttp"
)

const (
	ProviderName = "espn"

	defaultBaseURL    = "https://site.api.espn.com/apis/site/v2/sports"
	defaultTimeout    = 15 * time.Second
	defaultRetryAfter = 60 * time.Second
	maxBodySize       = 4 << 20
)

var errESPNTransient = crerr.New("espn transient failure")

// DefaultLeagues is the set of scoreboards polled when no league is given.
var DefaultLeagues = map[sport.Sport][]string{
	sport.Basketball:       {"nba"},
	sport.AmericanFootball: {"nfl"},
	sport.Football:         {"eng.1"},
	sport.IceHockey:        {"nhl"},
	sport.Baseball:         {"mlb"},
}

var sportPaths = map[sport.Sport]string{
	sport.Basketball:       "basketball",
	sport.AmericanFootball: "football",
	sport.Football:         "soccer",
	sport.IceHockey:        "hockey",
	sport.Baseball:         "baseball",
}

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	BaseURL        string
	Timeout        time.Duration
	Leagues        map[sport.Sport][]string
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads ESPN's public scoreboard feed.
type Client struct {
	httpClient *fasthttp.Client
	baseURL    string
	timeout    time.Duration
	leagues    map[sport.Sport][]string
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
	now        func() time.Time
}

var _ provider.Adapter = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                "fixture-calendar-sync",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxBodySize,
		}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	leagues := cfg.Leagues
	if len(leagues) == 0 {
		leagues = DefaultLeagues
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		timeout:    timeout,
		leagues:    leagues,
		logger:     logger.Named("espn"),
		breaker:    resilience.NewCircuitBreaker(ProviderName, cfg.CircuitBreaker).LogStateChanges(logger),
		now:        time.Now,
	}
}

func (c *Client) Name() string {
	return ProviderName
}

// FetchSchedule reads the scoreboard for a date range. leagueRef is an ESPN
// league slug such as "nba" or "eng.1".
func (c *Client) FetchSchedule(ctx context.Context, s sport.Sport, leagueRef string, from, to time.Time) ([]provider.Fixture, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: schedule window end must be after start", usecase.ErrInvalidInput)
	}
	leagues := c.leaguesFor(s, leagueRef)
	if len(leagues) == 0 {
		return nil, nil
	}

	dates := from.UTC().Format("20060102") + "-" + to.UTC().Format("20060102")
	out := make([]provider.Fixture, 0, 32)
	for _, league := range leagues {
		board, err := c.fetchScoreboard(ctx, s, league, dates)
		if err != nil {
			return nil, fmt.Errorf("fetch scoreboard sport=%s league=%s: %w", s, league, err)
		}
		for _, event := range board.Events {
			fixture, ok := mapEvent(s, league, board.leagueName(), event)
			if !ok {
				continue
			}
			if fixture.KickoffAt.Before(from) || fixture.KickoffAt.After(to) {
				continue
			}
			out = append(out, fixture)
		}
	}
	return out, nil
}

// FetchLiveScores reads today's scoreboards and keeps events in progress.
func (c *Client) FetchLiveScores(ctx context.Context, s sport.Sport) ([]provider.ScoreUpdate, error) {
	leagues := c.leaguesFor(s, "")
	if len(leagues) == 0 {
		return nil, nil
	}

	out := make([]provider.ScoreUpdate, 0, 8)
	for _, league := range leagues {
		board, err := c.fetchScoreboard(ctx, s, league, "")
		if err != nil {
			return nil, fmt.Errorf("fetch live scoreboard sport=%s league=%s: %w", s, league, err)
		}
		for _, event := range board.Events {
			if event.Status.Type.State != "in" && event.Status.Type.State != "post" {
				continue
			}
			fixture, ok := mapEvent(s, league, board.leagueName(), event)
			if !ok {
				continue
			}
			out = append(out, provider.ScoreUpdate{
				Provider:     fixture.Provider,
				ExternalID:   fixture.ExternalID,
				Sport:        fixture.Sport,
				LeagueRef:    fixture.LeagueRef,
				HomeTeamName: fixture.HomeTeamName,
				AwayTeamName: fixture.AwayTeamName,
				KickoffAt:    fixture.KickoffAt,
				Status:       fixture.Status,
				HomeScore:    fixture.HomeScore,
				AwayScore:    fixture.AwayScore,
			})
		}
	}
	return out, nil
}

func (c *Client) leaguesFor(s sport.Sport, leagueRef string) []string {
	if _, ok := sportPaths[s]; !ok {
		return nil
	}
	if ref := strings.TrimSpace(leagueRef); ref != "" {
		return []string{ref}
	}
	return c.leagues[s]
}

func (c *Client) fetchScoreboard(ctx context.Context, s sport.Sport, league, dates string) (scoreboard, error) {
	fullURL := fmt.Sprintf("%s/%s/%s/scoreboard", c.baseURL, sportPaths[s], league)
	if dates != "" {
		fullURL += "?dates=" + dates
	}

	var out scoreboard
	raw, err := c.get(ctx, fullURL)
	if err != nil {
		return out, err
	}
	if len(raw) > 0 && raw[0] == '<' {
		return out, fmt.Errorf("%w: espn returned html body=%s", errESPNTransient, abbreviateBody(raw))
	}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode scoreboard: %w", err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	var raw []byte
	err := c.breaker.Execute(func() (err error) {
		raw, err = c.execute(ctx, fullURL)
		return err
	}, isESPNTransient)
	if crerr.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "espn circuit breaker rejected request", "url", fullURL)
		return nil, fmt.Errorf("%w: espn circuit open", usecase.ErrProviderUnavailable)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "espn request failed", "url", fullURL, "error", err)
	}
	return raw, err
}

func (c *Client) execute(ctx context.Context, fullURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	deadline := c.now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		return nil, crerr.Wrap(errESPNTransient, "send request: "+err.Error())
	}

	status := resp.StatusCode()
	switch {
	case status >= 200 && status < 300:
		body := resp.Body()
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	case status == fasthttp.StatusTooManyRequests:
		return nil, &usecase.RateLimitedError{
			Provider:   ProviderName,
			RetryAfter: parseRetryAfter(string(resp.Header.Peek("Retry-After"))),
		}
	case status >= 500:
		return nil, fmt.Errorf("%w: provider status=%d body=%s", errESPNTransient, status, abbreviateBody(resp.Body()))
	default:
		return nil, fmt.Errorf("provider status=%d body=%s", status, abbreviateBody(resp.Body()))
	}
}

func mapEvent(s sport.Sport, league, leagueName string, event scoreboardEvent) (provider.Fixture, bool) {
	if strings.TrimSpace(event.ID) == "" || len(event.Competitions) == 0 {
		return provider.Fixture{}, false
	}
	kickoff, ok := parseEventDate(event.Date)
	if !ok {
		return provider.Fixture{}, false
	}

	comp := event.Competitions[0]
	var home, away *competitor
	for i := range comp.Competitors {
		switch strings.ToLower(comp.Competitors[i].HomeAway) {
		case "home":
			home = &comp.Competitors[i]
		case "away":
			away = &comp.Competitors[i]
		}
	}
	if home == nil || away == nil {
		return provider.Fixture{}, false
	}

	out := provider.Fixture{
		Provider:     ProviderName,
		ExternalID:   strings.TrimSpace(event.ID),
		Sport:        s,
		LeagueRef:    league,
		LeagueName:   leagueName,
		HomeTeamName: home.Team.name(),
		AwayTeamName: away.Team.name(),
		KickoffAt:    kickoff,
		Venue:        strings.TrimSpace(comp.Venue.FullName),
		Status:       statusCode(event.Status.Type),
	}
	if out.HomeTeamName == "" || out.AwayTeamName == "" {
		return provider.Fixture{}, false
	}
	if event.Status.Type.State != "pre" {
		out.HomeScore = parseScore(home.Score)
		out.AwayScore = parseScore(away.Score)
	}
	return out, true
}

// statusCode prefers the STATUS_* name and falls back to the coarse state.
func statusCode(t statusType) string {
	if name := strings.ToUpper(strings.TrimSpace(t.Name)); name != "" {
		return name
	}
	switch t.State {
	case "in":
		return "LIVE"
	case "post":
		if t.Completed {
			return "FINISHED"
		}
		return "POSTPONED"
	default:
		return "SCHEDULED"
	}
}

func parseEventDate(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00", "2006-01-02T15:04Z"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseScore(raw string) *int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return nil
	}
	return &value
}

func parseRetryAfter(raw string) time.Duration {
	if seconds, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultRetryAfter
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 200 {
		return text
	}
	return text[:200] + "..."
}

type scoreboard struct {
	Leagues []struct {
		Name         string `json:"name"`
		Abbreviation string `json:"abbreviation"`
	} `json:"leagues"`
	Events []scoreboardEvent `json:"events"`
}

func (b scoreboard) leagueName() string {
	if len(b.Leagues) == 0 {
		return ""
	}
	return strings.TrimSpace(b.Leagues[0].Name)
}

type scoreboardEvent struct {
	ID           string        `json:"id"`
	Date         string        `json:"date"`
	Name         string        `json:"name"`
	Status       eventStatus   `json:"status"`
	Competitions []competition `json:"competitions"`
}

type eventStatus struct {
	Period int        `json:"period"`
	Type   statusType `json:"type"`
}

type statusType struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Completed bool   `json:"completed"`
}

type competition struct {
	Venue struct {
		FullName string `json:"fullName"`
	} `json:"venue"`
	Competitors []competitor `json:"competitors"`
}

type competitor struct {
	HomeAway string `json:"homeAway"`
	Score    string `json:"score"`
	Team     team   `json:"team"`
}

type team struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ShortDisplayName string `json:"shortDisplayName"`
	Abbreviation     string `json:"abbreviation"`
}

func (t team) name() string {
	for _, candidate := range []string{t.DisplayName, t.ShortDisplayName, t.Abbreviation} {
		if value := strings.TrimSpace(candidate); value != "" {
			return value
		}
	}
	return ""
}

func isESPNTransient(err error) bool {
	return crerr.Is(err, errESPNTransient)
}
