package googlecalendar

import (
	"bytes"
	"context"
	"encoding/base32"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/calendar"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/resilience"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL = "https://www.googleapis.com/calendar/v3"
	defaultTimeout = 10 * time.Second

	// fixtureIDProperty is the private extended property carrying Event.Key.
	fixtureIDProperty = "fixtureId"

	eventStatusConfirmed = "confirmed"
	eventStatusCancelled = "cancelled"
)

var defaultBackoff = []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}

var errCalendarTransient = crerr.New("google calendar transient failure")

var eventIDEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	Backoff        []time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client implements calendar.Gateway over the Google Calendar v3 REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	backoff    []time.Duration
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
}

var _ calendar.Gateway = (*Client)(nil)

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
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = defaultBackoff
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		timeout:    timeout,
		backoff:    backoff,
		logger:     logger.Named("googlecalendar"),
		breaker:    resilience.NewCircuitBreaker("google_calendar", cfg.CircuitBreaker).LogStateChanges(logger),
	}
}

// EventID derives the remote event id from the fixture key. Google accepts
// lowercase base32hex ids, so inserting the same key twice collides remotely.
func EventID(key string) string {
	return strings.ToLower(eventIDEncoding.EncodeToString([]byte(strings.TrimSpace(key))))
}

func (c *Client) FindEventsByKey(ctx context.Context, cred calendar.Credentials, key string) ([]string, error) {
	query := url.Values{}
	query.Set("privateExtendedProperty", fixtureIDProperty+"="+key)
	query.Set("showDeleted", "true")
	query.Set("maxResults", "10")

	status, raw, err := c.do(ctx, cred, http.MethodGet, c.eventsURL(cred.CalendarID, "")+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if err := c.classify(status, raw); err != nil {
		return nil, fmt.Errorf("find events key=%s: %w", key, err)
	}

	var list eventList
	if err := sonic.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode event list: %w", err)
	}
	ids := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		// Cancelled events keep their id and are revived by CreateEvent.
		if item.Status == eventStatusCancelled {
			continue
		}
		ids = append(ids, item.ID)
	}
	return ids, nil
}

func (c *Client) CreateEvent(ctx context.Context, cred calendar.Credentials, event calendar.Event) (string, error) {
	eventID := EventID(event.Key)
	body, err := sonic.Marshal(toResource(eventID, event))
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}

	status, raw, err := c.do(ctx, cred, http.MethodPost, c.eventsURL(cred.CalendarID, ""), body)
	if err != nil {
		return "", err
	}
	if status == http.StatusConflict {
		return eventID, c.reviveIfCancelled(ctx, cred, eventID, event)
	}
	if err := c.classify(status, raw); err != nil {
		return "", fmt.Errorf("create event key=%s: %w", event.Key, err)
	}

	var created eventResource
	if err := sonic.Unmarshal(raw, &created); err == nil && created.ID != "" {
		return created.ID, nil
	}
	return eventID, nil
}

// reviveIfCancelled handles an insert that collided with the deterministic id.
// Deleted events keep their id with status cancelled, so they are restored
// with the new body instead of being treated as present.
func (c *Client) reviveIfCancelled(ctx context.Context, cred calendar.Credentials, eventID string, event calendar.Event) error {
	existing, err := c.getEvent(ctx, cred, eventID)
	if err != nil {
		return fmt.Errorf("create event key=%s: %w", event.Key, err)
	}
	if existing.Status != eventStatusCancelled {
		c.logger.InfoContext(ctx, "calendar event already exists", "event_id", eventID, "key", event.Key)
		return nil
	}
	c.logger.InfoContext(ctx, "reviving cancelled calendar event", "event_id", eventID, "key", event.Key)
	if err := c.UpdateEvent(ctx, cred, eventID, event); err != nil {
		return fmt.Errorf("revive event key=%s: %w", event.Key, err)
	}
	return nil
}

func (c *Client) getEvent(ctx context.Context, cred calendar.Credentials, eventID string) (eventResource, error) {
	status, raw, err := c.do(ctx, cred, http.MethodGet, c.eventsURL(cred.CalendarID, eventID), nil)
	if err != nil {
		return eventResource{}, err
	}
	if err := c.classify(status, raw); err != nil {
		return eventResource{}, fmt.Errorf("get event id=%s: %w", eventID, err)
	}
	var out eventResource
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return eventResource{}, fmt.Errorf("decode event: %w", err)
	}
	return out, nil
}

// UpdateEvent always sends status confirmed, which also restores an event
// the user deleted on the calendar side.
func (c *Client) UpdateEvent(ctx context.Context, cred calendar.Credentials, eventID string, event calendar.Event) error {
	body, err := sonic.Marshal(toResource(eventID, event))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	status, raw, err := c.do(ctx, cred, http.MethodPut, c.eventsURL(cred.CalendarID, eventID), body)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound || status == http.StatusGone {
		return fmt.Errorf("update event id=%s: %w", eventID, calendar.ErrEventGone)
	}
	if err := c.classify(status, raw); err != nil {
		return fmt.Errorf("update event id=%s: %w", eventID, err)
	}
	return nil
}

func (c *Client) DeleteEvent(ctx context.Context, cred calendar.Credentials, eventID string) error {
	status, raw, err := c.do(ctx, cred, http.MethodDelete, c.eventsURL(cred.CalendarID, eventID), nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound || status == http.StatusGone {
		return nil
	}
	if err := c.classify(status, raw); err != nil {
		return fmt.Errorf("delete event id=%s: %w", eventID, err)
	}
	return nil
}

func (c *Client) eventsURL(calendarID, eventID string) string {
	out := c.baseURL + "/calendars/" + url.PathEscape(calendarID) + "/events"
	if eventID != "" {
		out += "/" + url.PathEscape(eventID)
	}
	return out
}

// classify maps a non-transient response onto the calendar error taxonomy.
func (c *Client) classify(status int, raw []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: status=%d", usecase.ErrCalendarAuthExpired, status)
	default:
		return fmt.Errorf("%w: status=%d body=%s", usecase.ErrCalendarRejected, status, abbreviateBody(raw))
	}
}

// do sends the request, retrying network errors, 429 and 5xx with the
// configured backoff. It returns the final status and body for every
// non-transient outcome.
func (c *Client) do(ctx context.Context, cred calendar.Credentials, method, fullURL string, body []byte) (int, []byte, error) {
	if strings.TrimSpace(cred.CalendarID) == "" {
		return 0, nil, fmt.Errorf("%w: calendar id is required", usecase.ErrCalendarRejected)
	}
	var (
		status int
		raw    []byte
	)
	err := c.breaker.Execute(func() (err error) {
		status, raw, err = c.executeWithRetry(ctx, cred, method, fullURL, body)
		return err
	}, isCalendarTransient)
	if crerr.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "google calendar circuit breaker rejected request", "method", method)
		return 0, nil, fmt.Errorf("%w: circuit open", usecase.ErrCalendarTransient)
	}
	if err != nil {
		if crerr.Is(err, errCalendarTransient) {
			c.logger.WarnContext(ctx, "google calendar request failed", "method", method, "error", err)
			return 0, nil, fmt.Errorf("%w: %v", usecase.ErrCalendarTransient, err)
		}
		return 0, nil, err
	}
	return status, raw, nil
}

func (c *Client) executeWithRetry(ctx context.Context, cred calendar.Credentials, method, fullURL string, body []byte) (int, []byte, error) {
	var lastErr error
	for attempt := 0; attempt <= len(c.backoff); attempt++ {
		status, raw, err := c.execute(ctx, cred, method, fullURL, body)
		if err == nil {
			if status != http.StatusTooManyRequests && status < http.StatusInternalServerError {
				return status, raw, nil
			}
			err = fmt.Errorf("%w: status=%d body=%s", errCalendarTransient, status, abbreviateBody(raw))
		}
		lastErr = err
		if !crerr.Is(err, errCalendarTransient) || attempt == len(c.backoff) {
			break
		}

		timer := time.NewTimer(c.backoff[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, nil, ctx.Err()
		case <-timer.C:
		}
	}
	return 0, nil, lastErr
}

func (c *Client) execute(ctx context.Context, cred calendar.Credentials, method, fullURL string, body []byte) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, fullURL, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, crerr.Wrap(errCalendarTransient, "send request: "+strings.ReplaceAll(err.Error(), cred.AccessToken, "REDACTED"))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return 0, nil, crerr.Wrap(errCalendarTransient, "read response body: "+err.Error())
	}
	return resp.StatusCode, raw, nil
}

func toResource(eventID string, event calendar.Event) eventResource {
	return eventResource{
		ID:          eventID,
		Status:      eventStatusConfirmed,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Start:       eventTime{DateTime: event.Start.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:         eventTime{DateTime: event.End.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		ExtendedProperties: &extendedProperties{
			Private: map[string]string{fixtureIDProperty: event.Key},
		},
	}
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

type eventList struct {
	Items []eventResource `json:"items"`
}

type eventResource struct {
	ID                 string              `json:"id,omitempty"`
	Status             string              `json:"status,omitempty"`
	Summary            string              `json:"summary,omitempty"`
	Description        string              `json:"description,omitempty"`
	Location           string              `json:"location,omitempty"`
	Start              eventTime           `json:"start"`
	End                eventTime           `json:"end"`
	ExtendedProperties *extendedProperties `json:"extendedProperties,omitempty"`
}

type eventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type extendedProperties struct {
	Private map[string]string `json:"private,omitempty"`
}

func isCalendarTransient(err error) bool {
	return crerr.Is(err, errCalendarTransient)
}
