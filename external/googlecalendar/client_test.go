package googlecalendar

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/calendar"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCred = calendar.Credentials{CalendarID: "primary", AccessToken: "access-1"}

// fakeCalendarAPI keeps inserted events in memory and rejects duplicate ids
// with 409 the way the real API does. Deleted events stay behind with status
// cancelled and keep their id.
type fakeCalendarAPI struct {
	mu     sync.Mutex
	events map[string]eventResource
}

func (f *fakeCalendarAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer access-1" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	prefix := "/calendars/primary/events"
	eventID := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")

	switch {
	case r.Method == http.MethodPost:
		raw, _ := io.ReadAll(r.Body)
		var event eventResource
		_ = sonic.Unmarshal(raw, &event)
		if _, exists := f.events[event.ID]; exists {
			w.WriteHeader(http.StatusConflict)
			return
		}
		f.events[event.ID] = event
		_, _ = w.Write(raw)
	case r.Method == http.MethodGet && eventID != "":
		event, ok := f.events[eventID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		raw, _ := sonic.Marshal(event)
		_, _ = w.Write(raw)
	case r.Method == http.MethodGet:
		want := strings.TrimPrefix(r.URL.Query().Get("privateExtendedProperty"), fixtureIDProperty+"=")
		showDeleted := r.URL.Query().Get("showDeleted") == "true"
		list := eventList{}
		for _, event := range f.events {
			if event.Status == eventStatusCancelled && !showDeleted {
				continue
			}
			if event.ExtendedProperties != nil && event.ExtendedProperties.Private[fixtureIDProperty] == want {
				list.Items = append(list.Items, event)
			}
		}
		raw, _ := sonic.Marshal(list)
		_, _ = w.Write(raw)
	case r.Method == http.MethodPut:
		current, ok := f.events[eventID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		var event eventResource
		_ = sonic.Unmarshal(raw, &event)
		if event.Status == "" {
			event.Status = current.Status
		}
		f.events[eventID] = event
		_, _ = w.Write(raw)
	case r.Method == http.MethodDelete:
		event, ok := f.events[eventID]
		if !ok || event.Status == eventStatusCancelled {
			w.WriteHeader(http.StatusGone)
			return
		}
		event.Status = eventStatusCancelled
		f.events[eventID] = event
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeCalendarAPI) event(eventID string) eventResource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[eventID]
}

func (f *fakeCalendarAPI) status(eventID string) string {
	return f.event(eventID).Status
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientConfig{
		HTTPClient: server.Client(),
		BaseURL:    server.URL,
		Backoff:    []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond},
		Logger:     logging.NewNop(),
	})
}

func sampleEvent() calendar.Event {
	kickoff := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	return calendar.Event{
		Key:      "fx_0123456789abcdef",
		Summary:  "Manchester United vs Arsenal",
		Location: "Old Trafford",
		Start:    kickoff,
		End:      kickoff.Add(2 * time.Hour),
	}
}

func TestEventID_IsStableAndValid(t *testing.T) {
	t.Parallel()

	first := EventID("fx_0123456789abcdef")
	second := EventID(" fx_0123456789abcdef ")
	if first != second {
		t.Fatalf("expected stable event id, got=%s and %s", first, second)
	}
	if !regexp.MustCompile(`^[0-9a-v]{5,1024}$`).MatchString(first) {
		t.Fatalf("event id %q is not lowercase base32hex", first)
	}
	if EventID("fx_0000000000000001") == first {
		t.Fatalf("expected different keys to produce different ids")
	}
}

func TestCreateEvent_IsIdempotentRemotely(t *testing.T) {
	t.Parallel()

	api := &fakeCalendarAPI{events: map[string]eventResource{}}
	client := newTestClient(t, api)
	ctx := context.Background()

	id, err := client.CreateEvent(ctx, testCred, sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, EventID(sampleEvent().Key), id)

	again, err := client.CreateEvent(ctx, testCred, sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Len(t, api.events, 1)

	found, err := client.FindEventsByKey(ctx, testCred, sampleEvent().Key)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, found)

	stored := api.event(id)
	assert.Equal(t, "2026-03-14T15:00:00Z", stored.Start.DateTime)
	assert.Equal(t, "Old Trafford", stored.Location)
}

func TestUpdateAndDelete_HandleMissingEvents(t *testing.T) {
	t.Parallel()

	api := &fakeCalendarAPI{events: map[string]eventResource{}}
	client := newTestClient(t, api)
	ctx := context.Background()

	err := client.UpdateEvent(ctx, testCred, "missing", sampleEvent())
	require.ErrorIs(t, err, calendar.ErrEventGone)

	require.NoError(t, client.DeleteEvent(ctx, testCred, "missing"))

	id, err := client.CreateEvent(ctx, testCred, sampleEvent())
	require.NoError(t, err)

	moved := sampleEvent()
	moved.Start = moved.Start.Add(3 * time.Hour)
	moved.End = moved.End.Add(3 * time.Hour)
	require.NoError(t, client.UpdateEvent(ctx, testCred, id, moved))
	assert.Equal(t, "2026-03-14T18:00:00Z", api.event(id).Start.DateTime)

	require.NoError(t, client.DeleteEvent(ctx, testCred, id))
	assert.Equal(t, eventStatusCancelled, api.status(id))
	require.NoError(t, client.DeleteEvent(ctx, testCred, id))

	found, err := client.FindEventsByKey(ctx, testCred, sampleEvent().Key)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestCreateEvent_RevivesCancelledEvent(t *testing.T) {
	t.Parallel()

	api := &fakeCalendarAPI{events: map[string]eventResource{}}
	client := newTestClient(t, api)
	ctx := context.Background()

	id, err := client.CreateEvent(ctx, testCred, sampleEvent())
	require.NoError(t, err)
	require.NoError(t, client.DeleteEvent(ctx, testCred, id))
	require.Equal(t, eventStatusCancelled, api.status(id))

	moved := sampleEvent()
	moved.Start = moved.Start.Add(24 * time.Hour)
	moved.End = moved.End.Add(24 * time.Hour)
	again, err := client.CreateEvent(ctx, testCred, moved)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, eventStatusConfirmed, api.status(id))
	assert.Equal(t, "2026-03-15T15:00:00Z", api.event(id).Start.DateTime)

	found, err := client.FindEventsByKey(ctx, testCred, sampleEvent().Key)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, found)
}

func TestUpdateEvent_RestoresEventDeletedByUser(t *testing.T) {
	t.Parallel()

	api := &fakeCalendarAPI{events: map[string]eventResource{}}
	client := newTestClient(t, api)
	ctx := context.Background()

	id, err := client.CreateEvent(ctx, testCred, sampleEvent())
	require.NoError(t, err)
	require.NoError(t, client.DeleteEvent(ctx, testCred, id))

	require.NoError(t, client.UpdateEvent(ctx, testCred, id, sampleEvent()))
	assert.Equal(t, eventStatusConfirmed, api.status(id))
}

func TestRequests_MapUnauthorizedToAuthExpired(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, &fakeCalendarAPI{events: map[string]eventResource{}})
	_, err := client.CreateEvent(context.Background(), calendar.Credentials{CalendarID: "primary", AccessToken: "revoked"}, sampleEvent())
	require.ErrorIs(t, err, usecase.ErrCalendarAuthExpired)
}

func TestRequests_RetryServerErrorsThenSucceed(t *testing.T) {
	t.Parallel()

	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"items": [{"id": "abc"}]}`))
	}))

	ids, err := client.FindEventsByKey(context.Background(), testCred, "fx_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, ids)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRequests_ServerErrorsBecomeTransientAfterRetries(t *testing.T) {
	t.Parallel()

	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := client.DeleteEvent(context.Background(), testCred, "abc")
	require.ErrorIs(t, err, usecase.ErrCalendarTransient)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestRequests_ClientErrorsAreRejected(t *testing.T) {
	t.Parallel()

	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid start time."}}`))
	}))

	_, err := client.CreateEvent(context.Background(), testCred, sampleEvent())
	require.Error(t, err)
	assert.True(t, errors.Is(err, usecase.ErrCalendarRejected))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
