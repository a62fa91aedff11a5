package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
)

const maxFixtureListLimit = 500

func (h *Handler) ListFixtures(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFixtures")
	defer span.End()

	filter, err := parseFixtureFilter(r.URL.Query())
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.fixtures.Query(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "list fixtures failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := fixtureListDTO{
		Fixtures:  make([]fixtureDTO, 0, len(items)),
		Staleness: h.fixtures.Staleness(),
	}
	for _, item := range items {
		out.Fixtures = append(out.Fixtures, fixtureToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

// parseFixtureFilter accepts comma separated or repeated status and
// league_id values, and RFC3339 or YYYY-MM-DD bounds.
func parseFixtureFilter(values url.Values) (fixture.Filter, error) {
	var filter fixture.Filter

	for _, raw := range splitQueryValues(values["status"]) {
		status, ok := fixture.ParseStatus(raw)
		if !ok {
			return fixture.Filter{}, fmt.Errorf("%w: unknown fixture status %q", usecase.ErrInvalidInput, raw)
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	if raw := strings.TrimSpace(values.Get("sport")); raw != "" {
		s, ok := sport.Parse(raw)
		if !ok {
			return fixture.Filter{}, fmt.Errorf("%w: unknown sport %q", usecase.ErrInvalidInput, raw)
		}
		filter.Sport = s
	}

	filter.LeagueIDs = splitQueryValues(values["league_id"])
	filter.TeamIDs = splitQueryValues(values["team_id"])

	var err error
	if filter.KickoffFrom, err = parseQueryTime("from", values.Get("from"), false); err != nil {
		return fixture.Filter{}, err
	}
	if filter.KickoffTo, err = parseQueryTime("to", values.Get("to"), true); err != nil {
		return fixture.Filter{}, err
	}
	if !filter.KickoffFrom.IsZero() && !filter.KickoffTo.IsZero() && filter.KickoffTo.Before(filter.KickoffFrom) {
		return fixture.Filter{}, fmt.Errorf("%w: to must not be before from", usecase.ErrInvalidInput)
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return fixture.Filter{}, fmt.Errorf("%w: limit must be a positive integer", usecase.ErrInvalidInput)
		}
		if limit > maxFixtureListLimit {
			limit = maxFixtureListLimit
		}
		filter.Limit = limit
	}

	return filter, nil
}

func splitQueryValues(raw []string) []string {
	var out []string
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseQueryTime treats a bare date as the start of that UTC day, or its
// last instant when endOfDay is set.
func parseQueryTime(name, raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339 or YYYY-MM-DD", usecase.ErrInvalidInput, name)
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}
