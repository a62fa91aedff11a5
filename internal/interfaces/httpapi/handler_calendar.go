package httpapi

import (
	"net/http"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
)

type reconnectCalendarRequest struct {
	Provider     string     `json:"provider" validate:"omitempty,oneof=google"`
	CalendarID   string     `json:"calendar_id" validate:"omitempty,max=256"`
	AccessToken  string     `json:"access_token" validate:"required_without=RefreshToken"`
	RefreshToken string     `json:"refresh_token"`
	Expiry       *time.Time `json:"expiry"`
}

func (h *Handler) GetCalendarConnection(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCalendarConnection")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	conn, err := h.calendarAuth.Connection(ctx, principal.UserID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, connectionToDTO(conn))
}

// ReconnectCalendar stores credentials obtained by the client's OAuth flow.
func (h *Handler) ReconnectCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReconnectCalendar")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req reconnectCalendarRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	input := usecase.ReconnectInput{
		Provider:     req.Provider,
		CalendarID:   req.CalendarID,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	}
	if req.Expiry != nil {
		input.Expiry = *req.Expiry
	}

	conn, err := h.calendarAuth.Reconnect(ctx, principal.UserID, input)
	if err != nil {
		h.logger.WarnContext(ctx, "calendar reconnect failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, connectionToDTO(conn))
}
