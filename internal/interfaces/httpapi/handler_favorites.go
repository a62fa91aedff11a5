package httpapi

import (
	"net/http"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/favorite"
)

type addFavoriteTeamRequest struct {
	TeamID string `json:"team_id" validate:"required,max=128"`
}

type addFavoriteLeagueRequest struct {
	LeagueID string `json:"league_id" validate:"required,max=128"`
}

func (h *Handler) AddFavoriteTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AddFavoriteTeam")
	defer span.End()

	var req addFavoriteTeamRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	h.addFavorite(w, r.WithContext(ctx), favorite.KindTeam, req.TeamID)
}

func (h *Handler) AddFavoriteLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AddFavoriteLeague")
	defer span.End()

	var req addFavoriteLeagueRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	h.addFavorite(w, r.WithContext(ctx), favorite.KindLeague, req.LeagueID)
}

func (h *Handler) addFavorite(w http.ResponseWriter, r *http.Request, kind favorite.Kind, targetID string) {
	ctx := r.Context()
	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.favorites.Add(ctx, principal.UserID, kind, targetID)
	if err != nil {
		h.logger.WarnContext(ctx, "add favorite failed", "user_id", principal.UserID, "kind", kind, "target_id", targetID, "error", err)
		writeError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeSuccess(ctx, w, status, favoriteAddToDTO(result))
}

func (h *Handler) RemoveFavoriteTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RemoveFavoriteTeam")
	defer span.End()

	h.removeFavorite(w, r.WithContext(ctx), favorite.KindTeam, r.PathValue("teamID"))
}

func (h *Handler) RemoveFavoriteLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RemoveFavoriteLeague")
	defer span.End()

	h.removeFavorite(w, r.WithContext(ctx), favorite.KindLeague, r.PathValue("leagueID"))
}

func (h *Handler) removeFavorite(w http.ResponseWriter, r *http.Request, kind favorite.Kind, targetID string) {
	ctx := r.Context()
	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.favorites.Remove(ctx, principal.UserID, kind, targetID); err != nil {
		h.logger.WarnContext(ctx, "remove favorite failed", "user_id", principal.UserID, "kind", kind, "target_id", targetID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{
		"kind":      string(kind),
		"target_id": targetID,
		"status":    "removed",
	})
}

func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFavorites")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	view, err := h.favorites.List(ctx, principal.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list favorites failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, favoritesViewToDTO(view))
}
