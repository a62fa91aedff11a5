package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	registerAuthorizedFavoriteRoutes(mux, handler, verifier)
	registerAuthorizedFixtureRoutes(mux, handler, verifier)
	registerAuthorizedNotificationRoutes(mux, handler, verifier)
	registerAuthorizedCalendarRoutes(mux, handler, verifier)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/nightly-pass", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunNightlyPassJob)))
	mux.Handle("POST /v1/internal/jobs/live-refresh", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunLiveRefreshJob)))
	mux.Handle("POST /v1/internal/jobs/schedule-refresh", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunScheduleRefreshJob)))
}

func registerAuthorizedFavoriteRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/favorites", RequireAuth(verifier, http.HandlerFunc(handler.ListFavorites)))
	mux.Handle("POST /v1/favorites/teams", RequireAuth(verifier, http.HandlerFunc(handler.AddFavoriteTeam)))
	mux.Handle("DELETE /v1/favorites/teams/{teamID}", RequireAuth(verifier, http.HandlerFunc(handler.RemoveFavoriteTeam)))
	mux.Handle("POST /v1/favorites/leagues", RequireAuth(verifier, http.HandlerFunc(handler.AddFavoriteLeague)))
	mux.Handle("DELETE /v1/favorites/leagues/{leagueID}", RequireAuth(verifier, http.HandlerFunc(handler.RemoveFavoriteLeague)))
}

func registerAuthorizedFixtureRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/fixtures", RequireAuth(verifier, http.HandlerFunc(handler.ListFixtures)))
}

func registerAuthorizedNotificationRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/notifications", RequireAuth(verifier, http.HandlerFunc(handler.ListNotifications)))
	mux.Handle("POST /v1/notifications/read", RequireAuth(verifier, http.HandlerFunc(handler.MarkNotificationsRead)))
}

func registerAuthorizedCalendarRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/calendar/connection", RequireAuth(verifier, http.HandlerFunc(handler.GetCalendarConnection)))
	mux.Handle("PUT /v1/calendar/connection", RequireAuth(verifier, http.HandlerFunc(handler.ReconnectCalendar)))
}
