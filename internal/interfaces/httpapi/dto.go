package httpapi

import (
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/calendar"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/favorite"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/jobscheduler"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/notification"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
)

type favoriteDTO struct {
	Kind      string `json:"kind"`
	TargetID  string `json:"target_id"`
	CreatedAt string `json:"created_at,omitempty"`
}

type planDTO struct {
	Tier               string `json:"tier"`
	MaxFavoriteTeams   int    `json:"max_favorite_teams"`
	MaxFavoriteLeagues int    `json:"max_favorite_leagues"`
}

type favoritesDTO struct {
	Teams   []favoriteDTO `json:"teams"`
	Leagues []favoriteDTO `json:"leagues"`
	Plan    planDTO       `json:"plan"`
}

type favoriteAddDTO struct {
	Favorite favoriteDTO `json:"favorite"`
	Created  bool        `json:"created"`
	Used     int         `json:"used"`
	Limit    int         `json:"limit"`
}

type fixtureDTO struct {
	ID           string `json:"id"`
	Sport        string `json:"sport"`
	LeagueID     string `json:"league_id,omitempty"`
	HomeTeamID   string `json:"home_team_id"`
	AwayTeamID   string `json:"away_team_id"`
	HomeTeamName string `json:"home_team_name"`
	AwayTeamName string `json:"away_team_name"`
	KickoffAt    string `json:"kickoff_at"`
	Venue        string `json:"venue,omitempty"`
	Status       string `json:"status"`
	HomeScore    *int   `json:"home_score,omitempty"`
	AwayScore    *int   `json:"away_score,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

type fixtureListDTO struct {
	Fixtures  []fixtureDTO      `json:"fixtures"`
	Staleness usecase.Staleness `json:"staleness"`
}

type notificationDTO struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	FixtureIDs []string `json:"fixture_ids,omitempty"`
	Read       bool     `json:"read"`
	CreatedAt  string   `json:"created_at"`
}

// connectionDTO never carries token material.
type connectionDTO struct {
	Provider       string `json:"provider"`
	CalendarID     string `json:"calendar_id"`
	Status         string `json:"status"`
	InvalidReason  string `json:"invalid_reason,omitempty"`
	InvalidatedAt  string `json:"invalidated_at,omitempty"`
	TokenExpiresAt string `json:"token_expires_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

type passRunDTO struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	StartedAt     string `json:"started_at"`
	FinishedAt    string `json:"finished_at,omitempty"`
	UsersTotal    int    `json:"users_total"`
	UsersSynced   int    `json:"users_synced"`
	UsersFailed   int    `json:"users_failed"`
	UsersDeferred int    `json:"users_deferred"`
	UsersSkipped  int    `json:"users_skipped"`
	Fixtures      int    `json:"fixtures"`
	Purged        int    `json:"purged"`
	Stale         bool   `json:"stale"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

type passResultDTO struct {
	Run       passRunDTO               `json:"run"`
	Ingestion *usecase.IngestionResult `json:"ingestion,omitempty"`
	Users     []usecase.UserSyncResult `json:"users,omitempty"`
	NextRunAt string                   `json:"next_run_at,omitempty"`
}

func favoriteToDTO(v favorite.Favorite) favoriteDTO {
	return favoriteDTO{
		Kind:      string(v.Kind),
		TargetID:  v.TargetID,
		CreatedAt: formatTime(v.CreatedAt),
	}
}

func favoritesViewToDTO(v usecase.FavoritesView) favoritesDTO {
	out := favoritesDTO{
		Teams:   make([]favoriteDTO, 0, len(v.Teams)),
		Leagues: make([]favoriteDTO, 0, len(v.Leagues)),
		Plan: planDTO{
			Tier:               string(v.Plan.Tier),
			MaxFavoriteTeams:   v.Plan.MaxFavoriteTeams,
			MaxFavoriteLeagues: v.Plan.MaxFavoriteLeagues,
		},
	}
	for _, item := range v.Teams {
		out.Teams = append(out.Teams, favoriteToDTO(item))
	}
	for _, item := range v.Leagues {
		out.Leagues = append(out.Leagues, favoriteToDTO(item))
	}
	return out
}

func favoriteAddToDTO(v usecase.FavoriteAddResult) favoriteAddDTO {
	return favoriteAddDTO{
		Favorite: favoriteToDTO(v.Favorite),
		Created:  v.Created,
		Used:     v.Used,
		Limit:    v.Limit,
	}
}

func fixtureToDTO(v fixture.Fixture) fixtureDTO {
	return fixtureDTO{
		ID:           v.ID,
		Sport:        string(v.Sport),
		LeagueID:     v.LeagueID,
		HomeTeamID:   v.HomeTeamID,
		AwayTeamID:   v.AwayTeamID,
		HomeTeamName: v.HomeTeamName,
		AwayTeamName: v.AwayTeamName,
		KickoffAt:    formatTime(v.KickoffAt),
		Venue:        v.Venue,
		Status:       string(v.Status),
		HomeScore:    v.HomeScore,
		AwayScore:    v.AwayScore,
		UpdatedAt:    formatTime(v.UpdatedAt),
	}
}

func notificationToDTO(v notification.Notification) notificationDTO {
	return notificationDTO{
		ID:         v.ID,
		Kind:       string(v.Kind),
		Title:      v.Title,
		Body:       v.Body,
		FixtureIDs: v.FixtureIDs,
		Read:       v.Read,
		CreatedAt:  formatTime(v.CreatedAt),
	}
}

func connectionToDTO(v calendar.Connection) connectionDTO {
	return connectionDTO{
		Provider:       v.Provider,
		CalendarID:     v.Credentials().CalendarID,
		Status:         string(v.Status),
		InvalidReason:  v.InvalidReason,
		InvalidatedAt:  formatOptionalTime(v.InvalidatedAt),
		TokenExpiresAt: formatTime(v.Token.Expiry),
		UpdatedAt:      formatTime(v.UpdatedAt),
	}
}

func passRunToDTO(v jobscheduler.PassRun) passRunDTO {
	return passRunDTO{
		ID:            v.ID,
		Kind:          string(v.Kind),
		Status:        string(v.Status),
		StartedAt:     formatTime(v.StartedAt),
		FinishedAt:    formatTime(v.FinishedAt),
		UsersTotal:    v.UsersTotal,
		UsersSynced:   v.UsersSynced,
		UsersFailed:   v.UsersFailed,
		UsersDeferred: v.UsersDeferred,
		UsersSkipped:  v.UsersSkipped,
		Fixtures:      v.Fixtures,
		Purged:        v.Purged,
		Stale:         v.Stale,
		ErrorMessage:  v.ErrorMessage,
	}
}

func passResultToDTO(v usecase.PassResult) passResultDTO {
	return passResultDTO{
		Run:       passRunToDTO(v.Run),
		Ingestion: v.Ingestion,
		Users:     v.Users,
		NextRunAt: formatOptionalTime(v.NextRunAt),
	}
}

func formatTime(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

func formatOptionalTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return formatTime(*v)
}
