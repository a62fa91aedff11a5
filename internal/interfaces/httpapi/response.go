package httpapi

import (
	"context"
	"errors"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
)

const (
	googleAPIVersion = "2.0"
	errorDomain      = "fixture-calendar-sync"
	internalMessage  = "internal server error"
)

// Responses follow the Google JSON style guide envelope.
type googleResponseEnvelope struct {
	APIVersion string           `json:"apiVersion"`
	Data       any              `json:"data,omitempty"`
	Error      *googleErrorBody `json:"error,omitempty"`
}

type googleErrorBody struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Status  string            `json:"status"`
	Errors  []googleErrorItem `json:"errors,omitempty"`
}

type googleErrorItem struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type mappedError struct {
	HTTPStatus int
	Reason     string
	Status     string
}

var internalError = mappedError{http.StatusInternalServerError, "internalError", "INTERNAL"}

// errorMappings is checked in order; the first sentinel matched by errors.Is
// wins, so more specific errors come first.
var errorMappings = []struct {
	target error
	mapped mappedError
}{
	{usecase.ErrInvalidInput, mappedError{http.StatusBadRequest, "invalidInput", "INVALID_ARGUMENT"}},
	{usecase.ErrNotFound, mappedError{http.StatusNotFound, "notFound", "NOT_FOUND"}},
	{usecase.ErrUnauthorized, mappedError{http.StatusUnauthorized, "unauthorized", "UNAUTHENTICATED"}},
	{usecase.ErrQuotaExceeded, mappedError{http.StatusTooManyRequests, "quotaExceeded", "RESOURCE_EXHAUSTED"}},
	{usecase.ErrCalendarNotConnected, mappedError{http.StatusNotFound, "calendarNotConnected", "NOT_FOUND"}},
	{usecase.ErrCalendarAuthExpired, mappedError{http.StatusConflict, "calendarReconnectRequired", "FAILED_PRECONDITION"}},
	{usecase.ErrCalendarRejected, mappedError{http.StatusUnprocessableEntity, "calendarRejected", "FAILED_PRECONDITION"}},
	{usecase.ErrProviderRateLimited, mappedError{http.StatusServiceUnavailable, "providerRateLimited", "UNAVAILABLE"}},
	{usecase.ErrProviderUnavailable, mappedError{http.StatusServiceUnavailable, "providerUnavailable", "UNAVAILABLE"}},
	{usecase.ErrCalendarTransient, mappedError{http.StatusServiceUnavailable, "calendarUnavailable", "UNAVAILABLE"}},
	{usecase.ErrDependencyUnavailable, mappedError{http.StatusServiceUnavailable, "dependencyUnavailable", "UNAVAILABLE"}},
}

func mapError(err error) mappedError {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.mapped
		}
	}
	return internalError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

func writeSuccess(_ context.Context, w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, googleResponseEnvelope{APIVersion: googleAPIVersion, Data: data})
}

// writeError maps err to its HTTP status. Unmapped errors are reported as a
// bare internal error so repository and provider details stay server side.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	mapped := mapError(err)
	message := err.Error()
	if mapped == internalError {
		message = internalMessage
		recordError(ctx, err)
	}
	writeErrorBody(w, mapped, message)
}

func writeInternalError(_ context.Context, w http.ResponseWriter) {
	writeErrorBody(w, internalError, internalMessage)
}

func writeErrorBody(w http.ResponseWriter, mapped mappedError, message string) {
	writeJSON(w, mapped.HTTPStatus, googleResponseEnvelope{
		APIVersion: googleAPIVersion,
		Error: &googleErrorBody{
			Code:    mapped.HTTPStatus,
			Message: message,
			Status:  mapped.Status,
			Errors: []googleErrorItem{{
				Domain:  errorDomain,
				Reason:  mapped.Reason,
				Message: message,
			}},
		},
	})
}
