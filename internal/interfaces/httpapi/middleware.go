package httpapi

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/user"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
	"go.opentelemetry.io/otel/trace"
)

// TokenVerifier resolves a bearer token to the calling user.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (user.Principal, error)
}

const (
	headerAuthorization = "Authorization"
	headerJobToken      = "X-Internal-Job-Token"
)

var (
	errMissingAuthorization = fmt.Errorf("%w: missing Authorization header", usecase.ErrUnauthorized)
	errMalformedBearer      = fmt.Errorf("%w: invalid Authorization header format", usecase.ErrUnauthorized)
)

// bearerToken extracts the token from "Authorization: Bearer <token>". The
// scheme is case-insensitive.
func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get(headerAuthorization))
	if header == "" {
		return "", errMissingAuthorization
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errMalformedBearer
	}
	return token, nil
}

// RequireAuth resolves the bearer token to a principal and stores it on the
// request context for handlers and the access log.
func RequireAuth(verifier TokenVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.RequireAuth")
		defer span.End()

		token, err := bearerToken(r)
		if err == nil {
			var principal user.Principal
			if principal, err = verifier.VerifyAccessToken(ctx, token); err == nil {
				annotateCaller(ctx, callerUser, principal.UserID)
				next.ServeHTTP(w, r.WithContext(withPrincipal(ctx, principal)))
				return
			}
		}
		writeError(ctx, w, err)
	})
}

// RequireInternalJobToken guards the job endpoints QStash calls. An empty
// configured token disables them rather than admitting everyone.
func RequireInternalJobToken(token string, next http.Handler) http.Handler {
	expected := []byte(strings.TrimSpace(token))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.RequireInternalJobToken")
		defer span.End()

		if len(expected) == 0 {
			writeError(ctx, w, fmt.Errorf("%w: internal job token is not configured", usecase.ErrDependencyUnavailable))
			return
		}
		provided := []byte(strings.TrimSpace(r.Header.Get(headerJobToken)))
		if subtle.ConstantTimeCompare(provided, expected) != 1 {
			writeError(ctx, w, fmt.Errorf("%w: invalid internal job token", usecase.ErrUnauthorized))
			return
		}

		markCaller(ctx, callerJob, "")
		annotateCaller(ctx, callerJob, "")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogging writes one access log line per request. Requests that
// recorded an error are logged at error level with the cause.
func RequestLogging(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, info := withRequestInfo(r.Context())
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(ctx))

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.written,
			"client_ip", resolveClientIP(r),
			"caller", info.caller,
			"user_id", info.userID,
			"duration_ms", time.Since(started).Milliseconds(),
		}
		args = append(args, traceFields(ctx)...)
		if info.err != nil {
			logger.ErrorContext(ctx, "http request", append(args, "error", info.err)...)
			return
		}
		logger.InfoContext(ctx, "http request", args...)
	})
}

func traceFields(ctx context.Context) []any {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return []any{"trace_id", "", "span_id", ""}
	}
	return []any{"trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String()}
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.written += n
	return n, err
}
