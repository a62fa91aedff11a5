package httpapi

import (
	"context"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/user"
)

type contextKey int

const (
	principalContextKey contextKey = iota
	requestInfoContextKey
)

// requestInfo is allocated by RequestLogging and filled in further down the
// chain, so the access log line can name the caller and any hidden error
// after the handler has returned.
type requestInfo struct {
	userID string
	caller string
	err    error
}

const (
	callerAnonymous = "anonymous"
	callerUser      = "user"
	callerJob       = "job"
)

func withRequestInfo(ctx context.Context) (context.Context, *requestInfo) {
	info := &requestInfo{caller: callerAnonymous}
	return context.WithValue(ctx, requestInfoContextKey, info), info
}

func markCaller(ctx context.Context, caller, userID string) {
	if info, ok := ctx.Value(requestInfoContextKey).(*requestInfo); ok {
		info.caller = caller
		info.userID = userID
	}
}

// recordError keeps an error the client only saw as "internal server error".
func recordError(ctx context.Context, err error) {
	if info, ok := ctx.Value(requestInfoContextKey).(*requestInfo); ok {
		info.err = err
	}
}

func withPrincipal(ctx context.Context, p user.Principal) context.Context {
	markCaller(ctx, callerUser, p.UserID)
	return context.WithValue(ctx, principalContextKey, p)
}

func principalFromContext(ctx context.Context) (user.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(user.Principal)
	return p, ok
}
