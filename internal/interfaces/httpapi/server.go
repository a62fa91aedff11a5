package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

// RouterOptions carries the config-driven parts of the router.
type RouterOptions struct {
	SwaggerEnabled     bool
	CORSAllowedOrigins []string
	InternalJobToken   string
}

// NewRouter wires the public, authorized and internal job routes behind the
// shared middleware chain:
// tracing -> access log -> CORS -> panic recovery -> route auth -> handler.
func NewRouter(handler *Handler, verifier TokenVerifier, logger *logging.Logger, opts RouterOptions) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, opts.SwaggerEnabled)
	registerAuthorizedRoutes(mux, handler, verifier)
	registerInternalJobRoutes(mux, handler, opts.InternalJobToken)

	return RequestTracing(RequestLogging(logger, CORS(opts.CORSAllowedOrigins, recoverPanic(mux))))
}

// recoverPanic turns a handler panic into a 500; the panic value reaches the
// access log through the request info.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				recordError(r.Context(), fmt.Errorf("panic: %v", rec))
				writeInternalError(r.Context(), w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
