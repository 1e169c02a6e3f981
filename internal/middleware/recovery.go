package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"lectern/internal/httputil"
)

// Recovery converts a handler panic into an RFC 7807 500 response. The panic
// value and stack trace go to the server log only; the response body stays
// generic so provider and wiring details never reach the client.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error("handler panicked",
						"panic", v,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)

					httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
