package middleware

import (
	"log/slog"
	"net/http"

	"lectern/internal/auth"
	"lectern/internal/httputil"
)

// Auth resolves the bearer token, when one is presented, into a Principal on
// the request context. A presented-but-invalid token fails closed with 401;
// a request without a token continues anonymously so each route's policy can
// decide whether that is acceptable.
func Auth(provider auth.IdentityProvider, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := httputil.BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := provider.ResolvePrincipal(r.Context(), token)
			if err != nil {
				httputil.RespondDomainError(w, logger, r, err)
				return
			}

			next.ServeHTTP(w, httputil.WithPrincipal(r, principal))
		})
	}
}
