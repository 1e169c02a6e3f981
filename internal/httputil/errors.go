package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"lectern/internal/domain"
)

// RespondDomainError maps a domain error to its HTTP response. Errors that
// implement domain.HTTPError choose their own status; their messages are
// already written for clients. Anything else is logged in full and reported
// as a generic 500 so infrastructure details never leak.
func RespondDomainError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		status := httpErr.StatusCode()
		if status >= 500 {
			logger.Error("request failed",
				"status", status,
				"path", r.URL.Path,
				"method", r.Method,
				"error", err,
			)
		}
		RespondError(w, status, httpErr.Error())
		return
	}

	logger.Error("unexpected error",
		"path", r.URL.Path,
		"method", r.Method,
		"error", err,
	)
	RespondError(w, http.StatusInternalServerError, "internal server error")
}
