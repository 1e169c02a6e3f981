package handler

import (
	"log/slog"
	"net/http"
	"time"

	"lectern/internal/domain"
	"lectern/internal/httputil"
)

// ProfileHandler exposes the resolved principal so the client can display
// the role and gate its own UI affordances. That gating is advisory only;
// the upload-side checks stay authoritative.
type ProfileHandler struct {
	logger *slog.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{logger: logger}
}

// Me returns the principal resolved for the caller's bearer token
// GET /profiles/me
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)
	if principal == nil {
		httputil.RespondDomainError(w, h.logger, r,
			&domain.UnauthenticatedError{Message: "authentication required"})
		return
	}

	httputil.RespondJSON(w, http.StatusOK, principal)
}

// HealthCheck is a simple liveness endpoint
// GET /health
func (h *ProfileHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now(),
	})
}
