package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lectern/internal/domain"
)

// GoTrueVerifier validates tokens remotely by asking the identity provider's
// "get current user" endpoint who the token belongs to. Response payload
// shapes differ across provider versions; normalization fails closed, so an
// unrecognized shape reads as "no user" rather than a crash.
type GoTrueVerifier struct {
	baseURL    string
	serviceKey string
	client     *http.Client
	logger     *slog.Logger
}

// GoTrueConfig carries the explicit construction parameters for the verifier.
type GoTrueConfig struct {
	ProjectURL string
	ServiceKey string
	// Timeout bounds each userinfo call; zero means 8s.
	Timeout time.Duration
}

// NewGoTrueVerifier creates a remote token verifier.
func NewGoTrueVerifier(cfg GoTrueConfig, logger *slog.Logger) (*GoTrueVerifier, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("identity provider URL cannot be empty")
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("identity provider service key cannot be empty")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}

	return &GoTrueVerifier{
		baseURL:    strings.TrimRight(cfg.ProjectURL, "/"),
		serviceKey: cfg.ServiceKey,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Verify calls GET /auth/v1/user with the caller's token and the server's
// service key as apikey.
func (v *GoTrueVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, &domain.UnauthenticatedError{Message: "missing bearer token"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return Identity{}, &domain.UnauthenticatedError{Message: "invalid token"}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.serviceKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, &domain.UpstreamError{Provider: "identity", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	if err != nil {
		return Identity{}, &domain.UpstreamError{Provider: "identity", Err: err}
	}

	// A 5xx says nothing about the token; only a definite provider answer
	// (401/403/...) reads as rejection.
	if resp.StatusCode >= http.StatusInternalServerError {
		return Identity{}, &domain.UpstreamError{
			Provider: "identity",
			Err:      fmt.Errorf("userinfo returned status %d", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		v.logger.Debug("token rejected by identity provider", "status", resp.StatusCode)
		return Identity{}, &domain.UnauthenticatedError{Message: "invalid token"}
	}

	id := normalizeUser(body)
	if id.ID == "" {
		v.logger.Warn("identity provider response carried no resolvable user id")
		return Identity{}, &domain.UnauthenticatedError{Message: "invalid token"}
	}
	return id, nil
}

// Close satisfies TokenVerifier; the HTTP client holds no state to release.
func (v *GoTrueVerifier) Close() error {
	return nil
}

// normalizeUser folds the known userinfo shapes into an Identity: the user
// object may arrive top-level, under "user", or under "data"/"data.user".
func normalizeUser(body []byte) Identity {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Identity{}
	}

	user := raw
	if data, ok := raw["data"].(map[string]interface{}); ok {
		user = data
	}
	if nested, ok := user["user"].(map[string]interface{}); ok {
		user = nested
	}

	id, _ := user["id"].(string)
	email, _ := user["email"].(string)
	return Identity{ID: id, Email: email}
}
