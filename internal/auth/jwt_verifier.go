package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lectern/internal/domain"
	"lectern/internal/domain/models"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSVerifier validates tokens locally using the identity provider's JWKS.
// The keys are cached and refreshed by keyfunc based on HTTP cache headers,
// so no per-request network call is needed.
type JWKSVerifier struct {
	jwks   keyfunc.Keyfunc
	logger *slog.Logger
}

// NewJWKSVerifier creates a verifier that fetches public keys from the
// provider's JWKS endpoint.
func NewJWKSVerifier(jwksURL string, logger *slog.Logger) (*JWKSVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(context.Background(), []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("create JWKS client: %w", err)
	}

	logger.Info("JWKS verifier initialized", "jwks_url", jwksURL)

	return &JWKSVerifier{jwks: jwks, logger: logger}, nil
}

// Verify parses and validates the token, returning the identity from its
// claims. All failure modes collapse to Unauthenticated; the detailed cause
// stays in server logs.
func (v *JWKSVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, &domain.UnauthenticatedError{Message: "missing bearer token"}
	}

	parsed, err := jwt.ParseWithClaims(token, &models.SupabaseClaims{}, v.jwks.Keyfunc)
	if err != nil {
		v.logger.Debug("token parse failed", "error", err)
		return Identity{}, &domain.UnauthenticatedError{Message: "invalid token"}
	}
	if !parsed.Valid {
		return Identity{}, &domain.UnauthenticatedError{Message: "invalid token"}
	}

	// Prevent algorithm confusion attacks - allow only RS256 or ES256
	switch parsed.Method.Alg() {
	case "RS256", "ES256":
	default:
		v.logger.Warn("token uses unexpected algorithm",
			"algorithm", parsed.Method.Alg(),
			"allowed", []string{"RS256", "ES256"},
		)
		return Identity{}, &domain.UnauthenticatedError{Message: "invalid token"}
	}

	claims, ok := parsed.Claims.(*models.SupabaseClaims)
	if !ok {
		return Identity{}, &domain.UnauthenticatedError{Message: "invalid token"}
	}
	if claims.Subject == "" {
		return Identity{}, &domain.UnauthenticatedError{Message: "invalid token"}
	}
	// Reject anonymous sessions; the provider marks real sign-ins "authenticated".
	if claims.Role != "authenticated" {
		v.logger.Debug("token has non-authenticated provider role", "role", claims.Role)
		return Identity{}, &domain.UnauthenticatedError{Message: "invalid token"}
	}

	return Identity{ID: claims.GetUserID(), Email: claims.Email}, nil
}

// Close releases resources held by the verifier. keyfunc manages its own
// refresh lifecycle, so this is a no-op kept for shutdown symmetry.
func (v *JWKSVerifier) Close() error {
	return nil
}
