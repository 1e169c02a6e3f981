package auth

import (
	"context"

	"lectern/internal/domain/models"
)

// Identity is the provider-confirmed user behind a bearer token, before any
// role resolution.
type Identity struct {
	ID    string
	Email string
}

// TokenVerifier validates a raw bearer token (no "Bearer " prefix) and
// returns the identity it belongs to. Implementations either verify the
// token locally against the provider's JWKS or call the provider's
// "get current user" endpoint.
type TokenVerifier interface {
	// Verify returns *domain.UnauthenticatedError for empty, malformed,
	// rejected, or subject-less tokens.
	Verify(ctx context.Context, token string) (Identity, error)

	// Close releases any resources held by the verifier.
	Close() error
}

// RoleStore looks up the portal role assigned to a user id.
type RoleStore interface {
	// RoleFor returns domain.ErrNotFound when the user has no role row.
	RoleFor(ctx context.Context, userID string) (models.Role, error)
}

// IdentityProvider resolves a bearer token to a full Principal.
type IdentityProvider interface {
	ResolvePrincipal(ctx context.Context, token string) (*models.Principal, error)
}
