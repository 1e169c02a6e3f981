// Package auth adapts the external identity provider: it verifies bearer
// tokens, resolves the authenticated user, and folds in a portal role from
// the profile store.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"lectern/internal/domain"
	"lectern/internal/domain/models"
)

// Provider composes a token verifier with a role store. The two outcomes are
// deliberately distinct: a verification failure is fatal (Unauthenticated),
// while a role lookup that errors or finds nothing degrades to role student.
type Provider struct {
	verifier TokenVerifier
	roles    RoleStore // nil disables lookup; every principal is a student
	logger   *slog.Logger
}

// NewProvider creates an identity provider adapter.
func NewProvider(verifier TokenVerifier, roles RoleStore, logger *slog.Logger) *Provider {
	return &Provider{
		verifier: verifier,
		roles:    roles,
		logger:   logger,
	}
}

// ResolvePrincipal validates the raw bearer token and returns the principal
// with its resolved role. The returned principal always has a non-empty ID.
func (p *Provider) ResolvePrincipal(ctx context.Context, token string) (*models.Principal, error) {
	identity, err := p.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	return &models.Principal{
		ID:    identity.ID,
		Email: identity.Email,
		Role:  p.resolveRole(ctx, identity.ID),
	}, nil
}

func (p *Provider) resolveRole(ctx context.Context, userID string) models.Role {
	if p.roles == nil {
		return models.RoleStudent
	}

	role, err := p.roles.RoleFor(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.logger.Warn("role lookup failed, defaulting to student",
				"user_id", userID,
				"error", err,
			)
		}
		return models.RoleStudent
	}
	return role
}

// Close releases the underlying verifier's resources.
func (p *Provider) Close() error {
	return p.verifier.Close()
}
