package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lectern/internal/domain"
	"lectern/internal/domain/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository reads portal roles from the profiles table. The identity
// provider owns the table; this repository only ever selects from it.
type ProfileRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(config *RepositoryConfig) *ProfileRepository {
	return &ProfileRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// RoleFor returns the role stored for a user id. A missing row returns
// domain.ErrNotFound; callers decide how to degrade (the identity provider
// adapter defaults to student).
func (r *ProfileRepository) RoleFor(ctx context.Context, userID string) (models.Role, error) {
	query := fmt.Sprintf(`SELECT role FROM %s WHERE id = $1`, r.tables.Profiles)

	var role *string
	err := r.pool.QueryRow(ctx, query, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("query profile role: %w", err)
	}
	if role == nil || *role == "" {
		return "", domain.ErrNotFound
	}

	return models.ParseRole(*role), nil
}
