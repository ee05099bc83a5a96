package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-io/support-desk/internal/domain"
)

// UserRepository exposes the identity facts the engine needs. Profiles are owned elsewhere.
type UserRepository interface {
	GetSystemRole(ctx context.Context, userID string) (domain.SystemRole, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetSystemRole(ctx context.Context, userID string) (domain.SystemRole, error) {
	const query = `SELECT system_role FROM profiles WHERE id=$1`
	var role domain.SystemRole
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&role); err != nil {
		return "", err
	}
	return role, nil
}
