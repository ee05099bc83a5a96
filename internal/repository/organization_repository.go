package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-io/support-desk/internal/domain"
)

// OrganizationRepository persists organizations.
type OrganizationRepository interface {
	// Create inserts the organization and its creator membership together.
	Create(ctx context.Context, org *domain.Organization, creator *domain.Membership) error
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
}

type organizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository instantiates the repository.
func NewOrganizationRepository(pool *pgxpool.Pool) OrganizationRepository {
	return &organizationRepository{pool: pool}
}

func (r *organizationRepository) Create(ctx context.Context, org *domain.Organization, creator *domain.Membership) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const orgQuery = `INSERT INTO organizations (name) VALUES ($1) RETURNING id, created_at`
		if err := tx.QueryRow(ctx, orgQuery, org.Name).Scan(&org.ID, &org.CreatedAt); err != nil {
			return err
		}
		creator.OrganizationID = org.ID
		return insertMembership(ctx, tx, creator)
	})
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	const query = `SELECT id, name, created_at FROM organizations WHERE id=$1`
	var org domain.Organization
	if err := r.pool.QueryRow(ctx, query, id).Scan(&org.ID, &org.Name, &org.CreatedAt); err != nil {
		return nil, err
	}
	return &org, nil
}
