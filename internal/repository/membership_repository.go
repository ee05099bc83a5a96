package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-io/support-desk/internal/domain"
)

// MembershipRepository persists memberships. One row per (organization, user).
type MembershipRepository interface {
	Create(ctx context.Context, m *domain.Membership) error
	GetByID(ctx context.Context, id string) (*domain.Membership, error)
	GetByOrgAndUser(ctx context.Context, orgID, userID string) (*domain.Membership, error)
	ListByOrganization(ctx context.Context, orgID string) ([]domain.Membership, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Membership, error)
	// UpdateStatus moves a membership from expected to next, or fails with *StaleWriteError.
	UpdateStatus(ctx context.Context, id string, expected, next domain.MembershipStatus) (*domain.Membership, error)
	Delete(ctx context.Context, id string) error
}

type membershipRepository struct {
	pool *pgxpool.Pool
}

// NewMembershipRepository instantiates the repository.
func NewMembershipRepository(pool *pgxpool.Pool) MembershipRepository {
	return &membershipRepository{pool: pool}
}

const membershipColumns = `id, organization_id, user_id, org_role, status, is_creator, created_at`

func insertMembership(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, m *domain.Membership) error {
	const query = `
        INSERT INTO memberships (organization_id, user_id, org_role, status, is_creator)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	err := q.QueryRow(ctx, query,
		m.OrganizationID,
		m.UserID,
		m.OrgRole,
		m.Status,
		m.IsCreator,
	).Scan(&m.ID, &m.CreatedAt)
	return translateUnique(err)
}

func (r *membershipRepository) Create(ctx context.Context, m *domain.Membership) error {
	return insertMembership(ctx, r.pool, m)
}

func (r *membershipRepository) GetByID(ctx context.Context, id string) (*domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE id=$1`
	return scanMembership(r.pool.QueryRow(ctx, query, id))
}

func (r *membershipRepository) GetByOrgAndUser(ctx context.Context, orgID, userID string) (*domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE organization_id=$1 AND user_id=$2`
	return scanMembership(r.pool.QueryRow(ctx, query, orgID, userID))
}

func (r *membershipRepository) ListByOrganization(ctx context.Context, orgID string) ([]domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE organization_id=$1 ORDER BY created_at ASC`
	return r.list(ctx, query, orgID)
}

func (r *membershipRepository) ListByUser(ctx context.Context, userID string) ([]domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE user_id=$1 ORDER BY created_at ASC`
	return r.list(ctx, query, userID)
}

func (r *membershipRepository) UpdateStatus(ctx context.Context, id string, expected, next domain.MembershipStatus) (*domain.Membership, error) {
	query := `UPDATE memberships SET status=$1 WHERE id=$2 AND status=$3 RETURNING ` + membershipColumns
	m, err := scanMembership(r.pool.QueryRow(ctx, query, next, id, expected))
	if err == nil {
		return m, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, &StaleWriteError{Field: "status", Expected: string(expected), Actual: string(current.Status)}
}

func (r *membershipRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM memberships WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *membershipRepository) list(ctx context.Context, query string, arg any) ([]domain.Membership, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	return result, rows.Err()
}

func scanMembership(row pgx.Row) (*domain.Membership, error) {
	var m domain.Membership
	if err := row.Scan(
		&m.ID,
		&m.OrganizationID,
		&m.UserID,
		&m.OrgRole,
		&m.Status,
		&m.IsCreator,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}
