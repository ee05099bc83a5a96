package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-io/support-desk/internal/domain"
)

// AgentRosterRepository manages AgentOrgAssociation rows.
type AgentRosterRepository interface {
	Add(ctx context.Context, assoc domain.AgentOrgAssociation) error
	Remove(ctx context.Context, agentID, orgID string) error
	Exists(ctx context.Context, agentID, orgID string) (bool, error)
	ListByOrganization(ctx context.Context, orgID string) ([]domain.AgentOrgAssociation, error)
}

type agentRosterRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRosterRepository instantiates the repository.
func NewAgentRosterRepository(pool *pgxpool.Pool) AgentRosterRepository {
	return &agentRosterRepository{pool: pool}
}

func (r *agentRosterRepository) Add(ctx context.Context, assoc domain.AgentOrgAssociation) error {
	const query = `INSERT INTO agent_organizations (agent_id, organization_id) VALUES ($1,$2)`
	_, err := r.pool.Exec(ctx, query, assoc.AgentID, assoc.OrganizationID)
	return translateUnique(err)
}

func (r *agentRosterRepository) Remove(ctx context.Context, agentID, orgID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM agent_organizations WHERE agent_id=$1 AND organization_id=$2`, agentID, orgID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *agentRosterRepository) Exists(ctx context.Context, agentID, orgID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM agent_organizations WHERE agent_id=$1 AND organization_id=$2)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, agentID, orgID).Scan(&exists)
	return exists, err
}

func (r *agentRosterRepository) ListByOrganization(ctx context.Context, orgID string) ([]domain.AgentOrgAssociation, error) {
	rows, err := r.pool.Query(ctx, `SELECT agent_id, organization_id FROM agent_organizations WHERE organization_id=$1 ORDER BY agent_id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AgentOrgAssociation
	for rows.Next() {
		var assoc domain.AgentOrgAssociation
		if err := rows.Scan(&assoc.AgentID, &assoc.OrganizationID); err != nil {
			return nil, err
		}
		result = append(result, assoc)
	}
	return result, rows.Err()
}
