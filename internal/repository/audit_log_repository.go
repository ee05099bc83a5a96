package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-io/support-desk/internal/domain"
)

// AuditLogRepository stores audit entries. Append-only by contract and by table trigger.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *domain.AuditLogEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AuditLogEntry, error)
}

type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository builds repository.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	const query = `
        INSERT INTO audit_log (ticket_id, event_type, from_value, to_value, user_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.EventType,
		entry.FromValue,
		entry.ToValue,
		entry.UserID,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AuditLogEntry, error) {
	const query = `
        SELECT id, ticket_id, event_type, from_value, to_value, user_id, created_at
        FROM audit_log WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditLogEntry
	for rows.Next() {
		var entry domain.AuditLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.EventType,
			&entry.FromValue,
			&entry.ToValue,
			&entry.UserID,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
