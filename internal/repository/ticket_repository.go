package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-io/support-desk/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	OrganizationID string
	CreatedBy      *string
	AssignedTo     *string
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	SearchTerm     *string
	Limit          int
	Offset         int
}

// TicketRepository encapsulates ticket persistence. Field updates are conditional:
// each takes the value the caller last saw and fails with *StaleWriteError if it changed.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, expected, next domain.TicketStatus) (*domain.Ticket, error)
	UpdatePriority(ctx context.Context, id string, expected, next domain.TicketPriority) (*domain.Ticket, error)
	UpdateAssignee(ctx context.Context, id string, expected, next *string) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, organization_id, created_by, assigned_to, subject, status, priority, category, tags, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (organization_id, created_by, assigned_to, subject, status, priority, category, tags)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.OrganizationID,
		ticket.CreatedBy,
		ticket.AssignedTo,
		ticket.Subject,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.Tags,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, expected, next domain.TicketStatus) (*domain.Ticket, error) {
	query := `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3 RETURNING ` + ticketColumns
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, next, id, expected))
	return r.conditional(ctx, id, ticket, err, func(current *domain.Ticket) *StaleWriteError {
		return &StaleWriteError{Field: "status", Expected: string(expected), Actual: string(current.Status)}
	})
}

func (r *ticketRepository) UpdatePriority(ctx context.Context, id string, expected, next domain.TicketPriority) (*domain.Ticket, error) {
	query := `UPDATE tickets SET priority=$1, updated_at=NOW() WHERE id=$2 AND priority=$3 RETURNING ` + ticketColumns
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, next, id, expected))
	return r.conditional(ctx, id, ticket, err, func(current *domain.Ticket) *StaleWriteError {
		return &StaleWriteError{Field: "priority", Expected: string(expected), Actual: string(current.Priority)}
	})
}

func (r *ticketRepository) UpdateAssignee(ctx context.Context, id string, expected, next *string) (*domain.Ticket, error) {
	query := `UPDATE tickets SET assigned_to=$1, updated_at=NOW() WHERE id=$2 AND assigned_to IS NOT DISTINCT FROM $3 RETURNING ` + ticketColumns
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, next, id, expected))
	return r.conditional(ctx, id, ticket, err, func(current *domain.Ticket) *StaleWriteError {
		return &StaleWriteError{Field: "assigned_to", Expected: NullableString(expected), Actual: NullableString(current.AssignedTo)}
	})
}

// conditional turns a no-row update into either not-found or a stale write.
func (r *ticketRepository) conditional(ctx context.Context, id string, ticket *domain.Ticket, err error, stale func(*domain.Ticket) *StaleWriteError) (*domain.Ticket, error) {
	if err == nil {
		return ticket, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, stale(current)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	args := []any{filter.OrganizationID}
	clauses := []string{"organization_id=$1"}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.SearchTerm))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(subject) LIKE $%d", len(args)))
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC, id LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.OrganizationID,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.Subject,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.Tags,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
