package stubstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// TicketPatch carries the optional fields of a partial ticket update.
// Document changes are expressed as a single add or remove.
type TicketPatch struct {
	Status           *domain.TicketStatus   `json:"status"`
	Priority         *domain.TicketPriority `json:"priority"`
	AssigneeID       *string                `json:"assignee_id"`
	QueueID          *string                `json:"queue_id"`
	CategoryID       *string                `json:"category_id"`
	AddDocumentID    *string                `json:"add_document_id"`
	RemoveDocumentID *string                `json:"remove_document_id"`
}

// TicketRepository manages ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Patch(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository builds the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, queue_id, category_id, title, details, status, priority, assignee_id, document_ids, created_at, updated_at`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.QueueID,
		&ticket.CategoryID,
		&ticket.Title,
		&ticket.Details,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssigneeID,
		&ticket.DocumentIDs,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (queue_id, category_id, title, details, status, priority, assignee_id, document_ids)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	if ticket.DocumentIDs == nil {
		ticket.DocumentIDs = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		ticket.QueueID,
		ticket.CategoryID,
		ticket.Title,
		ticket.Details,
		ticket.Status,
		ticket.Priority,
		ticket.AssigneeID,
		ticket.DocumentIDs,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

// Patch builds a single UPDATE from the supplied fields so concurrent
// writers cannot interleave partial updates.
func (r *ticketRepository) Patch(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	sets := []string{"updated_at=NOW()"}
	args := []any{id}

	add := func(expr string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}

	if patch.Status != nil {
		add("status=$%d", *patch.Status)
	}
	if patch.Priority != nil {
		add("priority=$%d", *patch.Priority)
	}
	if patch.AssigneeID != nil {
		add("assignee_id=$%d", *patch.AssigneeID)
	}
	if patch.QueueID != nil {
		add("queue_id=$%d", *patch.QueueID)
	}
	if patch.CategoryID != nil {
		add("category_id=$%d", *patch.CategoryID)
	}
	if patch.AddDocumentID != nil {
		add("document_ids = array_append(array_remove(document_ids, $%[1]d::text), $%[1]d::text)", *patch.AddDocumentID)
	}
	if patch.RemoveDocumentID != nil {
		add("document_ids = array_remove(document_ids, $%d::text)", *patch.RemoveDocumentID)
	}

	query := `UPDATE tickets SET ` + strings.Join(sets, ", ") + ` WHERE id=$1 RETURNING ` + ticketColumns
	return scanTicket(r.pool.QueryRow(ctx, query, args...))
}
