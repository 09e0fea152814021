package stubstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// HistoryRepository manages the append-only audit trail.
type HistoryRepository interface {
	Create(ctx context.Context, item *domain.HistoryItem) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryItem, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds the repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Create(ctx context.Context, item *domain.HistoryItem) error {
	const query = `
        INSERT INTO history_items (ticket_id, user_id, type, details)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		item.TicketID,
		item.UserID,
		item.Type,
		item.Details,
	).Scan(&item.ID, &item.CreatedAt)
}

func (r *historyRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryItem, error) {
	const query = `
        SELECT id, ticket_id, user_id, type, details, created_at
        FROM history_items WHERE ticket_id=$1
        ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryItem
	for rows.Next() {
		var item domain.HistoryItem
		if err := rows.Scan(&item.ID, &item.TicketID, &item.UserID, &item.Type, &item.Details, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
