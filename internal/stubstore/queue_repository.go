package stubstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// QueueRepository manages queue persistence.
type QueueRepository interface {
	Create(ctx context.Context, queue *domain.Queue) error
	Update(ctx context.Context, queue *domain.Queue) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Queue, error)
	List(ctx context.Context, limit, offset int, search string) ([]domain.Queue, error)
	AddUser(ctx context.Context, queueID, userID string) (*domain.Queue, error)
	RemoveUser(ctx context.Context, queueID, userID string) error
}

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewQueueRepository builds the repository.
func NewQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &queueRepository{pool: pool}
}

func (r *queueRepository) Create(ctx context.Context, queue *domain.Queue) error {
	const query = `
        INSERT INTO queues (name, description, assigned_user_ids)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	if queue.AssignedUserIDs == nil {
		queue.AssignedUserIDs = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		queue.Name,
		queue.Description,
		queue.AssignedUserIDs,
	).Scan(&queue.ID, &queue.CreatedAt, &queue.UpdatedAt)
}

func (r *queueRepository) Update(ctx context.Context, queue *domain.Queue) error {
	const query = `
        UPDATE queues SET name=$1, description=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		queue.Name,
		queue.Description,
		queue.ID,
	).Scan(&queue.CreatedAt, &queue.UpdatedAt)
}

func (r *queueRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM queues WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *queueRepository) GetByID(ctx context.Context, id string) (*domain.Queue, error) {
	const query = `
        SELECT id, name, description, assigned_user_ids, created_at, updated_at
        FROM queues WHERE id=$1`
	var queue domain.Queue
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&queue.ID,
		&queue.Name,
		&queue.Description,
		&queue.AssignedUserIDs,
		&queue.CreatedAt,
		&queue.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &queue, nil
}

func (r *queueRepository) List(ctx context.Context, limit, offset int, search string) ([]domain.Queue, error) {
	const query = `
        SELECT id, name, description, assigned_user_ids, created_at, updated_at
        FROM queues
        WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
        ORDER BY name
        LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Queue
	for rows.Next() {
		var queue domain.Queue
		if err := rows.Scan(&queue.ID, &queue.Name, &queue.Description, &queue.AssignedUserIDs, &queue.CreatedAt, &queue.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, queue)
	}
	return result, rows.Err()
}

func (r *queueRepository) AddUser(ctx context.Context, queueID, userID string) (*domain.Queue, error) {
	const query = `
        UPDATE queues
        SET assigned_user_ids = array_append(assigned_user_ids, $2), updated_at=NOW()
        WHERE id=$1 AND NOT ($2 = ANY(assigned_user_ids))
        RETURNING id, name, description, assigned_user_ids, created_at, updated_at`
	var queue domain.Queue
	err := r.pool.QueryRow(ctx, query, queueID, userID).Scan(
		&queue.ID,
		&queue.Name,
		&queue.Description,
		&queue.AssignedUserIDs,
		&queue.CreatedAt,
		&queue.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		// Already a member, or missing queue. Re-read to tell the two apart.
		return r.GetByID(ctx, queueID)
	}
	if err != nil {
		return nil, err
	}
	return &queue, nil
}

func (r *queueRepository) RemoveUser(ctx context.Context, queueID, userID string) error {
	const query = `
        UPDATE queues
        SET assigned_user_ids = array_remove(assigned_user_ids, $2), updated_at=NOW()
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, queueID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
