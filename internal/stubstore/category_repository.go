package stubstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// CategoryRepository manages category persistence.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	List(ctx context.Context, limit, offset int, search string) ([]domain.Category, error)
	ListByQueue(ctx context.Context, queueID string) ([]domain.Category, error)
	BelongsToQueue(ctx context.Context, categoryID, queueID string) (bool, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (queue_id, name)
        VALUES ($1,$2)
        RETURNING id`
	return r.pool.QueryRow(ctx, query, category.QueueID, category.Name).Scan(&category.ID)
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	const query = `
        UPDATE categories SET name=$1 WHERE id=$2
        RETURNING queue_id`
	return r.pool.QueryRow(ctx, query, category.Name, category.ID).Scan(&category.QueueID)
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `SELECT id, queue_id, name FROM categories WHERE id=$1`
	var category domain.Category
	if err := r.pool.QueryRow(ctx, query, id).Scan(&category.ID, &category.QueueID, &category.Name); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context, limit, offset int, search string) ([]domain.Category, error) {
	const query = `
        SELECT id, queue_id, name FROM categories
        WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
        ORDER BY name
        LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCategories(rows)
}

func (r *categoryRepository) ListByQueue(ctx context.Context, queueID string) ([]domain.Category, error) {
	const query = `SELECT id, queue_id, name FROM categories WHERE queue_id=$1 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, queueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCategories(rows)
}

func (r *categoryRepository) BelongsToQueue(ctx context.Context, categoryID, queueID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM categories WHERE id=$1 AND queue_id=$2)`
	var ok bool
	if err := r.pool.QueryRow(ctx, query, categoryID, queueID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func scanCategories(rows pgx.Rows) ([]domain.Category, error) {
	var result []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.QueueID, &category.Name); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}
