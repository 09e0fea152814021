package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// CreateQueueRequest payload.
type CreateQueueRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateQueueRequest carries a partial queue update.
type UpdateQueueRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// QueueUserRequest payload.
type QueueUserRequest struct {
	UserID string `json:"user_id"`
}

// CreateCategoryRequest payload.
type CreateCategoryRequest struct {
	QueueID string `json:"queue_id"`
	Name    string `json:"name"`
}

// UpdateCategoryRequest carries a partial category update.
type UpdateCategoryRequest struct {
	Name *string `json:"name"`
}

// QueueResponse mirrors the queue entity.
type QueueResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	AssignedUserIDs []string  `json:"assigned_user_ids"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CategoryResponse mirrors the category entity.
type CategoryResponse struct {
	ID      string `json:"id"`
	QueueID string `json:"queue_id"`
	Name    string `json:"name"`
}

// SelectionResponse reports the resolver's current queue/category pair and
// the options available at the category level.
type SelectionResponse struct {
	QueueID    string           `json:"queue_id"`
	CategoryID string           `json:"category_id"`
	Categories []OptionResponse `json:"categories"`
}

// OptionResponse is a selectable id/name pair.
type OptionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// QueueFromDomain maps the entity to its response shape.
func QueueFromDomain(q *domain.Queue) QueueResponse {
	return QueueResponse{
		ID:              q.ID,
		Name:            q.Name,
		Description:     q.Description,
		AssignedUserIDs: q.AssignedUserIDs,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
}

// CategoryFromDomain maps the entity to its response shape.
func CategoryFromDomain(cat *domain.Category) CategoryResponse {
	return CategoryResponse{ID: cat.ID, QueueID: cat.QueueID, Name: cat.Name}
}
