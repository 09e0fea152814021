package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	QueueID     string                `json:"queue_id"`
	CategoryID  string                `json:"category_id"`
	Title       string                `json:"title"`
	Details     string                `json:"details"`
	Priority    domain.TicketPriority `json:"priority"`
	DocumentIDs []string              `json:"document_ids"`
}

// AssignRequest payload.
type AssignRequest struct {
	UserID string `json:"user_id"`
}

// StatusChangeRequest payload.
type StatusChangeRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// PriorityChangeRequest payload.
type PriorityChangeRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// ReassignRequest moves a ticket to a new queue/category pair.
type ReassignRequest struct {
	QueueID    string `json:"queue_id"`
	CategoryID string `json:"category_id"`
}

// CommentRequest payload.
type CommentRequest struct {
	Text string `json:"text"`
}

// DocumentRequest attaches or detaches a document.
type DocumentRequest struct {
	DocumentID string `json:"document_id"`
}

// TicketResponse mirrors the ticket entity.
type TicketResponse struct {
	ID          string                `json:"id"`
	QueueID     string                `json:"queue_id"`
	CategoryID  string                `json:"category_id"`
	Title       string                `json:"title"`
	Details     string                `json:"details"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	AssigneeID  *string               `json:"assignee_id"`
	DocumentIDs []string              `json:"document_ids"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// HistoryItemResponse is one raw trail entry.
type HistoryItemResponse struct {
	ID        string             `json:"id"`
	TicketID  string             `json:"ticket_id"`
	UserID    string             `json:"user_id"`
	Type      domain.HistoryType `json:"type"`
	Details   string             `json:"details"`
	CreatedAt time.Time          `json:"created_at"`
}

// RenderedHistoryResponse is a display-ready trail entry.
type RenderedHistoryResponse struct {
	ID        string             `json:"id"`
	Type      domain.HistoryType `json:"type"`
	Actor     string             `json:"actor"`
	Text      string             `json:"text"`
	CreatedAt time.Time          `json:"created_at"`
}
