package domain

import "time"

// HistoryType captures what kind of change a history entry records.
type HistoryType string

const (
	HistoryComment         HistoryType = "COMMENT"
	HistoryCreated         HistoryType = "CREATED"
	HistoryAssigned        HistoryType = "ASSIGNED"
	HistoryStatusChanged   HistoryType = "STATUS_CHANGED"
	HistoryClosed          HistoryType = "CLOSED"
	HistoryReopened        HistoryType = "REOPENED"
	HistoryDocumentAdded   HistoryType = "DOCUMENT_ADDED"
	HistoryDocumentRemoved HistoryType = "DOCUMENT_REMOVED"
	HistoryPriorityChanged HistoryType = "PRIORITY_CHANGED"
	HistoryCategoryChanged HistoryType = "CATEGORY_CHANGED"
)

// HistoryItem is an immutable audit trail entry. Entries are append-only
// and ordered by CreatedAt ascending; ties keep store insertion order.
type HistoryItem struct {
	ID        string
	TicketID  string
	UserID    string
	Type      HistoryType
	Details   string
	CreatedAt time.Time
}
