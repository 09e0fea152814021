package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpened     TicketStatus = "OPENED"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityLow    TicketPriority = "LOW"
)

// Ticket is the aggregate for support requests. CategoryID must always
// reference a category owned by QueueID.
type Ticket struct {
	ID          string
	QueueID     string
	CategoryID  string
	Title       string
	Details     string
	Status      TicketStatus
	Priority    TicketPriority
	AssigneeID  *string
	DocumentIDs []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
