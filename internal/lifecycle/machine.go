package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/cache"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/remote"
	"github.com/spec-kit/helpdesk-core/internal/syncer"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

// Store is the slice of the system-of-record the state machine writes to.
type Store interface {
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)
	CreateTicket(ctx context.Context, ticket domain.Ticket) (*domain.Ticket, error)
	PatchTicket(ctx context.Context, id string, patch remote.TicketPatch) (*domain.Ticket, error)
	AddComment(ctx context.Context, ticketID, userID, text string) (*domain.HistoryItem, error)
}

// PairValidator checks queue/category containment before submission.
type PairValidator interface {
	ValidatePair(ctx context.Context, queueID, categoryID string) error
}

// CreateInput describes ticket creation payload. Status is not accepted;
// new tickets always start OPENED.
type CreateInput struct {
	QueueID     string
	CategoryID  string
	Title       string
	Details     string
	Priority    domain.TicketPriority
	DocumentIDs []string
}

// Machine defines the legal ticket operations. Every mutating operation is
// a single remote write routed through the coordinator and yields exactly
// one audit record.
type Machine struct {
	store       Store
	cache       *cache.Cache
	coordinator *syncer.Coordinator
	validator   PairValidator
	logger      *zap.Logger
}

// NewMachine constructs the state machine.
func NewMachine(store Store, c *cache.Cache, coordinator *syncer.Coordinator, validator PairValidator, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		store:       store,
		cache:       c,
		coordinator: coordinator,
		validator:   validator,
		logger:      logger,
	}
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpened:     {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusOpened},
	domain.TicketStatusClosed:     {domain.TicketStatusOpened},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// auditTypeFor picks the audit type for a status change. Transitions into
// CLOSED and transitions out of RESOLVED/CLOSED back to OPENED get the
// specific CLOSED/REOPENED types instead of the generic STATUS_CHANGED.
func auditTypeFor(from, to domain.TicketStatus) domain.HistoryType {
	if to == domain.TicketStatusClosed {
		return domain.HistoryClosed
	}
	if to == domain.TicketStatusOpened &&
		(from == domain.TicketStatusResolved || from == domain.TicketStatusClosed) {
		return domain.HistoryReopened
	}
	return domain.HistoryStatusChanged
}

// Ticket returns the cached ticket detail, refetching when stale.
func (m *Machine) Ticket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := cache.ReadAs(ctx, m.cache, cache.TicketDetail(id),
		func(ctx context.Context) (*domain.Ticket, error) {
			return m.store.GetTicket(ctx, id)
		})
	if err != nil {
		return nil, util.MapError(err)
	}
	return ticket, nil
}

// Create opens a new ticket. Status is forced to OPENED and the
// queue/category pair is validated before submission.
func (m *Machine) Create(ctx context.Context, actorID string, input CreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, util.NewValidationError("title required", nil)
	}
	if err := m.validator.ValidatePair(ctx, input.QueueID, input.CategoryID); err != nil {
		return nil, err
	}

	ticket := domain.Ticket{
		QueueID:     input.QueueID,
		CategoryID:  input.CategoryID,
		Title:       strings.TrimSpace(input.Title),
		Details:     strings.TrimSpace(input.Details),
		Status:      domain.TicketStatusOpened,
		Priority:    input.Priority,
		DocumentIDs: input.DocumentIDs,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	// No entity id exists yet; a one-off gate keeps unrelated creates from
	// blocking each other.
	result, err := m.coordinator.Execute(ctx, syncer.Mutation{
		Entity:   "ticket",
		EntityID: uuid.NewString(),
		Kind:     "create",
		Apply: func(ctx context.Context) (any, error) {
			return m.store.CreateTicket(ctx, ticket)
		},
		Audit: func(result any) *domain.HistoryItem {
			created := result.(*domain.Ticket)
			return &domain.HistoryItem{
				TicketID: created.ID,
				UserID:   actorID,
				Type:     domain.HistoryCreated,
				Details:  created.Title,
			}
		},
		Invalidate: func(result any) []cache.Key {
			created := result.(*domain.Ticket)
			return []cache.Key{cache.TicketDetail(created.ID)}
		},
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Ticket), nil
}

// Assign sets the ticket's assignee.
func (m *Machine) Assign(ctx context.Context, actorID, ticketID, userID string) (*domain.Ticket, error) {
	return m.patchTicket(ctx, actorID, ticketID, "assign",
		remote.TicketPatch{AssigneeID: &userID},
		domain.HistoryAssigned, userID, nil)
}

// ChangeStatus applies a status transition after validating it against the
// transition table. Illegal transitions are rejected without any write.
func (m *Machine) ChangeStatus(ctx context.Context, actorID, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	current, err := m.Ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(current.Status, newStatus) {
		return nil, util.NewInvalidTransition(string(current.Status), string(newStatus))
	}
	auditType := auditTypeFor(current.Status, newStatus)
	details := fmt.Sprintf("%s -> %s", current.Status, newStatus)
	return m.patchTicket(ctx, actorID, ticketID, "change_status",
		remote.TicketPatch{Status: &newStatus},
		auditType, details, nil)
}

// ChangePriority updates the ticket's priority.
func (m *Machine) ChangePriority(ctx context.Context, actorID, ticketID string, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	return m.patchTicket(ctx, actorID, ticketID, "change_priority",
		remote.TicketPatch{Priority: &newPriority},
		domain.HistoryPriorityChanged, string(newPriority), nil)
}

// ReassignQueueAndCategory moves the ticket to another queue and category in
// one write, so no intermediate state with a mismatched pair can be
// observed. The pair is validated client-side as a fast-fail; the server
// remains the final arbiter.
func (m *Machine) ReassignQueueAndCategory(ctx context.Context, actorID, ticketID, queueID, categoryID string) (*domain.Ticket, error) {
	if err := m.validator.ValidatePair(ctx, queueID, categoryID); err != nil {
		return nil, err
	}
	return m.patchTicket(ctx, actorID, ticketID, "reassign",
		remote.TicketPatch{QueueID: &queueID, CategoryID: &categoryID},
		domain.HistoryCategoryChanged, categoryID, nil)
}

// AddComment appends a comment to the ticket's trail. The comment write is
// itself the audit entry.
func (m *Machine) AddComment(ctx context.Context, actorID, ticketID, text string) (*domain.HistoryItem, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, util.NewEmptyComment()
	}
	result, err := m.coordinator.Execute(ctx, syncer.Mutation{
		Entity:   "ticket",
		EntityID: ticketID,
		Kind:     "add_comment",
		Apply: func(ctx context.Context) (any, error) {
			return m.store.AddComment(ctx, ticketID, actorID, text)
		},
		Invalidate: func(result any) []cache.Key {
			return []cache.Key{cache.HistoryByTicket(ticketID)}
		},
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.HistoryItem), nil
}

// AttachDocument links a document to the ticket.
func (m *Machine) AttachDocument(ctx context.Context, actorID, ticketID, documentID string) (*domain.Ticket, error) {
	return m.patchTicket(ctx, actorID, ticketID, "attach_document",
		remote.TicketPatch{AddDocumentID: &documentID},
		domain.HistoryDocumentAdded, documentID,
		[]cache.Key{cache.UserDocumentsList()})
}

// DetachDocument unlinks a document from the ticket.
func (m *Machine) DetachDocument(ctx context.Context, actorID, ticketID, documentID string) (*domain.Ticket, error) {
	return m.patchTicket(ctx, actorID, ticketID, "detach_document",
		remote.TicketPatch{RemoveDocumentID: &documentID},
		domain.HistoryDocumentRemoved, documentID,
		[]cache.Key{cache.UserDocumentsList()})
}

func (m *Machine) patchTicket(ctx context.Context, actorID, ticketID, kind string, patch remote.TicketPatch, auditType domain.HistoryType, auditDetails string, extraKeys []cache.Key) (*domain.Ticket, error) {
	result, err := m.coordinator.Execute(ctx, syncer.Mutation{
		Entity:   "ticket",
		EntityID: ticketID,
		Kind:     kind,
		Apply: func(ctx context.Context) (any, error) {
			return m.store.PatchTicket(ctx, ticketID, patch)
		},
		Audit: func(result any) *domain.HistoryItem {
			return &domain.HistoryItem{
				TicketID: ticketID,
				UserID:   actorID,
				Type:     auditType,
				Details:  auditDetails,
			}
		},
		Invalidate: func(result any) []cache.Key {
			keys := []cache.Key{cache.TicketDetail(ticketID)}
			return append(keys, extraKeys...)
		},
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Ticket), nil
}
