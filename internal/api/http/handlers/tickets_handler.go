package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/api/dto"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/history"
	"github.com/spec-kit/helpdesk-core/internal/lifecycle"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

// TicketsHandler exposes the ticket lifecycle operations.
type TicketsHandler struct {
	machine *lifecycle.Machine
	trail   *history.Trail
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(machine *lifecycle.Machine, trail *history.Trail) *TicketsHandler {
	return &TicketsHandler{machine: machine, trail: trail}
}

func actorID(c *fiber.Ctx) (string, error) {
	actor := c.Get("X-User-ID")
	if actor == "" {
		return "", util.NewUnauthorized("acting user required")
	}
	return actor, nil
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.machine.Create(c.UserContext(), actor, lifecycle.CreateInput{
		QueueID:     req.QueueID,
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Details:     req.Details,
		Priority:    req.Priority,
		DocumentIDs: req.DocumentIDs,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.machine.Ticket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" {
		return util.NewValidationError("user_id required", nil)
	}
	ticket, err := h.machine.Assign(c.UserContext(), actor, c.Params("id"), req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ChangeStatus POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var req dto.StatusChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.machine.ChangeStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ChangePriority POST /tickets/:id/priority.
func (h *TicketsHandler) ChangePriority(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var req dto.PriorityChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.machine.ChangePriority(c.UserContext(), actor, c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Reassign POST /tickets/:id/reassign.
func (h *TicketsHandler) Reassign(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var req dto.ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.QueueID == "" || req.CategoryID == "" {
		return util.NewValidationError("queue_id and category_id required", nil)
	}
	ticket, err := h.machine.ReassignQueueAndCategory(c.UserContext(), actor, c.Params("id"), req.QueueID, req.CategoryID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	item, err := h.machine.AddComment(c.UserContext(), actor, c.Params("id"), req.Text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": historyItemResponse(item)})
}

// AttachDocument POST /tickets/:id/documents.
func (h *TicketsHandler) AttachDocument(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var req dto.DocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.DocumentID == "" {
		return util.NewValidationError("document_id required", nil)
	}
	ticket, err := h.machine.AttachDocument(c.UserContext(), actor, c.Params("id"), req.DocumentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// DetachDocument DELETE /tickets/:id/documents/:documentId.
func (h *TicketsHandler) DetachDocument(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	ticket, err := h.machine.DetachDocument(c.UserContext(), actor, c.Params("id"), c.Params("documentId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// History GET /tickets/:id/history. With render=true the entries are
// resolved to display names and human-readable text.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	ticketID := c.Params("id")
	if c.QueryBool("render") {
		items, err := h.trail.Rendered(c.UserContext(), ticketID)
		if err != nil {
			return err
		}
		resp := make([]dto.RenderedHistoryResponse, 0, len(items))
		for _, item := range items {
			resp = append(resp, dto.RenderedHistoryResponse{
				ID:        item.ID,
				Type:      item.Type,
				Actor:     item.Actor,
				Text:      item.Text,
				CreatedAt: item.CreatedAt,
			})
		}
		return c.JSON(fiber.Map{"data": resp})
	}
	items, err := h.trail.ForTicket(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	resp := make([]dto.HistoryItemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, historyItemResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:          ticket.ID,
		QueueID:     ticket.QueueID,
		CategoryID:  ticket.CategoryID,
		Title:       ticket.Title,
		Details:     ticket.Details,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		AssigneeID:  ticket.AssigneeID,
		DocumentIDs: ticket.DocumentIDs,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func historyItemResponse(item *domain.HistoryItem) dto.HistoryItemResponse {
	return dto.HistoryItemResponse{
		ID:        item.ID,
		TicketID:  item.TicketID,
		UserID:    item.UserID,
		Type:      item.Type,
		Details:   item.Details,
		CreatedAt: item.CreatedAt,
	}
}
