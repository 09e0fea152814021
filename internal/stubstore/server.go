package stubstore

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

// Server is a small system-of-record used for local development. It owns
// the database and exposes the REST surface the cache layer syncs against.
// Responses are bare entities, not envelopes.
type Server struct {
	queues     QueueRepository
	categories CategoryRepository
	tickets    TicketRepository
	history    HistoryRepository
	logger     *zap.Logger
}

// NewServer wires the repositories.
func NewServer(pool *pgxpool.Pool, logger *zap.Logger) *Server {
	return &Server{
		queues:     NewQueueRepository(pool),
		categories: NewCategoryRepository(pool),
		tickets:    NewTicketRepository(pool),
		history:    NewHistoryRepository(pool),
		logger:     logger.With(zap.String("component", "stubstore")),
	}
}

// Register attaches all routes to the app.
func (s *Server) Register(app *fiber.App) {
	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/queues", s.listQueues)
	app.Post("/queues", s.createQueue)
	app.Get("/queues/:id", s.getQueue)
	app.Patch("/queues/:id", s.updateQueue)
	app.Delete("/queues/:id", s.deleteQueue)
	app.Post("/queues/:id/users", s.addQueueUser)
	app.Delete("/queues/:id/users/:userId", s.removeQueueUser)

	app.Get("/categories", s.listCategories)
	app.Post("/categories", s.createCategory)
	app.Get("/categories/queue/:queueId", s.listCategoriesByQueue)
	app.Get("/categories/:id", s.getCategory)
	app.Patch("/categories/:id", s.updateCategory)
	app.Delete("/categories/:id", s.deleteCategory)

	app.Post("/tickets", s.createTicket)
	app.Get("/tickets/:id", s.getTicket)
	app.Patch("/tickets/:id", s.patchTicket)

	app.Get("/history-items/ticket/:ticketId", s.listHistory)
	app.Post("/history-items", s.createHistoryItem)
	app.Post("/history-items/ticket/:ticketId/comment", s.addComment)
}

func mapStoreError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return util.NewNotFound("resource", nil)
	}
	return err
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return limit, (page - 1) * limit
}

// Queues

func (s *Server) listQueues(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	queues, err := s.queues.List(c.UserContext(), limit, offset, c.Query("search"))
	if err != nil {
		return err
	}
	if queues == nil {
		queues = []domain.Queue{}
	}
	return c.JSON(queues)
}

func (s *Server) createQueue(c *fiber.Ctx) error {
	var queue domain.Queue
	if err := c.BodyParser(&queue); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(queue.Name) == "" {
		return util.NewValidationError("name required", nil)
	}
	if err := s.queues.Create(c.UserContext(), &queue); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(queue)
}

func (s *Server) getQueue(c *fiber.Ctx) error {
	queue, err := s.queues.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(queue)
}

func (s *Server) updateQueue(c *fiber.Ctx) error {
	queue, err := s.queues.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapStoreError(err)
	}
	var patch struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.BodyParser(&patch); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if patch.Name != nil {
		queue.Name = *patch.Name
	}
	if patch.Description != nil {
		queue.Description = *patch.Description
	}
	if err := s.queues.Update(c.UserContext(), queue); err != nil {
		return mapStoreError(err)
	}
	return c.JSON(queue)
}

func (s *Server) deleteQueue(c *fiber.Ctx) error {
	if err := s.queues.Delete(c.UserContext(), c.Params("id")); err != nil {
		return mapStoreError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) addQueueUser(c *fiber.Ctx) error {
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.UserID == "" {
		return util.NewValidationError("user_id required", nil)
	}
	queue, err := s.queues.AddUser(c.UserContext(), c.Params("id"), body.UserID)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(queue)
}

func (s *Server) removeQueueUser(c *fiber.Ctx) error {
	if err := s.queues.RemoveUser(c.UserContext(), c.Params("id"), c.Params("userId")); err != nil {
		return mapStoreError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Categories

func (s *Server) listCategories(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	categories, err := s.categories.List(c.UserContext(), limit, offset, c.Query("search"))
	if err != nil {
		return err
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return c.JSON(categories)
}

func (s *Server) listCategoriesByQueue(c *fiber.Ctx) error {
	categories, err := s.categories.ListByQueue(c.UserContext(), c.Params("queueId"))
	if err != nil {
		return err
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return c.JSON(categories)
}

func (s *Server) getCategory(c *fiber.Ctx) error {
	category, err := s.categories.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(category)
}

func (s *Server) createCategory(c *fiber.Ctx) error {
	var category domain.Category
	if err := c.BodyParser(&category); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if category.QueueID == "" || strings.TrimSpace(category.Name) == "" {
		return util.NewValidationError("queue_id and name required", nil)
	}
	if _, err := s.queues.GetByID(c.UserContext(), category.QueueID); err != nil {
		return mapStoreError(err)
	}
	if err := s.categories.Create(c.UserContext(), &category); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (s *Server) updateCategory(c *fiber.Ctx) error {
	category, err := s.categories.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapStoreError(err)
	}
	var patch struct {
		Name *string `json:"name"`
	}
	if err := c.BodyParser(&patch); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if patch.Name != nil {
		category.Name = *patch.Name
	}
	if err := s.categories.Update(c.UserContext(), category); err != nil {
		return mapStoreError(err)
	}
	return c.JSON(category)
}

func (s *Server) deleteCategory(c *fiber.Ctx) error {
	if err := s.categories.Delete(c.UserContext(), c.Params("id")); err != nil {
		return mapStoreError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Tickets

func (s *Server) createTicket(c *fiber.Ctx) error {
	var ticket domain.Ticket
	if err := c.BodyParser(&ticket); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(ticket.Title) == "" {
		return util.NewValidationError("title required", nil)
	}
	if err := s.requirePair(c, ticket.QueueID, ticket.CategoryID); err != nil {
		return err
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpened
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if err := s.tickets.Create(c.UserContext(), &ticket); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(ticket)
}

func (s *Server) getTicket(c *fiber.Ctx) error {
	ticket, err := s.tickets.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(ticket)
}

func (s *Server) patchTicket(c *fiber.Ctx) error {
	var patch TicketPatch
	if err := c.BodyParser(&patch); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	// A queue move must carry its category in the same write.
	if (patch.QueueID == nil) != (patch.CategoryID == nil) {
		return util.NewValidationError("queue_id and category_id must change together", nil)
	}
	if patch.QueueID != nil {
		if err := s.requirePair(c, *patch.QueueID, *patch.CategoryID); err != nil {
			return err
		}
	}
	ticket, err := s.tickets.Patch(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(ticket)
}

func (s *Server) requirePair(c *fiber.Ctx, queueID, categoryID string) error {
	if queueID == "" || categoryID == "" {
		return util.NewValidationError("queue_id and category_id required", nil)
	}
	ok, err := s.categories.BelongsToQueue(c.UserContext(), categoryID, queueID)
	if err != nil {
		return err
	}
	if !ok {
		return util.NewInvalidAssignment(queueID, categoryID)
	}
	return nil
}

// History

func (s *Server) listHistory(c *fiber.Ctx) error {
	items, err := s.history.ListByTicket(c.UserContext(), c.Params("ticketId"))
	if err != nil {
		return err
	}
	if items == nil {
		items = []domain.HistoryItem{}
	}
	return c.JSON(items)
}

func (s *Server) createHistoryItem(c *fiber.Ctx) error {
	var item domain.HistoryItem
	if err := c.BodyParser(&item); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if item.TicketID == "" || item.Type == "" {
		return util.NewValidationError("ticket_id and type required", nil)
	}
	if err := s.history.Create(c.UserContext(), &item); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (s *Server) addComment(c *fiber.Ctx) error {
	var body struct {
		UserID string `json:"user_id"`
		Text   string `json:"text"`
	}
	if err := c.BodyParser(&body); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(body.Text) == "" {
		return util.NewEmptyComment()
	}
	item := domain.HistoryItem{
		TicketID: c.Params("ticketId"),
		UserID:   body.UserID,
		Type:     domain.HistoryComment,
		Details:  body.Text,
	}
	if err := s.history.Create(c.UserContext(), &item); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}
