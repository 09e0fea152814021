package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/api/dto"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/hierarchy"
	"github.com/spec-kit/helpdesk-core/internal/remote"
	"github.com/spec-kit/helpdesk-core/internal/service"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

// CatalogHandler exposes queue and category management plus the cascading
// queue/category selection used by ticket forms.
type CatalogHandler struct {
	catalog  *service.CatalogService
	resolver *hierarchy.Resolver
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService, resolver *hierarchy.Resolver) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, resolver: resolver}
}

// ListQueues GET /queues.
func (h *CatalogHandler) ListQueues(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), 20)
	queues, err := h.catalog.ListQueues(c.UserContext(), page, limit, c.Query("search"))
	if err != nil {
		return err
	}
	items := make([]dto.QueueResponse, 0, len(queues))
	for i := range queues {
		items = append(items, dto.QueueFromDomain(&queues[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetQueue GET /queues/:id.
func (h *CatalogHandler) GetQueue(c *fiber.Ctx) error {
	queue, err := h.catalog.GetQueue(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.QueueFromDomain(queue)})
}

// CreateQueue POST /queues.
func (h *CatalogHandler) CreateQueue(c *fiber.Ctx) error {
	var req dto.CreateQueueRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	queue, err := h.catalog.CreateQueue(c.UserContext(), domain.Queue{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.QueueFromDomain(queue)})
}

// UpdateQueue PATCH /queues/:id.
func (h *CatalogHandler) UpdateQueue(c *fiber.Ctx) error {
	var req dto.UpdateQueueRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	queue, err := h.catalog.UpdateQueue(c.UserContext(), c.Params("id"), remote.QueuePatch{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.QueueFromDomain(queue)})
}

// DeleteQueue DELETE /queues/:id.
func (h *CatalogHandler) DeleteQueue(c *fiber.Ctx) error {
	if err := h.catalog.DeleteQueue(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddQueueUser POST /queues/:id/users.
func (h *CatalogHandler) AddQueueUser(c *fiber.Ctx) error {
	var req dto.QueueUserRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" {
		return util.NewValidationError("user_id required", nil)
	}
	queue, err := h.catalog.AddQueueUser(c.UserContext(), c.Params("id"), req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.QueueFromDomain(queue)})
}

// RemoveQueueUser DELETE /queues/:id/users/:userId.
func (h *CatalogHandler) RemoveQueueUser(c *fiber.Ctx) error {
	if err := h.catalog.RemoveQueueUser(c.UserContext(), c.Params("id"), c.Params("userId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListCategories GET /categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), 20)
	categories, err := h.catalog.ListCategories(c.UserContext(), page, limit, c.Query("search"))
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, dto.CategoryFromDomain(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetCategory GET /categories/:id.
func (h *CatalogHandler) GetCategory(c *fiber.Ctx) error {
	category, err := h.catalog.GetCategory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CategoryFromDomain(category)})
}

// CreateCategory POST /categories.
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req dto.CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	category, err := h.catalog.CreateCategory(c.UserContext(), domain.Category{QueueID: req.QueueID, Name: req.Name})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.CategoryFromDomain(category)})
}

// UpdateCategory PATCH /categories/:id.
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	var req dto.UpdateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	category, err := h.catalog.UpdateCategory(c.UserContext(), c.Params("id"), c.Query("queue_id"), remote.CategoryPatch{Name: req.Name})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CategoryFromDomain(category)})
}

// DeleteCategory DELETE /categories/:id.
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	if err := h.catalog.DeleteCategory(c.UserContext(), c.Params("id"), c.Query("queue_id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// QueueCategories GET /queues/:id/categories returns the selectable
// categories for a queue.
func (h *CatalogHandler) QueueCategories(c *fiber.Ctx) error {
	options, err := h.resolver.CategoriesForQueue(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": optionResponses(options)})
}

// SelectQueue POST /selection/queue drives the cascading form selection.
func (h *CatalogHandler) SelectQueue(c *fiber.Ctx) error {
	var req struct {
		QueueID string `json:"queue_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.QueueID == "" {
		return util.NewValidationError("queue_id required", nil)
	}
	options, err := h.resolver.SelectQueue(c.UserContext(), req.QueueID)
	if err != nil {
		if errors.Is(err, hierarchy.ErrStaleResponseDiscarded) {
			return h.Selection(c)
		}
		return err
	}
	queueID, categoryID := h.resolver.Selection()
	return c.JSON(fiber.Map{"data": dto.SelectionResponse{
		QueueID:    queueID,
		CategoryID: categoryID,
		Categories: optionResponses(options),
	}})
}

// SelectCategory POST /selection/category.
func (h *CatalogHandler) SelectCategory(c *fiber.Ctx) error {
	var req struct {
		CategoryID string `json:"category_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if err := h.resolver.SelectCategory(req.CategoryID); err != nil {
		return err
	}
	return h.Selection(c)
}

// Selection GET /selection reports the current pair.
func (h *CatalogHandler) Selection(c *fiber.Ctx) error {
	queueID, categoryID := h.resolver.Selection()
	resp := dto.SelectionResponse{QueueID: queueID, CategoryID: categoryID}
	if queueID != "" {
		options, err := h.resolver.CategoriesForQueue(c.UserContext(), queueID)
		if err != nil {
			return err
		}
		resp.Categories = optionResponses(options)
	}
	return c.JSON(fiber.Map{"data": resp})
}

// ClearSelection DELETE /selection.
func (h *CatalogHandler) ClearSelection(c *fiber.Ctx) error {
	h.resolver.ClearSelection()
	return c.SendStatus(fiber.StatusNoContent)
}

func optionResponses(options []hierarchy.Option) []dto.OptionResponse {
	resp := make([]dto.OptionResponse, 0, len(options))
	for _, opt := range options {
		resp = append(resp, dto.OptionResponse{ID: opt.ID, Name: opt.Name})
	}
	return resp
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
