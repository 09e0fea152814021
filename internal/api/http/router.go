package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
	Catalog *handlers.CatalogHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/assign", cfg.Tickets.Assign)
	tickets.Post("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/priority", cfg.Tickets.ChangePriority)
	tickets.Post("/:id/reassign", cfg.Tickets.Reassign)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/documents", cfg.Tickets.AttachDocument)
	tickets.Delete("/:id/documents/:documentId", cfg.Tickets.DetachDocument)
	tickets.Get("/:id/history", cfg.Tickets.History)

	queues := app.Group("/queues")
	queues.Get("", cfg.Catalog.ListQueues)
	queues.Post("", cfg.Catalog.CreateQueue)
	queues.Get("/:id", cfg.Catalog.GetQueue)
	queues.Patch("/:id", cfg.Catalog.UpdateQueue)
	queues.Delete("/:id", cfg.Catalog.DeleteQueue)
	queues.Get("/:id/categories", cfg.Catalog.QueueCategories)
	queues.Post("/:id/users", cfg.Catalog.AddQueueUser)
	queues.Delete("/:id/users/:userId", cfg.Catalog.RemoveQueueUser)

	categories := app.Group("/categories")
	categories.Get("", cfg.Catalog.ListCategories)
	categories.Post("", cfg.Catalog.CreateCategory)
	categories.Get("/:id", cfg.Catalog.GetCategory)
	categories.Patch("/:id", cfg.Catalog.UpdateCategory)
	categories.Delete("/:id", cfg.Catalog.DeleteCategory)

	selection := app.Group("/selection")
	selection.Get("", cfg.Catalog.Selection)
	selection.Delete("", cfg.Catalog.ClearSelection)
	selection.Post("/queue", cfg.Catalog.SelectQueue)
	selection.Post("/category", cfg.Catalog.SelectCategory)
}
