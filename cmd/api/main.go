package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-core/internal/api/http"
	"github.com/spec-kit/helpdesk-core/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-core/internal/cache"
	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/hierarchy"
	"github.com/spec-kit/helpdesk-core/internal/history"
	"github.com/spec-kit/helpdesk-core/internal/lifecycle"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/persistence"
	"github.com/spec-kit/helpdesk-core/internal/remote"
	"github.com/spec-kit/helpdesk-core/internal/service"
	"github.com/spec-kit/helpdesk-core/internal/session"
	"github.com/spec-kit/helpdesk-core/internal/syncer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	entityCache := cache.New(cfg.Cache.MaxEntries, cfg.Cache.StaleAfter(), logger, metrics)
	remoteClient := remote.NewClient(cfg.Remote, logger)

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, redis, logger, cfg.Notification)
	notifications.RegisterHandlers()

	coordinator := syncer.NewCoordinator(entityCache, remoteClient, dispatcher, logger, metrics)
	resolver := hierarchy.NewResolver(entityCache, remoteClient, logger)
	machine := lifecycle.NewMachine(remoteClient, entityCache, coordinator, resolver, logger)
	trail := history.NewTrail(entityCache, remoteClient, nil, logger)
	catalog := service.NewCatalogService(remoteClient, coordinator, entityCache)
	registry := session.NewRegistry(cfg.Session.JWTSecret, entityCache, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, registry, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, remoteClient, redis),
		Tickets: handlers.NewTicketsHandler(machine, trail),
		Catalog: handlers.NewCatalogHandler(catalog, resolver),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
