package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/persistence"
)

// NotificationService fans mutation outcomes out to the UI layer. Outcomes
// are always logged; when Redis is reachable they are also published on the
// configured channel so other sessions can refresh.
type NotificationService struct {
	dispatcher events.Dispatcher
	redis      *persistence.Redis
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, redis *persistence.Redis, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		redis:      redis,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to mutation outcome events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventMutationSucceeded, n.handleOutcome)
	n.dispatcher.Subscribe(events.EventMutationFailed, n.handleOutcome)
}

func (n *NotificationService) handleOutcome(ctx context.Context, event events.Event) error {
	n.logger.Info("mutation outcome",
		zap.String("type", string(event.Type)),
		zap.String("entity", event.Entity),
		zap.String("entity_id", event.EntityID),
		zap.String("kind", event.Kind))
	n.publishToChannel(ctx, event)
	return nil
}

func (n *NotificationService) publishToChannel(ctx context.Context, event events.Event) {
	if n.redis == nil || n.redis.Client == nil || n.cfg.Channel == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("encode notification", zap.Error(err))
		return
	}
	if err := n.redis.Client.Publish(ctx, n.cfg.Channel, payload).Err(); err != nil {
		n.logger.Warn("publish notification",
			zap.String("channel", n.cfg.Channel),
			zap.Error(err))
	}
}
