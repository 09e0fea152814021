package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/cache"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

// AuditSink records derived audit entries with the system-of-record.
type AuditSink interface {
	CreateHistoryItem(ctx context.Context, item domain.HistoryItem) (*domain.HistoryItem, error)
}

// Mutation describes one remote write plus its cache and audit side effects.
type Mutation struct {
	Entity   string
	EntityID string
	Kind     string
	// Apply issues the single remote write and returns its result.
	Apply func(ctx context.Context) (any, error)
	// Audit derives the audit record from the Apply result. Nil for
	// operations whose write already is the audit entry (comments) or that
	// produce none.
	Audit func(result any) *domain.HistoryItem
	// Invalidate derives the cache keys to mark stale on success.
	Invalidate func(result any) []cache.Key
}

// Coordinator executes mutations one at a time per entity, pushes successful
// writes into the cache via targeted invalidation, and fans out
// success/failure notifications. Nothing else mutates the cache.
type Coordinator struct {
	mu       sync.Mutex
	inflight map[string]struct{}

	cache      *cache.Cache
	audits     AuditSink
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewCoordinator constructs the coordinator.
func NewCoordinator(c *cache.Cache, audits AuditSink, dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		inflight:   make(map[string]struct{}),
		cache:      c,
		audits:     audits,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// Execute runs the mutation. A second mutation for the same (entity, id)
// while one is pending is rejected locally without any network call.
func (co *Coordinator) Execute(ctx context.Context, m Mutation) (any, error) {
	gate := m.Entity + "/" + m.EntityID
	co.mu.Lock()
	if _, busy := co.inflight[gate]; busy {
		co.mu.Unlock()
		return nil, util.NewMutationInFlight(m.Entity, m.EntityID)
	}
	co.inflight[gate] = struct{}{}
	co.mu.Unlock()
	defer func() {
		co.mu.Lock()
		delete(co.inflight, gate)
		co.mu.Unlock()
	}()

	result, err := m.Apply(ctx)
	if err != nil {
		// Failure leaves the cache untouched so a retry starts from a
		// known-consistent state. The cause is for the logs only.
		co.metrics.RecordMutation(m.Kind, false)
		co.logger.Error("mutation failed",
			zap.String("entity", m.Entity),
			zap.String("entity_id", m.EntityID),
			zap.String("kind", m.Kind),
			zap.Error(err))
		co.publish(ctx, events.EventMutationFailed, m, "the change could not be saved")
		return nil, util.MapError(err)
	}

	if m.Audit != nil && co.audits != nil {
		if record := m.Audit(result); record != nil {
			if _, auditErr := co.audits.CreateHistoryItem(ctx, *record); auditErr != nil {
				co.logger.Warn("audit record write failed",
					zap.String("ticket_id", record.TicketID),
					zap.String("type", string(record.Type)),
					zap.Error(auditErr))
			}
			co.cache.Invalidate(cache.HistoryByTicket(record.TicketID))
		}
	}
	if m.Invalidate != nil {
		for _, key := range m.Invalidate(result) {
			co.cache.Invalidate(key)
		}
	}
	co.cache.Invalidate(cache.NotificationsList())

	co.metrics.RecordMutation(m.Kind, true)
	co.publish(ctx, events.EventMutationSucceeded, m, "change saved")
	return result, nil
}

func (co *Coordinator) publish(ctx context.Context, eventType events.EventType, m Mutation, message string) {
	if co.dispatcher == nil {
		return
	}
	_ = co.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Entity:    m.Entity,
		EntityID:  m.EntityID,
		Kind:      m.Kind,
		Message:   message,
		Timestamp: time.Now(),
	})
}
