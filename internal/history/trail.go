package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/cache"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

// Source lists audit entries from the system-of-record.
type Source interface {
	ListHistoryByTicket(ctx context.Context, ticketID string) ([]domain.HistoryItem, error)
}

// Directory resolves user ids to display names. It is the only external
// lookup rendering is allowed to make.
type Directory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// RenderedItem is a display-ready trail entry.
type RenderedItem struct {
	ID        string             `json:"id"`
	Type      domain.HistoryType `json:"type"`
	Actor     string             `json:"actor"`
	Text      string             `json:"text"`
	CreatedAt time.Time          `json:"created_at"`
}

// Trail is the read-only per-ticket audit projection, ordered ascending by
// creation time with ties kept in store order.
type Trail struct {
	cache     *cache.Cache
	source    Source
	directory Directory
	logger    *zap.Logger
}

// NewTrail constructs the projection.
func NewTrail(c *cache.Cache, source Source, directory Directory, logger *zap.Logger) *Trail {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trail{cache: c, source: source, directory: directory, logger: logger}
}

// ForTicket returns the ticket's audit entries, cached.
func (t *Trail) ForTicket(ctx context.Context, ticketID string) ([]domain.HistoryItem, error) {
	items, err := cache.ReadAs(ctx, t.cache, cache.HistoryByTicket(ticketID),
		func(ctx context.Context) ([]domain.HistoryItem, error) {
			fetched, err := t.source.ListHistoryByTicket(ctx, ticketID)
			if err != nil {
				return nil, err
			}
			// The store reports insertion order; a stable sort keeps it for
			// equal timestamps.
			sort.SliceStable(fetched, func(i, j int) bool {
				return fetched[i].CreatedAt.Before(fetched[j].CreatedAt)
			})
			return fetched, nil
		})
	if err != nil {
		return nil, util.MapError(err)
	}
	return items, nil
}

// Rendered returns the ticket's trail ready for display.
func (t *Trail) Rendered(ctx context.Context, ticketID string) ([]RenderedItem, error) {
	items, err := t.ForTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	rendered := make([]RenderedItem, 0, len(items))
	for _, item := range items {
		actor := item.UserID
		if t.directory != nil && item.UserID != "" {
			name, dirErr := t.directory.DisplayName(ctx, item.UserID)
			if dirErr != nil {
				t.logger.Warn("user directory lookup failed",
					zap.String("user_id", item.UserID),
					zap.Error(dirErr))
			} else {
				actor = name
			}
		}
		rendered = append(rendered, RenderedItem{
			ID:        item.ID,
			Type:      item.Type,
			Actor:     actor,
			Text:      RenderDetails(item.Type, item.Details),
			CreatedAt: item.CreatedAt,
		})
	}
	return rendered, nil
}

// RenderDetails formats an entry's details as a pure function of
// (type, details). Every history type must be handled here; an unknown tag
// falls through to a raw rendering so new server-side types stay visible.
func RenderDetails(historyType domain.HistoryType, details string) string {
	switch historyType {
	case domain.HistoryComment:
		return details
	case domain.HistoryCreated:
		return fmt.Sprintf("created ticket %q", details)
	case domain.HistoryAssigned:
		return fmt.Sprintf("assigned to %s", details)
	case domain.HistoryStatusChanged:
		return fmt.Sprintf("changed status %s", details)
	case domain.HistoryClosed:
		return "closed the ticket"
	case domain.HistoryReopened:
		return "reopened the ticket"
	case domain.HistoryDocumentAdded:
		return fmt.Sprintf("attached document %s", details)
	case domain.HistoryDocumentRemoved:
		return fmt.Sprintf("removed document %s", details)
	case domain.HistoryPriorityChanged:
		return fmt.Sprintf("set priority to %s", details)
	case domain.HistoryCategoryChanged:
		return fmt.Sprintf("moved to category %s", details)
	default:
		return fmt.Sprintf("%s: %s", historyType, details)
	}
}
