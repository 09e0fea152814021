package hierarchy

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/cache"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

// ErrStaleResponseDiscarded signals that a category fetch completed after
// its queue selection was superseded and its result was dropped. It is an
// internal signal, never a user-facing error.
var ErrStaleResponseDiscarded = errors.New("stale category response discarded")

// Source supplies queues and categories from the system-of-record.
type Source interface {
	ListQueues(ctx context.Context, page, limit int, search string) ([]domain.Queue, error)
	ListCategoriesByQueue(ctx context.Context, queueID string) ([]domain.Category, error)
}

// Option is a selectable id/name pair.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Resolver supplies queue options and the categories legally selectable for
// a chosen queue. It guarantees that no (queueId, categoryId) pair where the
// category belongs to a different queue can be selected or submitted:
// changing the queue clears the category synchronously, and category
// responses for superseded queue selections are discarded by generation tag.
type Resolver struct {
	cache  *cache.Cache
	source Source
	logger *zap.Logger

	mu               sync.Mutex
	selectedQueue    string
	selectedCategory string
	generation       uint64
	categories       []domain.Category
}

// NewResolver builds a resolver reading through the given cache.
func NewResolver(c *cache.Cache, source Source, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{cache: c, source: source, logger: logger}
}

// ListQueues returns queue options for pickers.
func (r *Resolver) ListQueues(ctx context.Context, page, limit int) ([]Option, error) {
	queues, err := cache.ReadAs(ctx, r.cache, cache.QueuesByQuery(page, limit, ""),
		func(ctx context.Context) ([]domain.Queue, error) {
			return r.source.ListQueues(ctx, page, limit, "")
		})
	if err != nil {
		return nil, util.MapError(err)
	}
	options := make([]Option, 0, len(queues))
	for _, q := range queues {
		options = append(options, Option{ID: q.ID, Name: q.Name})
	}
	return options, nil
}

// CategoriesForQueue returns category options scoped to queueID. An unset
// queue yields an empty sequence, not an error.
func (r *Resolver) CategoriesForQueue(ctx context.Context, queueID string) ([]Option, error) {
	categories, err := r.loadCategories(ctx, queueID)
	if err != nil {
		return nil, err
	}
	return toOptions(categories), nil
}

// SelectQueue records a new queue selection and loads its categories. The
// previous category selection is cleared before any fetch is issued, so no
// mismatched pair is ever observable. If the selection changes again while
// the fetch is in flight the response is discarded.
func (r *Resolver) SelectQueue(ctx context.Context, queueID string) ([]Option, error) {
	r.mu.Lock()
	if queueID == r.selectedQueue {
		current := toOptions(r.categories)
		r.mu.Unlock()
		return current, nil
	}
	r.selectedQueue = queueID
	r.selectedCategory = ""
	r.categories = nil
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	if queueID == "" {
		return []Option{}, nil
	}

	categories, err := r.loadCategories(ctx, queueID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		r.logger.Debug("discarding category response for superseded queue selection",
			zap.String("queue_id", queueID))
		return nil, ErrStaleResponseDiscarded
	}
	r.categories = categories
	return toOptions(categories), nil
}

// SelectCategory records a category selection. The category must belong to
// the currently selected queue.
func (r *Resolver) SelectCategory(categoryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if categoryID == "" {
		r.selectedCategory = ""
		return nil
	}
	for _, c := range r.categories {
		if c.ID == categoryID {
			r.selectedCategory = categoryID
			return nil
		}
	}
	return util.NewInvalidAssignment(r.selectedQueue, categoryID)
}

// Selection reports the current (queueId, categoryId) pair.
func (r *Resolver) Selection() (queueID, categoryID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectedQueue, r.selectedCategory
}

// ClearSelection resets both selections.
func (r *Resolver) ClearSelection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selectedQueue = ""
	r.selectedCategory = ""
	r.categories = nil
	r.generation++
}

// ValidatePair checks that categoryID belongs to queueID. Used as the
// client-side fast-fail before reassignment writes; the server remains the
// final arbiter.
func (r *Resolver) ValidatePair(ctx context.Context, queueID, categoryID string) error {
	if queueID == "" || categoryID == "" {
		return util.NewInvalidAssignment(queueID, categoryID)
	}
	categories, err := r.loadCategories(ctx, queueID)
	if err != nil {
		return err
	}
	for _, c := range categories {
		if c.ID == categoryID {
			return nil
		}
	}
	return util.NewInvalidAssignment(queueID, categoryID)
}

func (r *Resolver) loadCategories(ctx context.Context, queueID string) ([]domain.Category, error) {
	if queueID == "" {
		return []domain.Category{}, nil
	}
	categories, err := cache.ReadAs(ctx, r.cache, cache.CategoriesByQueue(queueID),
		func(ctx context.Context) ([]domain.Category, error) {
			return r.source.ListCategoriesByQueue(ctx, queueID)
		})
	if err != nil {
		return nil, util.MapError(err)
	}
	return categories, nil
}

func toOptions(categories []domain.Category) []Option {
	options := make([]Option, 0, len(categories))
	for _, c := range categories {
		options = append(options, Option{ID: c.ID, Name: c.Name})
	}
	return options
}
