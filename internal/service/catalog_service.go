package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-core/internal/cache"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/remote"
	"github.com/spec-kit/helpdesk-core/internal/syncer"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

// CatalogStore is the slice of the system-of-record the catalog reads and
// writes.
type CatalogStore interface {
	ListQueues(ctx context.Context, page, limit int, search string) ([]domain.Queue, error)
	GetQueue(ctx context.Context, id string) (*domain.Queue, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	ListCategories(ctx context.Context, page, limit int, search string) ([]domain.Category, error)
	CreateQueue(ctx context.Context, queue domain.Queue) (*domain.Queue, error)
	UpdateQueue(ctx context.Context, id string, patch remote.QueuePatch) (*domain.Queue, error)
	DeleteQueue(ctx context.Context, id string) error
	AddQueueUser(ctx context.Context, queueID, userID string) (*domain.Queue, error)
	RemoveQueueUser(ctx context.Context, queueID, userID string) error
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id string, patch remote.CategoryPatch) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// CatalogService manages queues and categories, routing every write through
// the coordinator so the affected list and detail keys are invalidated.
type CatalogService struct {
	store       CatalogStore
	coordinator *syncer.Coordinator
	cache       *cache.Cache
}

// NewCatalogService constructs the service.
func NewCatalogService(store CatalogStore, coordinator *syncer.Coordinator, c *cache.Cache) *CatalogService {
	return &CatalogService{store: store, coordinator: coordinator, cache: c}
}

// ListQueues serves the queue list through the cache.
func (s *CatalogService) ListQueues(ctx context.Context, page, limit int, search string) ([]domain.Queue, error) {
	return cache.ReadAs(ctx, s.cache, cache.QueuesByQuery(page, limit, search), func(ctx context.Context) ([]domain.Queue, error) {
		return s.store.ListQueues(ctx, page, limit, search)
	})
}

// GetQueue serves one queue through the cache.
func (s *CatalogService) GetQueue(ctx context.Context, id string) (*domain.Queue, error) {
	return cache.ReadAs(ctx, s.cache, cache.QueueDetail(id), func(ctx context.Context) (*domain.Queue, error) {
		return s.store.GetQueue(ctx, id)
	})
}

// ListCategories serves the cross-queue category list through the cache.
func (s *CatalogService) ListCategories(ctx context.Context, page, limit int, search string) ([]domain.Category, error) {
	return cache.ReadAs(ctx, s.cache, cache.CategoriesByQuery(page, limit, search), func(ctx context.Context) ([]domain.Category, error) {
		return s.store.ListCategories(ctx, page, limit, search)
	})
}

// GetCategory serves one category through the cache.
func (s *CatalogService) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	return cache.ReadAs(ctx, s.cache, cache.CategoryDetail(id), func(ctx context.Context) (*domain.Category, error) {
		return s.store.GetCategory(ctx, id)
	})
}

// CreateQueue registers a new queue.
func (s *CatalogService) CreateQueue(ctx context.Context, queue domain.Queue) (*domain.Queue, error) {
	if strings.TrimSpace(queue.Name) == "" {
		return nil, util.NewValidationError("queue name required", nil)
	}
	result, err := s.coordinator.Execute(ctx, syncer.Mutation{
		Entity:   "queue",
		EntityID: uuid.NewString(),
		Kind:     "create_queue",
		Apply: func(ctx context.Context) (any, error) {
			return s.store.CreateQueue(ctx, queue)
		},
		Invalidate: func(result any) []cache.Key {
			return []cache.Key{cache.AllQueueLists()}
		},
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Queue), nil
}

// UpdateQueue applies a partial queue update.
func (s *CatalogService) UpdateQueue(ctx context.Context, id string, patch remote.QueuePatch) (*domain.Queue, error) {
	result, err := s.coordinator.Execute(ctx, syncer.Mutation{
		Entity:   "queue",
		EntityID: id,
		Kind:     "update_queue",
		Apply: func(ctx context.Context) (any, error) {
			return s.store.UpdateQueue(ctx, id, patch)
		},
		Invalidate: func(result any) []cache.Key {
			return []cache.Key{cache.QueueDetail(id), cache.AllQueueLists()}
		},
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Queue), nil
}

// DeleteQueue removes a queue. Its category lists are invalidated too since
// they can no longer be served.
func (s *CatalogService) DeleteQueue(ctx context.Context, id string) error {
	_, err := s.coordinator.Execute(ctx, syncer.Mutation{
		Entity:   "queue",
		EntityID: id,
		Kind:     "delete_queue",
		Apply: func(ctx context.Context) (any, error) {
			return nil, s.store.DeleteQueue(ctx, id)
		},
		Invalidate: func(result any) []cache.Key {
			return []cache.Key{cache.AllQueues(), cache.CategoriesByQueue(id)}
		},
	})
	return err
}

// AddQueueUser makes a user eligible for assignment from the queue.
func (s *CatalogService) AddQueueUser(ctx context.Context, queueID, userID string) (*domain.Queue, error) {
	result, err := s.coordinator.Execute(ctx, syncer.Mutation{
		Entity:   "queue",
		EntityID: queueID,
		Kind:     "add_queue_user",
		Apply: func(ctx context.Context) (any, error) {
			return s.store.AddQueueUser(ctx, queueID, userID)
		},
		Invalidate: func(result any) []cache.Key {
			return []cache.Key{cache.QueueDetail(queueID)}
		},
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Queue), nil
}

// RemoveQueueUser withdraws a user's assignment eligibility.
func (s *CatalogService) RemoveQueueUser(ctx context.Context, queueID, userID string) error {
	_, err := s.coordinator.Execute(ctx, syncer.Mutation{
		Entity:   "queue",
		EntityID: queueID,
		Kind:     "remove_queue_user",
		Apply: func(ctx context.Context) (any, error) {
			return nil, s.store.RemoveQueueUser(ctx, queueID, userID)
		},
		Invalidate: func(result any) []cache.Key {
			return []cache.Key{cache.QueueDetail(queueID)}
		},
	})
	return err
}

// CreateCategory adds a category under its queue.
func (s *CatalogService) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if strings.TrimSpace(category.Name) == "" {
		return nil, util.NewValidationError("category name required", nil)
	}
	if category.QueueID == "" {
		return nil, util.NewValidationError("queue_id required", nil)
	}
	result, err := s.coordinator.Execute(ctx, syncer.Mutation{
		Entity:   "category",
		EntityID: uuid.NewString(),
		Kind:     "create_category",
		Apply: func(ctx context.Context) (any, error) {
			return s.store.CreateCategory(ctx, category)
		},
		Invalidate: func(result any) []cache.Key {
			return []cache.Key{cache.CategoriesByQueue(category.QueueID), cache.AllCategoryLists()}
		},
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Category), nil
}

// UpdateCategory renames a category. The owning queue's list is invalidated
// along with the detail key.
func (s *CatalogService) UpdateCategory(ctx context.Context, id, queueID string, patch remote.CategoryPatch) (*domain.Category, error) {
	result, err := s.coordinator.Execute(ctx, syncer.Mutation{
		Entity:   "category",
		EntityID: id,
		Kind:     "update_category",
		Apply: func(ctx context.Context) (any, error) {
			return s.store.UpdateCategory(ctx, id, patch)
		},
		Invalidate: func(result any) []cache.Key {
			return []cache.Key{cache.CategoryDetail(id), cache.CategoriesByQueue(queueID), cache.AllCategoryLists()}
		},
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Category), nil
}

// DeleteCategory removes a category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id, queueID string) error {
	_, err := s.coordinator.Execute(ctx, syncer.Mutation{
		Entity:   "category",
		EntityID: id,
		Kind:     "delete_category",
		Apply: func(ctx context.Context) (any, error) {
			return nil, s.store.DeleteCategory(ctx, id)
		},
		Invalidate: func(result any) []cache.Key {
			return []cache.Key{cache.CategoryDetail(id), cache.CategoriesByQueue(queueID), cache.AllCategoryLists()}
		},
	})
	return err
}
