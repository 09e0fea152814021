package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/cache"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/remote"
	"github.com/spec-kit/helpdesk-core/internal/syncer"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

type fakeCatalogStore struct {
	queues        map[string]*domain.Queue
	categories    map[string]*domain.Category
	listQueueHits int
	failNext      error
}

func newFakeCatalogStore() *fakeCatalogStore {
	return &fakeCatalogStore{
		queues:     make(map[string]*domain.Queue),
		categories: make(map[string]*domain.Category),
	}
}

func (f *fakeCatalogStore) take() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeCatalogStore) ListQueues(ctx context.Context, page, limit int, search string) ([]domain.Queue, error) {
	f.listQueueHits++
	out := make([]domain.Queue, 0, len(f.queues))
	for _, q := range f.queues {
		out = append(out, *q)
	}
	return out, nil
}

func (f *fakeCatalogStore) GetQueue(ctx context.Context, id string) (*domain.Queue, error) {
	q, ok := f.queues[id]
	if !ok {
		return nil, util.NewNotFound("queue", nil)
	}
	copied := *q
	return &copied, nil
}

func (f *fakeCatalogStore) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	cat, ok := f.categories[id]
	if !ok {
		return nil, util.NewNotFound("category", nil)
	}
	copied := *cat
	return &copied, nil
}

func (f *fakeCatalogStore) ListCategories(ctx context.Context, page, limit int, search string) ([]domain.Category, error) {
	out := make([]domain.Category, 0, len(f.categories))
	for _, cat := range f.categories {
		out = append(out, *cat)
	}
	return out, nil
}

func (f *fakeCatalogStore) CreateQueue(ctx context.Context, queue domain.Queue) (*domain.Queue, error) {
	if err := f.take(); err != nil {
		return nil, err
	}
	queue.ID = "q-" + queue.Name
	queue.CreatedAt = time.Now()
	queue.UpdatedAt = queue.CreatedAt
	f.queues[queue.ID] = &queue
	return &queue, nil
}

func (f *fakeCatalogStore) UpdateQueue(ctx context.Context, id string, patch remote.QueuePatch) (*domain.Queue, error) {
	q, ok := f.queues[id]
	if !ok {
		return nil, util.NewNotFound("queue", nil)
	}
	if patch.Name != nil {
		q.Name = *patch.Name
	}
	if patch.Description != nil {
		q.Description = *patch.Description
	}
	copied := *q
	return &copied, nil
}

func (f *fakeCatalogStore) DeleteQueue(ctx context.Context, id string) error {
	delete(f.queues, id)
	return nil
}

func (f *fakeCatalogStore) AddQueueUser(ctx context.Context, queueID, userID string) (*domain.Queue, error) {
	q, ok := f.queues[queueID]
	if !ok {
		return nil, util.NewNotFound("queue", nil)
	}
	q.AssignedUserIDs = append(q.AssignedUserIDs, userID)
	copied := *q
	return &copied, nil
}

func (f *fakeCatalogStore) RemoveQueueUser(ctx context.Context, queueID, userID string) error {
	q, ok := f.queues[queueID]
	if !ok {
		return util.NewNotFound("queue", nil)
	}
	kept := q.AssignedUserIDs[:0]
	for _, id := range q.AssignedUserIDs {
		if id != userID {
			kept = append(kept, id)
		}
	}
	q.AssignedUserIDs = kept
	return nil
}

func (f *fakeCatalogStore) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	category.ID = "c-" + category.Name
	f.categories[category.ID] = &category
	return &category, nil
}

func (f *fakeCatalogStore) UpdateCategory(ctx context.Context, id string, patch remote.CategoryPatch) (*domain.Category, error) {
	cat, ok := f.categories[id]
	if !ok {
		return nil, util.NewNotFound("category", nil)
	}
	if patch.Name != nil {
		cat.Name = *patch.Name
	}
	copied := *cat
	return &copied, nil
}

func (f *fakeCatalogStore) DeleteCategory(ctx context.Context, id string) error {
	delete(f.categories, id)
	return nil
}

func newCatalogFixture(t *testing.T) (*CatalogService, *fakeCatalogStore, *cache.Cache) {
	t.Helper()
	store := newFakeCatalogStore()
	entityCache := cache.New(64, 30*time.Second, zap.NewNop(), nil)
	coordinator := syncer.NewCoordinator(entityCache, nil, nil, zap.NewNop(), nil)
	return NewCatalogService(store, coordinator, entityCache), store, entityCache
}

func TestQueueListReadsThroughCache(t *testing.T) {
	svc, store, _ := newCatalogFixture(t)
	ctx := context.Background()

	store.queues["q1"] = &domain.Queue{ID: "q1", Name: "support"}

	for i := 0; i < 3; i++ {
		if _, err := svc.ListQueues(ctx, 1, 20, ""); err != nil {
			t.Fatalf("ListQueues: %v", err)
		}
	}
	if store.listQueueHits != 1 {
		t.Fatalf("expected 1 store hit, got %d", store.listQueueHits)
	}
}

func TestCreateQueueInvalidatesQueueLists(t *testing.T) {
	svc, store, entityCache := newCatalogFixture(t)
	ctx := context.Background()

	store.queues["q1"] = &domain.Queue{ID: "q1", Name: "support"}
	if _, err := svc.ListQueues(ctx, 1, 20, ""); err != nil {
		t.Fatalf("ListQueues: %v", err)
	}

	if _, err := svc.CreateQueue(ctx, domain.Queue{Name: "billing"}); err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}

	state, ok := entityCache.StateOf(cache.QueuesByQuery(1, 20, ""))
	if !ok || state != cache.StateStale {
		t.Fatalf("expected queue list stale after create, got %v (present=%v)", state, ok)
	}

	queues, err := svc.ListQueues(ctx, 1, 20, "")
	if err != nil {
		t.Fatalf("ListQueues after create: %v", err)
	}
	if len(queues) != 2 {
		t.Fatalf("expected refetched list with 2 queues, got %d", len(queues))
	}
}

func TestCreateQueueRequiresName(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)
	_, err := svc.CreateQueue(context.Background(), domain.Queue{Name: "   "})
	if !util.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestFailedQueueCreateLeavesListFresh(t *testing.T) {
	svc, store, entityCache := newCatalogFixture(t)
	ctx := context.Background()

	store.queues["q1"] = &domain.Queue{ID: "q1", Name: "support"}
	if _, err := svc.ListQueues(ctx, 1, 20, ""); err != nil {
		t.Fatalf("ListQueues: %v", err)
	}

	store.failNext = errors.New("boom")
	if _, err := svc.CreateQueue(ctx, domain.Queue{Name: "billing"}); err == nil {
		t.Fatal("expected create failure")
	}

	state, ok := entityCache.StateOf(cache.QueuesByQuery(1, 20, ""))
	if !ok || state != cache.StateFresh {
		t.Fatalf("expected queue list untouched after failed create, got %v (present=%v)", state, ok)
	}
}

func TestCategoryWritesInvalidateQueueScopedLists(t *testing.T) {
	svc, store, entityCache := newCatalogFixture(t)
	ctx := context.Background()

	store.queues["q1"] = &domain.Queue{ID: "q1", Name: "support"}
	store.categories["c1"] = &domain.Category{ID: "c1", QueueID: "q1", Name: "printers"}

	// Warm the per-queue list through the cache directly; the resolver is
	// the usual reader of this key.
	if _, err := cache.ReadAs(ctx, entityCache, cache.CategoriesByQueue("q1"),
		func(ctx context.Context) ([]domain.Category, error) {
			return store.ListByQueueForTest("q1"), nil
		}); err != nil {
		t.Fatalf("warm categories: %v", err)
	}

	name := "printing"
	if _, err := svc.UpdateCategory(ctx, "c1", "q1", remote.CategoryPatch{Name: &name}); err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}

	state, ok := entityCache.StateOf(cache.CategoriesByQueue("q1"))
	if !ok || state != cache.StateStale {
		t.Fatalf("expected queue-scoped category list stale, got %v (present=%v)", state, ok)
	}
}

func (f *fakeCatalogStore) ListByQueueForTest(queueID string) []domain.Category {
	var out []domain.Category
	for _, cat := range f.categories {
		if cat.QueueID == queueID {
			out = append(out, *cat)
		}
	}
	return out
}

func TestQueueUserMembershipRoundTrip(t *testing.T) {
	svc, store, _ := newCatalogFixture(t)
	ctx := context.Background()

	store.queues["q1"] = &domain.Queue{ID: "q1", Name: "support"}

	queue, err := svc.AddQueueUser(ctx, "q1", "user-7")
	if err != nil {
		t.Fatalf("AddQueueUser: %v", err)
	}
	if len(queue.AssignedUserIDs) != 1 || queue.AssignedUserIDs[0] != "user-7" {
		t.Fatalf("unexpected membership %v", queue.AssignedUserIDs)
	}

	if err := svc.RemoveQueueUser(ctx, "q1", "user-7"); err != nil {
		t.Fatalf("RemoveQueueUser: %v", err)
	}
	if got := len(store.queues["q1"].AssignedUserIDs); got != 0 {
		t.Fatalf("expected empty membership, got %d", got)
	}
}
