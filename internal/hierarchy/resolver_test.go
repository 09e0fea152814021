package hierarchy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-core/internal/cache"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

// fakeSource serves canned queues/categories and can hold category responses
// until released, to exercise in-flight races.
type fakeSource struct {
	mu         sync.Mutex
	queues     []domain.Queue
	categories map[string][]domain.Category
	holds      map[string]chan struct{}
	calls      []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		queues: []domain.Queue{
			{ID: "qa", Name: "Queue A"},
			{ID: "qb", Name: "Queue B"},
		},
		categories: map[string][]domain.Category{
			"qa": {{ID: "x", QueueID: "qa", Name: "X"}},
			"qb": {{ID: "y", QueueID: "qb", Name: "Y"}},
		},
		holds: map[string]chan struct{}{},
	}
}

func (f *fakeSource) ListQueues(ctx context.Context, page, limit int, search string) ([]domain.Queue, error) {
	return f.queues, nil
}

func (f *fakeSource) ListCategoriesByQueue(ctx context.Context, queueID string) ([]domain.Category, error) {
	f.mu.Lock()
	f.calls = append(f.calls, queueID)
	hold := f.holds[queueID]
	cats := f.categories[queueID]
	f.mu.Unlock()
	if hold != nil {
		<-hold
	}
	return cats, nil
}

func (f *fakeSource) holdQueue(queueID string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.holds[queueID] = ch
	return ch
}

func newTestResolver(source Source) *Resolver {
	return NewResolver(cache.New(64, 30*time.Second, nil, nil), source, nil)
}

func TestListQueues(t *testing.T) {
	r := newTestResolver(newFakeSource())
	options, err := r.ListQueues(context.Background(), 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(options) != 2 || options[0].Name != "Queue A" {
		t.Fatalf("got %+v", options)
	}
}

func TestCategoriesForUnsetQueue(t *testing.T) {
	r := newTestResolver(newFakeSource())
	options, err := r.CategoriesForQueue(context.Background(), "")
	if err != nil {
		t.Fatalf("unset queue must not error: %v", err)
	}
	if len(options) != 0 {
		t.Fatalf("got %+v, want empty", options)
	}
}

func TestSelectQueueClearsCategorySynchronously(t *testing.T) {
	source := newFakeSource()
	r := newTestResolver(source)
	ctx := context.Background()

	if _, err := r.SelectQueue(ctx, "qa"); err != nil {
		t.Fatal(err)
	}
	if err := r.SelectCategory("x"); err != nil {
		t.Fatal(err)
	}

	// Hold qb's fetch so we can observe the selection mid-flight.
	release := source.holdQueue("qb")
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.SelectQueue(ctx, "qb")
	}()

	// The category must already be cleared before qb's categories resolve.
	deadline := time.After(time.Second)
	for {
		queueID, categoryID := r.Selection()
		if queueID == "qb" {
			if categoryID != "" {
				t.Fatalf("category %q still selected after queue change", categoryID)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("queue selection never switched")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(release)
	<-done
}

func TestStaleResponseDiscarded(t *testing.T) {
	source := newFakeSource()
	r := newTestResolver(source)
	ctx := context.Background()

	// qa's fetch resolves only after qb has been selected.
	releaseA := source.holdQueue("qa")

	resultA := make(chan error, 1)
	go func() {
		_, err := r.SelectQueue(ctx, "qa")
		resultA <- err
	}()

	// Wait for qa's fetch to be in flight, then switch to qb.
	deadline := time.After(time.Second)
	for {
		source.mu.Lock()
		started := len(source.calls) > 0
		source.mu.Unlock()
		if started {
			break
		}
		select {
		case <-deadline:
			t.Fatal("qa fetch never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	optionsB, err := r.SelectQueue(ctx, "qb")
	if err != nil {
		t.Fatal(err)
	}
	if len(optionsB) != 1 || optionsB[0].ID != "y" {
		t.Fatalf("qb options = %+v", optionsB)
	}

	close(releaseA)
	if err := <-resultA; !errors.Is(err, ErrStaleResponseDiscarded) {
		t.Fatalf("qa result = %v, want ErrStaleResponseDiscarded", err)
	}

	// The visible state must belong to qb only.
	queueID, _ := r.Selection()
	if queueID != "qb" {
		t.Fatalf("selected queue = %q", queueID)
	}
	if err := r.SelectCategory("x"); err == nil {
		t.Fatal("category from qa must not be selectable after switching to qb")
	}
	if err := r.SelectCategory("y"); err != nil {
		t.Fatalf("qb's category must be selectable: %v", err)
	}
}

func TestSelectCategoryOutsideQueue(t *testing.T) {
	r := newTestResolver(newFakeSource())
	if _, err := r.SelectQueue(context.Background(), "qa"); err != nil {
		t.Fatal(err)
	}
	err := r.SelectCategory("y")
	if !util.IsCode(err, "INVALID_ASSIGNMENT") {
		t.Fatalf("err = %v, want INVALID_ASSIGNMENT", err)
	}
}

func TestValidatePair(t *testing.T) {
	r := newTestResolver(newFakeSource())
	ctx := context.Background()

	if err := r.ValidatePair(ctx, "qa", "x"); err != nil {
		t.Fatalf("valid pair rejected: %v", err)
	}
	if err := r.ValidatePair(ctx, "qa", "y"); !util.IsCode(err, "INVALID_ASSIGNMENT") {
		t.Fatalf("err = %v, want INVALID_ASSIGNMENT", err)
	}
	if err := r.ValidatePair(ctx, "", "x"); !util.IsCode(err, "INVALID_ASSIGNMENT") {
		t.Fatalf("unset queue: err = %v, want INVALID_ASSIGNMENT", err)
	}
}
