package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-core/internal/cache"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

type noopAudits struct{ items []domain.HistoryItem }

func (n *noopAudits) CreateHistoryItem(ctx context.Context, item domain.HistoryItem) (*domain.HistoryItem, error) {
	n.items = append(n.items, item)
	return &item, nil
}

func prime(t *testing.T, c *cache.Cache, key cache.Key) {
	t.Helper()
	if _, err := c.Read(context.Background(), key, func(ctx context.Context) (any, error) {
		return "primed", nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestExecuteGatesPerEntity(t *testing.T) {
	c := cache.New(16, 30*time.Second, nil, nil)
	co := NewCoordinator(c, nil, nil, nil, nil)
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := co.Execute(ctx, Mutation{
			Entity:   "ticket",
			EntityID: "t1",
			Kind:     "assign",
			Apply: func(ctx context.Context) (any, error) {
				close(started)
				<-release
				return "ok", nil
			},
		})
		done <- err
	}()
	<-started

	// Same entity: rejected locally, Apply never runs.
	_, err := co.Execute(ctx, Mutation{
		Entity:   "ticket",
		EntityID: "t1",
		Kind:     "assign",
		Apply: func(ctx context.Context) (any, error) {
			t.Error("second apply must not run")
			return nil, nil
		},
	})
	if !util.IsCode(err, "MUTATION_IN_FLIGHT") {
		t.Fatalf("err = %v, want MUTATION_IN_FLIGHT", err)
	}

	// Different entity: proceeds while the first is pending.
	if _, err := co.Execute(ctx, Mutation{
		Entity:   "ticket",
		EntityID: "t2",
		Kind:     "assign",
		Apply:    func(ctx context.Context) (any, error) { return "ok", nil },
	}); err != nil {
		t.Fatalf("different entity blocked: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	// The gate releases after completion.
	if _, err := co.Execute(ctx, Mutation{
		Entity:   "ticket",
		EntityID: "t1",
		Kind:     "assign",
		Apply:    func(ctx context.Context) (any, error) { return "ok", nil },
	}); err != nil {
		t.Fatalf("gate not released: %v", err)
	}
}

func TestExecuteInvalidatesOnSuccess(t *testing.T) {
	c := cache.New(16, 30*time.Second, nil, nil)
	audits := &noopAudits{}
	co := NewCoordinator(c, audits, nil, nil, nil)
	ctx := context.Background()

	detail := cache.TicketDetail("t1")
	trail := cache.HistoryByTicket("t1")
	notifications := cache.NotificationsList()
	prime(t, c, detail)
	prime(t, c, trail)
	prime(t, c, notifications)

	_, err := co.Execute(ctx, Mutation{
		Entity:   "ticket",
		EntityID: "t1",
		Kind:     "change_priority",
		Apply:    func(ctx context.Context) (any, error) { return "ok", nil },
		Audit: func(result any) *domain.HistoryItem {
			return &domain.HistoryItem{TicketID: "t1", Type: domain.HistoryPriorityChanged, Details: "LOW"}
		},
		Invalidate: func(result any) []cache.Key {
			return []cache.Key{detail}
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []cache.Key{detail, trail, notifications} {
		if state, _ := c.StateOf(key); state != cache.StateStale {
			t.Errorf("%s state = %s, want STALE", key, state)
		}
	}
	if len(audits.items) != 1 || audits.items[0].Type != domain.HistoryPriorityChanged {
		t.Fatalf("audits = %+v", audits.items)
	}
}

func TestExecuteFailureLeavesCacheAndNotifies(t *testing.T) {
	c := cache.New(16, 30*time.Second, nil, nil)
	dispatcher := events.NewInMemoryDispatcher()
	var got []events.Event
	dispatcher.Subscribe(events.EventMutationFailed, func(ctx context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	})
	co := NewCoordinator(c, nil, dispatcher, nil, nil)

	detail := cache.TicketDetail("t1")
	prime(t, c, detail)

	_, err := co.Execute(context.Background(), Mutation{
		Entity:   "ticket",
		EntityID: "t1",
		Kind:     "assign",
		Apply: func(ctx context.Context) (any, error) {
			return nil, errors.New("connection refused")
		},
		Invalidate: func(result any) []cache.Key {
			return []cache.Key{detail}
		},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if state, _ := c.StateOf(detail); state != cache.StateFresh {
		t.Fatalf("detail state = %s, want FRESH (untouched)", state)
	}
	if len(got) != 1 {
		t.Fatalf("failure events = %d, want 1", len(got))
	}
	if got[0].Message != "the change could not be saved" {
		t.Errorf("message %q leaks the cause", got[0].Message)
	}
}
