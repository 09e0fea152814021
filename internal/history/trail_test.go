package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-core/internal/cache"
	"github.com/spec-kit/helpdesk-core/internal/domain"
)

type fakeHistorySource struct {
	items []domain.HistoryItem
	calls int
}

func (f *fakeHistorySource) ListHistoryByTicket(ctx context.Context, ticketID string) ([]domain.HistoryItem, error) {
	f.calls++
	out := make([]domain.HistoryItem, 0, len(f.items))
	for _, item := range f.items {
		if item.TicketID == ticketID {
			out = append(out, item)
		}
	}
	return out, nil
}

type fakeDirectory map[string]string

func (f fakeDirectory) DisplayName(ctx context.Context, userID string) (string, error) {
	name, ok := f[userID]
	if !ok {
		return "", fmt.Errorf("unknown user %s", userID)
	}
	return name, nil
}

func TestForTicketOrdersAscendingWithStableTies(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeHistorySource{items: []domain.HistoryItem{
		{ID: "h3", TicketID: "t1", Type: domain.HistoryAssigned, CreatedAt: base.Add(time.Minute)},
		{ID: "h1", TicketID: "t1", Type: domain.HistoryCreated, CreatedAt: base},
		// same timestamp as h1: insertion order must be preserved
		{ID: "h2", TicketID: "t1", Type: domain.HistoryComment, CreatedAt: base},
		{ID: "x1", TicketID: "t2", Type: domain.HistoryCreated, CreatedAt: base},
	}}
	trail := NewTrail(cache.New(16, 30*time.Second, nil, nil), source, nil, nil)

	items, err := trail.ForTicket(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	got := []string{}
	for _, item := range items {
		got = append(got, item.ID)
	}
	want := []string{"h1", "h2", "h3"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestForTicketReadsThroughCache(t *testing.T) {
	source := &fakeHistorySource{items: []domain.HistoryItem{
		{ID: "h1", TicketID: "t1", Type: domain.HistoryCreated, CreatedAt: time.Now()},
	}}
	trail := NewTrail(cache.New(16, 30*time.Second, nil, nil), source, nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := trail.ForTicket(ctx, "t1"); err != nil {
			t.Fatal(err)
		}
	}
	if source.calls != 1 {
		t.Fatalf("source called %d times, want 1", source.calls)
	}
}

func TestRenderedResolvesActors(t *testing.T) {
	source := &fakeHistorySource{items: []domain.HistoryItem{
		{ID: "h1", TicketID: "t1", UserID: "u1", Type: domain.HistoryAssigned, Details: "agent-7", CreatedAt: time.Now()},
		{ID: "h2", TicketID: "t1", UserID: "u-unknown", Type: domain.HistoryComment, Details: "hello", CreatedAt: time.Now().Add(time.Second)},
	}}
	directory := fakeDirectory{"u1": "Dana Supporter"}
	trail := NewTrail(cache.New(16, 30*time.Second, nil, nil), source, directory, nil)

	rendered, err := trail.Rendered(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if rendered[0].Actor != "Dana Supporter" {
		t.Errorf("actor = %q, want resolved display name", rendered[0].Actor)
	}
	// Directory failures fall back to the raw user id.
	if rendered[1].Actor != "u-unknown" {
		t.Errorf("fallback actor = %q", rendered[1].Actor)
	}
	if rendered[1].Text != "hello" {
		t.Errorf("comment text = %q, want verbatim", rendered[1].Text)
	}
}

func TestRenderDetailsCoversEveryType(t *testing.T) {
	types := []domain.HistoryType{
		domain.HistoryComment,
		domain.HistoryCreated,
		domain.HistoryAssigned,
		domain.HistoryStatusChanged,
		domain.HistoryClosed,
		domain.HistoryReopened,
		domain.HistoryDocumentAdded,
		domain.HistoryDocumentRemoved,
		domain.HistoryPriorityChanged,
		domain.HistoryCategoryChanged,
	}
	fallback := RenderDetails(domain.HistoryType("SOMETHING_NEW"), "payload")
	for _, historyType := range types {
		text := RenderDetails(historyType, "detail")
		if text == "" {
			t.Errorf("%s rendered empty", historyType)
		}
		if historyType != domain.HistoryComment && text == fallback {
			t.Errorf("%s fell through to the unknown-type rendering", historyType)
		}
	}
}
