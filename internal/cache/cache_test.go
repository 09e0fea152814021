package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCache() *Cache {
	return New(64, 30*time.Second, nil, nil)
}

func TestReadFetchesOnceWhileFresh(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	key := TicketDetail("t1")

	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return "ticket-1", nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.Read(ctx, key, fetch)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if got != "ticket-1" {
			t.Fatalf("read %d: got %v", i, got)
		}
	}
	if calls != 1 {
		t.Fatalf("fetch called %d times, want 1", calls)
	}
	if state, _ := c.StateOf(key); state != StateFresh {
		t.Fatalf("state = %s, want FRESH", state)
	}
}

func TestReadRefetchesAfterThreshold(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	key := CategoriesByQueue("q1")

	current := time.Now()
	c.now = func() time.Time { return current }

	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	if _, err := c.Read(ctx, key, fetch); err != nil {
		t.Fatal(err)
	}
	current = current.Add(31 * time.Second)
	if state, _ := c.StateOf(key); state != StateStale {
		t.Fatalf("state after threshold = %s, want STALE", state)
	}
	got, err := c.Read(ctx, key, fetch)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 || calls != 2 {
		t.Fatalf("got %v with %d calls, want refetch", got, calls)
	}
}

func TestInvalidateMarksCoveredEntriesStale(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	keys := []Key{
		CategoriesByQueue("q1"),
		CategoriesByQuery(1, 20, "bug"),
		QueueDetail("q1"),
	}
	for _, k := range keys {
		k := k
		if _, err := c.Read(ctx, k, func(ctx context.Context) (any, error) { return k.String(), nil }); err != nil {
			t.Fatal(err)
		}
	}

	c.Invalidate(AllCategories())

	for _, k := range keys[:2] {
		if state, _ := c.StateOf(k); state != StateStale {
			t.Errorf("%s state = %s, want STALE", k, state)
		}
	}
	if state, _ := c.StateOf(QueueDetail("q1")); state != StateFresh {
		t.Errorf("queue detail state = %s, want FRESH (not covered)", state)
	}
}

func TestInvalidateDoesNotRefetch(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	key := TicketDetail("t1")

	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}
	if _, err := c.Read(ctx, key, fetch); err != nil {
		t.Fatal(err)
	}
	c.Invalidate(key)
	if calls != 1 {
		t.Fatalf("invalidate triggered a fetch; calls = %d", calls)
	}
	got, err := c.Read(ctx, key, fetch)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Fatalf("read after invalidate returned %v, want refetched value", got)
	}
}

func TestConcurrentReadsShareFetch(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	key := HistoryByTicket("t1")

	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "history", nil
	}

	const readers = 8
	var wg sync.WaitGroup
	results := make([]any, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := c.Read(ctx, key, fetch)
			if err != nil {
				t.Errorf("reader %d: %v", i, err)
				return
			}
			results[i] = got
		}(i)
	}

	// Let the readers pile up on the single in-flight fetch.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("fetch called %d times, want 1", n)
	}
	for i, got := range results {
		if got != "history" {
			t.Errorf("reader %d got %v", i, got)
		}
	}
}

func TestFailedFetchStoresError(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	key := TicketDetail("t1")

	boom := errors.New("boom")
	calls := 0
	if _, err := c.Read(ctx, key, func(ctx context.Context) (any, error) {
		calls++
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if state, _ := c.StateOf(key); state != StateError {
		t.Fatalf("state = %s, want ERROR", state)
	}

	// The cache itself never retries; an explicit read does.
	got, err := c.Read(ctx, key, func(ctx context.Context) (any, error) {
		calls++
		return "recovered", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "recovered" || calls != 2 {
		t.Fatalf("got %v after %d calls", got, calls)
	}
}

func TestInvalidateDuringRefetchStoresStale(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	key := CategoriesByQueue("q1")

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Read(ctx, key, func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return "mid-flight", nil
		})
	}()

	<-started
	c.Invalidate(AllCategories())
	close(release)
	<-done

	// The completed fetch must not present possibly outdated data as fresh.
	if state, _ := c.StateOf(key); state != StateStale {
		t.Fatalf("state = %s, want STALE", state)
	}
}

func TestClearDropsEntries(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	if _, err := c.Read(ctx, NotificationsList(), func(ctx context.Context) (any, error) { return 1, nil }); err != nil {
		t.Fatal(err)
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("len = %d after clear", c.Len())
	}
}

func TestReadAsTyped(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	got, err := ReadAs(ctx, c, QueueDetail("q1"), func(ctx context.Context) ([]string, error) {
		return []string{"a", "b"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}
}
