package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/observability"
)

// EntryState tracks the lifecycle of a cached read result.
type EntryState string

const (
	StateFresh      EntryState = "FRESH"
	StateStale      EntryState = "STALE"
	StateRefetching EntryState = "REFETCHING"
	StateError      EntryState = "ERROR"
)

// Fetcher loads a value from the system-of-record.
type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	key       Key
	state     EntryState
	value     any
	err       error
	fetchedAt time.Time
	// gen is bumped by Invalidate; a fetch that completes under an older
	// gen stores its result as Stale so the next read refetches.
	gen      uint64
	inflight chan struct{}
}

// Cache is the keyed store mapping query keys to results plus staleness
// metadata. It is the only shared mutable resource in the core; consumers
// read through it and request invalidation, never writing values directly.
//
// Storage is a bounded LRU, so entries nobody reads are evicted lazily
// instead of being refetched.
type Cache struct {
	mu         sync.Mutex
	entries    *lru.Cache[string, *entry]
	staleAfter time.Duration
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// New builds a cache with the given capacity and staleness threshold.
func New(maxEntries int, staleAfter time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	if staleAfter <= 0 {
		staleAfter = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	store, _ := lru.New[string, *entry](maxEntries)
	return &Cache{
		entries:    store,
		staleAfter: staleAfter,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Read returns the cached value for key when fresh. When the entry is
// absent, stale, expired, or errored it invokes fetch and stores the
// result. Concurrent reads for the same key share the single in-flight
// fetch.
func (c *Cache) Read(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	for {
		c.mu.Lock()
		e, ok := c.entries.Get(key.String())
		if ok && e.state == StateFresh && c.now().Sub(e.fetchedAt) < c.staleAfter {
			value := e.value
			c.mu.Unlock()
			c.metrics.RecordCacheHit(key.Family())
			return value, nil
		}
		if ok && e.state == StateRefetching {
			ch := e.inflight
			c.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ch:
			}
			c.mu.Lock()
			switch e.state {
			case StateError:
				err := e.err
				c.mu.Unlock()
				return nil, err
			case StateFresh, StateStale:
				value := e.value
				c.mu.Unlock()
				return value, nil
			default:
				c.mu.Unlock()
				continue
			}
		}
		if !ok {
			e = &entry{key: key}
			c.entries.Add(key.String(), e)
		}
		c.metrics.RecordCacheMiss(key.Family())
		e.state = StateRefetching
		e.inflight = make(chan struct{})
		ch := e.inflight
		gen := e.gen
		c.mu.Unlock()

		value, err := fetch(ctx)

		c.mu.Lock()
		if cur, found := c.entries.Peek(key.String()); !found || cur != e {
			// entry was evicted while the fetch ran; put it back
			c.entries.Add(key.String(), e)
		}
		e.fetchedAt = c.now()
		if err != nil {
			e.state = StateError
			e.err = err
			e.value = nil
		} else {
			e.value = value
			e.err = nil
			if e.gen != gen {
				e.state = StateStale
			} else {
				e.state = StateFresh
			}
		}
		e.inflight = nil
		close(ch)
		c.mu.Unlock()

		if err != nil {
			return nil, err
		}
		return value, nil
	}
}

// Invalidate marks every entry covered by prefix as stale. It never forces
// a refetch; the next Read on an affected key triggers one.
func (c *Cache) Invalidate(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	marked := 0
	for _, stored := range c.entries.Keys() {
		e, ok := c.entries.Peek(stored)
		if !ok || !prefix.Covers(e.key) {
			continue
		}
		e.gen++
		if e.state == StateFresh || e.state == StateError {
			e.state = StateStale
		}
		marked++
	}
	c.metrics.RecordInvalidation(prefix.String(), marked)
	c.logger.Debug("cache invalidated",
		zap.String("prefix", prefix.String()),
		zap.Int("entries", marked))
}

// Clear drops every entry. Used when the session identity changes.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

// Len reports the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// StateOf reports the state of the entry at key, if present.
func (c *Cache) StateOf(key Key) (EntryState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Peek(key.String())
	if !ok {
		return "", false
	}
	if e.state == StateFresh && c.now().Sub(e.fetchedAt) >= c.staleAfter {
		return StateStale, true
	}
	return e.state, true
}

// ReadAs is a typed wrapper over Read.
func ReadAs[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	value, err := c.Read(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("cache entry %s holds %T", key, value)
	}
	return typed, nil
}
