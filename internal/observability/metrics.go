package observability

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Metrics provides basic in-memory counters for cache and mutation activity.
type Metrics struct {
	mu            sync.Mutex
	cacheHits     map[string]int64
	cacheMisses   map[string]int64
	invalidations map[string]int64
	mutations     map[string]int64
	requestCount  map[string]int64
	errors        map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		cacheHits:     make(map[string]int64),
		cacheMisses:   make(map[string]int64),
		invalidations: make(map[string]int64),
		mutations:     make(map[string]int64),
		requestCount:  make(map[string]int64),
		errors:        make(map[string]int64),
	}
}

// RecordError counts a failed request by route and error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[method+"|"+path+"|"+code]++
}

// RecordCacheHit increments the hit counter for a key family.
func (m *Metrics) RecordCacheHit(family string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits[family]++
}

// RecordCacheMiss increments the miss counter for a key family.
func (m *Metrics) RecordCacheMiss(family string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheMisses[family]++
}

// RecordInvalidation counts entries marked stale under a prefix.
func (m *Metrics) RecordInvalidation(prefix string, entries int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidations[prefix] += int64(entries)
}

// RecordMutation counts a mutation attempt by kind and outcome.
func (m *Metrics) RecordMutation(kind string, success bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !success {
		outcome = "failed"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mutations[kind+"|"+outcome]++
}

// RequestLogger returns a fiber middleware logging request outcomes and
// recording per-route counters.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if metrics != nil {
			metrics.mu.Lock()
			metrics.requestCount[c.Method()+"|"+c.Path()]++
			metrics.mu.Unlock()
		}
		logger.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)))
		return err
	}
}
