package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the value for a fingerprint. It is invoked at most
// once per fingerprint across concurrent callers.
type ComputeFunc func(ctx context.Context) (interface{}, error)

type entry struct {
	value    interface{}
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) valid(now time.Time) bool {
	return now.Sub(e.storedAt) < e.ttl
}

// ResultCache maps a computation fingerprint to its last successful result.
// Reads of a valid entry take the RLock fast path; misses are funnelled
// through a singleflight group so an expensive computation runs once no
// matter how many callers ask for the same fingerprint.
type ResultCache struct {
	defaultTTL time.Duration

	mu      sync.RWMutex
	entries map[string]entry

	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64

	now func() time.Time
}

func New(defaultTTL time.Duration) *ResultCache {
	if defaultTTL <= 0 {
		defaultTTL = 300 * time.Second
	}
	return &ResultCache{
		defaultTTL: defaultTTL,
		entries:    make(map[string]entry),
		now:        time.Now,
	}
}

// Fingerprint derives a deterministic cache key from the logical query
// identity: the operation name plus its target-table configuration.
func Fingerprint(operation string, parts ...string) string {
	return operation + ":" + strings.Join(parts, ".")
}

func (c *ResultCache) GetOrCompute(ctx context.Context, fingerprint string, compute ComputeFunc) (interface{}, error) {
	return c.GetOrComputeTTL(ctx, fingerprint, c.defaultTTL, compute)
}

// GetOrComputeTTL returns the cached value when one younger than ttl
// exists, otherwise computes it. A failed computation leaves any previous
// entry untouched and the error propagates to every waiting caller.
func (c *ResultCache) GetOrComputeTTL(ctx context.Context, fingerprint string, ttl time.Duration, compute ComputeFunc) (interface{}, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if v, ok := c.lookup(fingerprint); ok {
		c.hits.Add(1)
		return v, nil
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(fingerprint, func() (interface{}, error) {
		// A concurrent flight may have stored a value between our miss
		// and acquiring the flight.
		if v, ok := c.lookup(fingerprint); ok {
			return v, nil
		}

		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[fingerprint] = entry{value: value, storedAt: c.now(), ttl: ttl}
		c.mu.Unlock()

		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (c *ResultCache) lookup(fingerprint string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[fingerprint]
	c.mu.RUnlock()
	if !ok || !e.valid(c.now()) {
		return nil, false
	}
	return e.value, true
}

func (c *ResultCache) Invalidate(fingerprint string) {
	c.mu.Lock()
	delete(c.entries, fingerprint)
	c.mu.Unlock()
}

func (c *ResultCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Stats reports cumulative hit/miss counts since construction.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
