// Package lru provides a capacity-bounded least-recently-used cache and a
// memoizer built on it.
package lru

import (
	"context"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"
)

// Option configures a Cache.
type Option func(*options)

type options struct {
	observe func(hit bool)
}

// WithObserver registers a callback invoked on every lookup with its outcome.
func WithObserver(fn func(hit bool)) Option {
	return func(o *options) { o.observe = fn }
}

// Cache maps string keys to values, evicting the least recently used entry
// when full. A capacity <= 0 disables storage entirely.
type Cache[V any] struct {
	mu      sync.Mutex
	items   *simplelru.LRU[string, V]
	pending map[string]map[*flight]struct{}
	group   singleflight.Group
	observe func(hit bool)
}

// flight tracks one running compute. An invalidation while it runs marks it
// stale and its result is returned but not stored.
type flight struct {
	stale bool
}

// New creates a cache holding at most capacity entries.
func New[V any](capacity int, opts ...Option) *Cache[V] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Cache[V]{observe: o.observe, pending: make(map[string]map[*flight]struct{})}
	if capacity > 0 {
		// NewLRU only fails for non-positive sizes
		c.items, _ = simplelru.NewLRU[string, V](capacity, nil)
	}
	return c
}

// Enabled reports whether the cache stores anything.
func (c *Cache[V]) Enabled() bool {
	return c.items != nil
}

// Get returns the cached value and marks it most recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	if c.items == nil {
		var zero V
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Get(key)
}

// Add stores value under key, evicting the least recently used entry if full.
func (c *Cache[V]) Add(key string, value V) {
	if c.items == nil {
		return
	}
	c.mu.Lock()
	c.items.Add(key, value)
	c.mu.Unlock()
}

// GetOrCompute returns the cached value for key or runs compute, stores its
// result and returns it. Concurrent misses on one key share a single compute,
// which runs detached from any one caller's cancellation; each caller stops
// waiting when its own ctx is done. Errors are returned to every waiter and
// never cached.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	if c.items == nil {
		return compute(ctx)
	}
	if v, ok := c.Get(key); ok {
		c.record(true)
		return v, nil
	}
	c.record(false)

	flightCtx := context.WithoutCancel(ctx)
	results := c.group.DoChan(key, func() (any, error) {
		f := c.begin(key)
		// another flight may have filled the key between Get and DoChan
		if v, ok := c.Get(key); ok {
			c.finish(key, f, v, false)
			return v, nil
		}
		v, err := compute(flightCtx)
		c.finish(key, f, v, err == nil)
		return v, err
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

func (c *Cache[V]) begin(key string) *flight {
	f := &flight{}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[key] == nil {
		c.pending[key] = make(map[*flight]struct{})
	}
	c.pending[key][f] = struct{}{}
	return f
}

func (c *Cache[V]) finish(key string, f *flight, v V, store bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending[key], f)
	if len(c.pending[key]) == 0 {
		delete(c.pending, key)
	}
	if store && !f.stale {
		c.items.Add(key, v)
	}
}

// Invalidate drops key and reports whether it was present. A compute already
// running for key will not store its result, and later callers start a new one.
func (c *Cache[V]) Invalidate(key string) bool {
	if c.items == nil {
		return false
	}
	c.mu.Lock()
	for f := range c.pending[key] {
		f.stale = true
	}
	removed := c.items.Remove(key)
	c.mu.Unlock()
	c.group.Forget(key)
	return removed
}

// Clear drops every entry and discards the results of running computes.
func (c *Cache[V]) Clear() {
	if c.items == nil {
		return
	}
	c.mu.Lock()
	keys := make([]string, 0, len(c.pending))
	for key, flights := range c.pending {
		for f := range flights {
			f.stale = true
		}
		keys = append(keys, key)
	}
	c.items.Purge()
	c.mu.Unlock()
	for _, key := range keys {
		c.group.Forget(key)
	}
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	if c.items == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}

// Keys returns cached keys from least to most recently used.
func (c *Cache[V]) Keys() []string {
	if c.items == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Keys()
}

// Snapshot copies the current contents without touching recency.
func (c *Cache[V]) Snapshot() map[string]V {
	snapshot := map[string]V{}
	if c.items == nil {
		return snapshot
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.items.Keys() {
		if v, ok := c.items.Peek(k); ok {
			snapshot[k] = v
		}
	}
	return snapshot
}

func (c *Cache[V]) record(hit bool) {
	if c.observe != nil {
		c.observe(hit)
	}
}
