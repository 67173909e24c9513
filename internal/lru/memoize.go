package lru

import (
	"context"
	"encoding/json"
)

// KeyFunc derives a cache key from call arguments.
type KeyFunc[A any] func(args A) (string, error)

// JSONKey keys calls by the JSON encoding of their arguments.
func JSONKey[A any](args A) (string, error) {
	b, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Memo wraps a derivation function with an LRU cache.
type Memo[A any, V any] struct {
	fn    func(context.Context, A) (V, error)
	key   KeyFunc[A]
	cache *Cache[V]
}

// Memoize returns fn wrapped with a cache of the given capacity. A nil key
// function defaults to JSONKey.
func Memoize[A any, V any](fn func(context.Context, A) (V, error), capacity int, key KeyFunc[A], opts ...Option) *Memo[A, V] {
	if key == nil {
		key = JSONKey[A]
	}
	return &Memo[A, V]{fn: fn, key: key, cache: New[V](capacity, opts...)}
}

// Call returns the memoized result for args. When no key can be derived the
// call falls through to fn uncached.
func (m *Memo[A, V]) Call(ctx context.Context, args A) (V, error) {
	if !m.cache.Enabled() {
		return m.fn(ctx, args)
	}
	key, err := m.key(args)
	if err != nil {
		return m.fn(ctx, args)
	}
	return m.cache.GetOrCompute(ctx, key, func(ctx context.Context) (V, error) {
		return m.fn(ctx, args)
	})
}

// InvalidateArgs drops the entry for args; false if absent or unkeyable.
func (m *Memo[A, V]) InvalidateArgs(args A) bool {
	key, err := m.key(args)
	if err != nil {
		return false
	}
	return m.cache.Invalidate(key)
}

// Clear empties the cache.
func (m *Memo[A, V]) Clear() {
	m.cache.Clear()
}

// Cache exposes the underlying cache.
func (m *Memo[A, V]) Cache() *Cache[V] {
	return m.cache
}
