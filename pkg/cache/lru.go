package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
)

// lruItem is the internal structure held by the recency list.
type lruItem[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a bounded, thread-safe memoization map with least-recently-used
// eviction. It backs the per-subject rating lookups, which would otherwise
// grow without bound over the life of the process.
type LRU[K comparable, V any] struct {
	maxSize  int
	fallback func(ctx context.Context, key K) (V, error)

	mu    sync.Mutex
	ll    *list.List
	items map[K]*list.Element
}

// NewLRU creates a bounded LRU. On a miss, fallback computes the value and
// the result is memoized. maxSize must be positive.
func NewLRU[K comparable, V any](maxSize int, fallback func(ctx context.Context, key K) (V, error)) (*LRU[K, V], error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("maxSize must be greater than 0")
	}
	if fallback == nil {
		return nil, fmt.Errorf("fallback cannot be nil")
	}
	return &LRU[K, V]{
		maxSize:  maxSize,
		fallback: fallback,
		ll:       list.New(),
		items:    make(map[K]*list.Element),
	}, nil
}

// Fetch returns the memoized value for key, computing and storing it via the
// fallback on a miss. A fallback error is returned as-is and nothing is
// memoized.
func (c *LRU[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		c.ll.MoveToFront(elem)
		c.mu.Unlock()
		return elem.Value.(*lruItem[K, V]).value, nil
	}
	c.mu.Unlock()

	value, err := c.fallback(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have memoized the key while the fallback ran.
	if elem, ok := c.items[key]; ok {
		c.ll.MoveToFront(elem)
		return elem.Value.(*lruItem[K, V]).value, nil
	}

	elem := c.ll.PushFront(&lruItem[K, V]{key: key, value: value})
	c.items[key] = elem

	if c.ll.Len() > c.maxSize {
		c.evict()
	}

	return value, nil
}

// Len returns the number of memoized entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// evict removes the least recently used entry. Callers must hold the mutex.
func (c *LRU[K, V]) evict() {
	oldest := c.ll.Back()
	if oldest == nil {
		return
	}
	item := c.ll.Remove(oldest).(*lruItem[K, V])
	delete(c.items, item.key)
}
