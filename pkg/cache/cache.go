package cache

import (
	"container/list"
	"slices"
	"sync"
)

type entry[V any] struct {
	key   string
	value V
	tags  []string
}

// Cache is a thread-safe LRU cache with tag-based invalidation.
type Cache[V any] struct {
	capacity int
	items    map[string]*list.Element
	order    *list.List // front is most recently used
	tagged   map[string]map[string]struct{}
	mu       sync.Mutex
}

// New creates a cache holding at most capacity entries.
// It panics when capacity is not positive.
func New[V any](capacity int) *Cache[V] {
	if capacity <= 0 {
		panic("cache capacity must be positive")
	}
	return &Cache[V]{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		tagged:   make(map[string]map[string]struct{}),
	}
}

// Get returns the value stored under key and marks it recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*entry[V]).value, true
	}
	var zero V
	return zero, false
}

// Put stores value under key with the given tags, replacing any previous
// entry and its tags.
func (c *Cache[V]) Put(key string, value V, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.remove(el)
	}

	e := &entry[V]{key: key, value: value, tags: slices.Clone(tags)}
	c.items[key] = c.order.PushFront(e)
	for _, t := range e.tags {
		keys, ok := c.tagged[t]
		if !ok {
			keys = make(map[string]struct{})
			c.tagged[t] = keys
		}
		keys[key] = struct{}{}
	}

	if c.order.Len() > c.capacity {
		c.remove(c.order.Back())
	}
}

// Remove drops a single entry.
func (c *Cache[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if ok {
		c.remove(el)
	}
	return ok
}

// Invalidate drops every entry that carries at least one of tags and
// returns the number of entries removed.
func (c *Cache[V]) Invalidate(tags ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range tags {
		for key := range c.tagged[t] {
			if el, ok := c.items[key]; ok {
				c.remove(el)
				n++
			}
		}
	}
	return n
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.tagged = make(map[string]map[string]struct{})
	c.order.Init()
}

// Must be called with lock held.
func (c *Cache[V]) remove(el *list.Element) {
	if el == nil {
		return
	}
	e := el.Value.(*entry[V])
	c.order.Remove(el)
	delete(c.items, e.key)
	for _, t := range e.tags {
		if keys, ok := c.tagged[t]; ok {
			delete(keys, e.key)
			if len(keys) == 0 {
				delete(c.tagged, t)
			}
		}
	}
}
