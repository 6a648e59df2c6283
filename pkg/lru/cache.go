// Package lru provides a small LRU set used to deduplicate archive member
// names across sync token resets.
package lru

import "container/list"

// Cache is a fixed-capacity LRU set of string keys. When full, recording a
// new key evicts the oldest one.
type Cache struct {
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = newest, back = oldest
}

// New creates a cache with the given capacity. A capacity of zero or less
// disables tracking entirely: Seen always reports false.
func New(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Seen reports whether key was already recorded, and records it if not.
// A key that was present is refreshed to newest so steady repeats are not
// evicted by unrelated churn.
func (c *Cache) Seen(key string) bool {
	if c.capacity <= 0 {
		return false
	}

	if elem, exists := c.items[key]; exists {
		c.order.MoveToFront(elem)
		return true
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			delete(c.items, oldest.Value.(string))
			c.order.Remove(oldest)
		}
	}

	c.items[key] = c.order.PushFront(key)
	return false
}

// Len returns the number of keys currently tracked.
func (c *Cache) Len() int {
	return len(c.items)
}
