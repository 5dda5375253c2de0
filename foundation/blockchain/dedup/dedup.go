// Package dedup maintains the bounded set of recently seen gossip keys so
// a flooded transaction or block is processed and forwarded at most once.
package dedup

import (
	"container/list"
	"sync"
	"time"
)

// Cache remembers keys for a bounded time and a bounded count, evicting
// oldest first. It is safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List
}

// entry is what the eviction order holds for each key.
type entry struct {
	key    string
	seenAt time.Time
}

// New constructs a cache that forgets a key once its ttl passes or once
// the entry count crosses maxEntries, whichever comes first.
func New(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Seen reports whether the key was already observed inside the ttl window
// and marks it observed either way. The window runs from the first
// observation; re-seeing a key does not extend it.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.evictExpired(now)

	if _, exists := c.entries[key]; exists {
		return true
	}

	c.entries[key] = c.order.PushBack(entry{key: key, seenAt: now})

	if c.order.Len() > c.maxEntries {
		c.evictOldest()
	}

	return false
}

// Count returns the number of keys currently remembered.
func (c *Cache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpired(time.Now())

	return c.order.Len()
}

// =============================================================================

// evictExpired drops every entry whose window has passed. Callers must
// hold the lock.
func (c *Cache) evictExpired(now time.Time) {
	for {
		front := c.order.Front()
		if front == nil {
			return
		}

		e := front.Value.(entry)
		if now.Sub(e.seenAt) < c.ttl {
			return
		}

		c.order.Remove(front)
		delete(c.entries, e.key)
	}
}

// evictOldest drops the single oldest entry. Callers must hold the lock.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	e := front.Value.(entry)
	c.order.Remove(front)
	delete(c.entries, e.key)
}
