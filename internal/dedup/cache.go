// Package dedup provides a bounded, time-expiring set of processed event
// identifiers. Messaging platforms deliver webhooks at least once and retry
// on slow acknowledgement, so the relay must recognize a redelivered event
// and skip it.
//
// The cache is an explicitly constructed component with one instance per
// process, owned by service startup and passed by reference into the
// dispatch pipeline. It holds entries in insertion order: TTL expiry sweeps
// from the front and stops at the first survivor, and capacity overflow
// evicts strictly the oldest entry, both O(1) amortized.
package dedup

import (
	"container/list"
	"sync"
	"time"
)

// Defaults chosen to cover one hour of platform retries without unbounded
// memory growth.
const (
	DefaultCapacity = 1000
	DefaultTTL      = time.Hour
)

type entry struct {
	id   string
	seen time.Time
}

// Cache is a fixed-capacity FIFO set of event ids with per-entry TTL.
// Safe for concurrent use: the read-evict-insert sequence of Seen runs as
// one critical section.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List               // oldest entry at the front
	index    map[string]*list.Element // event id → element in order

	// now is the clock; overridable in tests.
	now func() time.Time
}

// New returns a Cache with the given capacity and TTL. Non-positive values
// fall back to the package defaults.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
		now:      time.Now,
	}
}

// Seen reports whether eventID was already recorded within the TTL window,
// marking it as seen when it was not. The timestamp of an existing entry is
// not refreshed: the TTL does not slide.
func (c *Cache) Seen(eventID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	// Expire from the front. Entries are in insertion order, so the first
	// non-expired entry ends the sweep.
	for e := c.order.Front(); e != nil; {
		ent := e.Value.(*entry)
		if now.Sub(ent.seen) <= c.ttl {
			break
		}
		next := e.Next()
		c.order.Remove(e)
		delete(c.index, ent.id)
		e = next
	}

	if _, ok := c.index[eventID]; ok {
		return true
	}

	c.index[eventID] = c.order.PushBack(&entry{id: eventID, seen: now})

	// Over capacity: drop oldest first.
	for c.order.Len() > c.capacity {
		front := c.order.Front()
		c.order.Remove(front)
		delete(c.index, front.Value.(*entry).id)
	}

	return false
}

// Len returns the current number of tracked event ids.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
