// Package cache implements the bounded key-value store that backs every
// resource read in the vault MCP server. It is called an LRU cache for
// historical reasons: eviction is by insertion order (FIFO), not access
// order. For the workload here — a handful of long-lived hot entries
// (tags, stats, recent) plus bursts of per-note reads — the two policies
// are indistinguishable in steady state, and FIFO needs no bookkeeping on
// the read path.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Entry is a single cached value together with its lifecycle timestamps.
// TTL == 0 means the entry never expires.
type Entry struct {
	Value      interface{}
	InsertedAt time.Time
	ExpiresAt  time.Time
	TTL        time.Duration
}

func (e *Entry) expired(now time.Time) bool {
	if e.TTL == 0 {
		return false
	}
	return !now.Before(e.ExpiresAt)
}

type element struct {
	key   string
	entry Entry
}

// Stats reports cumulative counters for a Cache instance.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	HitRate   float64
}

// Cache is a bounded, per-entry-TTL key-value store with FIFO eviction.
// It is safe for concurrent use; a single mutex guards both the map and
// the insertion-order list, which is what makes the dedup layer's
// check-then-populate pattern race-free (see internal/dedup).
type Cache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List // front = most recently inserted
	maxSize int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a Cache bounded to maxSize entries. maxSize <= 0 means
// unbounded (eviction never triggers).
func New(maxSize int) *Cache {
	return &Cache{
		items:   make(map[string]*list.Element, 64),
		order:   list.New(),
		maxSize: maxSize,
	}
}

// Get returns the cached value for key if present and not expired. An
// expired entry is deleted on the read that discovers it (lazy TTL
// check), so a caller never observes a stale value.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses.Inc()
		return nil, false
	}

	e := el.Value.(*element)
	if e.entry.expired(time.Now()) {
		c.removeElement(el)
		c.misses.Inc()
		return nil, false
	}

	c.hits.Inc()
	return e.entry.Value, true
}

// Set stores value under key with the given ttl (0 = no expiration). If
// key already exists its value is replaced in place; replacement never
// counts as an eviction and does not change insertion order. Otherwise,
// if the cache is at capacity, the least-recently-inserted entry is
// evicted first to make room.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	now := time.Now()

	// Negative TTL is immediate expiry: store an already-expired entry
	// rather than special-casing it away, so Get's lazy path still runs.
	expiresAt := now.Add(ttl)
	if ttl < 0 {
		expiresAt = now
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*element)
		e.entry = Entry{Value: value, InsertedAt: now, ExpiresAt: expiresAt, TTL: ttl}
		return
	}

	if c.maxSize > 0 && len(c.items) >= c.maxSize {
		c.evictOldest()
	}

	el := c.order.PushFront(&element{
		key:   key,
		entry: Entry{Value: value, InsertedAt: now, ExpiresAt: expiresAt, TTL: ttl},
	})
	c.items[key] = el
}

// evictOldest drops the insertion-order tail. Caller must hold c.mu.
func (c *Cache) evictOldest() {
	tail := c.order.Back()
	if tail == nil {
		return
	}
	c.removeElement(tail)
	c.evictions.Inc()
}

// removeElement deletes the list element and its map entry. Caller must
// hold c.mu. Does not bump the eviction counter — callers that evict vs.
// callers that delete/expire account for it themselves.
func (c *Cache) removeElement(el *list.Element) {
	e := el.Value.(*element)
	c.order.Remove(el)
	delete(c.items, e.key)
}

// Delete removes key if present, returning whether it existed.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// DeletePrefix removes every key with the given prefix and returns the
// count removed. Used by CachedResourceHandler to invalidate every
// cached page of a logical resource by its canonical base key.
func (c *Cache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toDelete []*list.Element
	for k, el := range c.items {
		if strings.HasPrefix(k, prefix) {
			toDelete = append(toDelete, el)
		}
	}
	for _, el := range toDelete {
		c.removeElement(el)
	}
	return len(toDelete)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, 64)
	c.order = list.New()
}

// Size returns the current entry count, including already-expired
// entries that have not yet been removed by a lazy Get.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of cumulative counters.
func (c *Cache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		Size:      c.Size(),
		HitRate:   hitRate,
	}
}

// Keys returns a snapshot of all non-expired keys, most-recently-inserted
// first. Intended for diagnostics; not on any hot path.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	keys := make([]string, 0, len(c.items))
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*element)
		if !e.entry.expired(now) {
			keys = append(keys, e.key)
		}
	}
	return keys
}
