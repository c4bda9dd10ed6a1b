package search

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long a fetched page stays valid.
const DefaultCacheTTL = 5 * time.Minute

// Entry is one cached result page. Entries are replaced, never updated.
type Entry struct {
	Movies       []MovieSummary
	TotalResults int
	FetchedAt    time.Time
}

// Cache maps normalized queries to result pages with a fixed TTL. Expired
// entries are treated as absent on lookup and only removed by Prune.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[Key]Entry
}

// NewCache returns an empty cache. A non-positive ttl selects DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[Key]Entry),
	}
}

func (c *Cache) Lookup(key Key) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.valid(e) {
		return Entry{}, false
	}
	return e, true
}

func (c *Cache) Store(key Key, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
}

// Prune drops every expired entry and returns how many were removed.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if !c.valid(e) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len counts stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) valid(e Entry) bool {
	return c.now().Sub(e.FetchedAt) < c.ttl
}
