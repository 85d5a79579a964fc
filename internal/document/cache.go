package document

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Cache retains prepared content parts for a short while so "add question"
// can reuse the same source materials without re-uploading them. Entries
// live in process memory only; a restart simply forces a fresh upload.
type Cache struct {
	ttl     time.Duration
	onEvict func(Prepared)

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	prep    Prepared
	expires time.Time
}

// NewCache creates a cache whose entries expire after ttl. onEvict, if
// non-nil, runs for each expired entry so the caller can release uploaded
// files on the AI service side. The hook runs outside the cache lock and
// may itself call back into the cache.
func NewCache(ttl time.Duration, onEvict func(Prepared)) *Cache {
	return &Cache{ttl: ttl, onEvict: onEvict, entries: make(map[string]cacheEntry)}
}

// Put stores prepared materials and returns the source ID handed back to
// the client.
func (c *Cache) Put(prep Prepared) string {
	id := uuid.NewString()
	c.mu.Lock()
	expired := c.pruneLocked()
	c.entries[id] = cacheEntry{prep: prep, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	c.evict(expired)
	return id
}

// Get returns the prepared materials for a source ID, or false when the ID
// is unknown or expired.
func (c *Cache) Get(id string) (Prepared, bool) {
	c.mu.Lock()
	expired := c.pruneLocked()
	e, ok := c.entries[id]
	c.mu.Unlock()
	c.evict(expired)
	if !ok {
		return Prepared{}, false
	}
	return e.prep, true
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	expired := c.pruneLocked()
	n := len(c.entries)
	c.mu.Unlock()
	c.evict(expired)
	return n
}

// pruneLocked drops expired entries and returns them. Caller must hold the
// mutex; the eviction hook runs only after it is released, so slow cleanup
// work never blocks other requests.
func (c *Cache) pruneLocked() []Prepared {
	now := time.Now()
	var expired []Prepared
	for id, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, id)
			expired = append(expired, e.prep)
		}
	}
	return expired
}

func (c *Cache) evict(expired []Prepared) {
	if c.onEvict == nil {
		return
	}
	for _, prep := range expired {
		c.onEvict(prep)
	}
}
