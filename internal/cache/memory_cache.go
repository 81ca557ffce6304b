// Package cache provides the process-local TTL cache used for derived
// response payloads and coordinate lookups. Expiry is checked lazily on every
// read; the periodic sweep only reclaims memory earlier.
package cache

import (
	"sync"
	"time"

	"github.com/tmarsden/tradescout-backend/pkg/logger"
)

// EventType identifies a cache lifecycle event.
type EventType string

const (
	EventSet    EventType = "set"
	EventExpire EventType = "expire"
	EventEvict  EventType = "evict"
)

// Observer receives cache lifecycle events for monitoring.
type Observer func(event EventType, key string)

// Stats is a snapshot of cache accounting.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Count  int   `json:"count"`
}

type entry struct {
	value     interface{}
	setAt     time.Time
	expiresAt time.Time
}

// MemoryCache is a capacity-bounded key/value store with per-entry TTL.
//
// Eviction policy: when Set would exceed capacity, the entry with the oldest
// set time (least-recently-set) is evicted. Reads do not refresh an entry's
// position; only Set does.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	maxEntries int
	hits       int64
	misses     int64
	observer   Observer
	now        func() time.Time
}

// NewMemoryCache creates a cache holding at most maxEntries entries.
// maxEntries <= 0 means unbounded.
func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// SetObserver registers a callback for set/expire/evict events. Events are
// delivered asynchronously, outside the cache lock.
func (c *MemoryCache) SetObserver(observer Observer) {
	c.mu.Lock()
	c.observer = observer
	c.mu.Unlock()
}

// Get returns the value for key, or (nil, false) when absent or expired.
// An expired entry is removed on read even if no sweep has run.
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && c.now().After(e.expiresAt) {
		delete(c.entries, key)
		ok = false
		c.notifyLocked(EventExpire, key)
	}
	if !ok {
		c.misses++
		c.mu.Unlock()
		return nil, false
	}
	c.hits++
	c.mu.Unlock()
	return e.value, true
}

// Set stores value under key for ttl, replacing any existing entry and
// refreshing its set time.
func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	now := c.now()
	c.mu.Lock()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = entry{value: value, setAt: now, expiresAt: now.Add(ttl)}
	c.notifyLocked(EventSet, key)
	c.mu.Unlock()
}

// Delete removes key if present.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Keys returns the keys of all non-expired entries.
func (c *MemoryCache) Keys() []string {
	now := c.now()
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			continue
		}
		keys = append(keys, key)
	}
	c.mu.Unlock()
	return keys
}

// Stats returns hit/miss counters and the current entry count, including
// entries that have expired but not yet been swept or read.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	s := Stats{Hits: c.hits, Misses: c.misses, Count: len(c.entries)}
	c.mu.Unlock()
	return s
}

// Sweep removes all expired entries and returns how many were removed.
func (c *MemoryCache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
			c.notifyLocked(EventExpire, key)
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		logger.Debug("Swept expired cache entries", map[string]interface{}{
			"removed": removed,
		})
	}
	return removed
}

// evictOldestLocked drops the least-recently-set entry. Caller holds the lock.
func (c *MemoryCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for key, e := range c.entries {
		if first || e.setAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.setAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.notifyLocked(EventEvict, oldestKey)
	}
}

// notifyLocked dispatches an event on a fresh goroutine so observers never
// run under the cache lock. Caller holds the lock.
func (c *MemoryCache) notifyLocked(event EventType, key string) {
	if c.observer == nil {
		return
	}
	observer := c.observer
	go observer(event, key)
}
