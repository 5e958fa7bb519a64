// package cache memoises the best candidate per normalized query for a short time
package cache

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/desertthunder/tunex/internal/models"
)

const (
	DefaultTTL      = 300 * time.Second
	DefaultCapacity = 500
)

// Stats is a snapshot of the cache for CacheStats callers.
type Stats struct {
	Entries int           `json:"entries"`
	TTL     time.Duration `json:"ttl"`
	Enabled bool          `json:"enabled"`
}

// Cache is a bounded TTL map from query key to candidate.
//
// Expired entries are dropped when read. A Set on a full cache first evicts the oldest
// tenth of the entries (at least one) by insertion time.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]models.CacheEntry
	ttl      time.Duration
	capacity int
	enabled  bool
	now      func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCapacity bounds the number of entries.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithEnabled turns the cache on or off. A disabled cache always misses.
func WithEnabled(enabled bool) Option {
	return func(c *Cache) {
		c.enabled = enabled
	}
}

// WithClock replaces [time.Now], for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an enabled cache with default TTL and capacity.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[string]models.CacheEntry),
		ttl:      DefaultTTL,
		capacity: DefaultCapacity,
		enabled:  true,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ScopedKey derives a per-source key from a query key.
func ScopedKey(sourceID, key string) string {
	return sourceID + "\x00" + key
}

// Get returns the live candidate stored under key.
func (c *Cache) Get(key string) (models.CandidateResult, bool) {
	if !c.enabled {
		return models.CandidateResult{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return models.CandidateResult{}, false
	}
	if entry.Expired(c.now()) {
		delete(c.entries, key)
		return models.CandidateResult{}, false
	}
	return entry.Candidate, true
}

// Set stores candidate under key, replacing any previous entry.
func (c *Cache) Set(key string, candidate models.CandidateResult) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictLocked()
	}
	c.entries[key] = models.CacheEntry{
		Key:        key,
		Candidate:  candidate,
		InsertedAt: c.now(),
		TTL:        c.ttl,
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Compact removes expired entries and returns how many were removed.
func (c *Cache) Compact() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats reports the number of stored entries, the TTL and whether caching is on.
// Entries may include expired ones not yet read or compacted.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Entries: len(c.entries), TTL: c.ttl, Enabled: c.enabled}
}

// Entries returns a snapshot of live entries, oldest first.
func (c *Cache) Entries() []models.CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make([]models.CacheEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		if !entry.Expired(now) {
			out = append(out, entry)
		}
	}
	slices.SortFunc(out, func(a, b models.CacheEntry) int { return a.InsertedAt.Compare(b.InsertedAt) })
	return out
}

func (c *Cache) evictLocked() {
	entries := lo.Values(c.entries)
	slices.SortFunc(entries, func(a, b models.CacheEntry) int {
		if n := a.InsertedAt.Compare(b.InsertedAt); n != 0 {
			return n
		}
		return cmp.Compare(a.Key, b.Key)
	})

	n := max(len(entries)/10, 1)
	for _, entry := range entries[:n] {
		delete(c.entries, entry.Key)
	}
}
