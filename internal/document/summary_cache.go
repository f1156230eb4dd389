package document

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// SummaryCache is an LRU of finished document summaries keyed by text hash.
// A nil *SummaryCache is a valid, always-empty cache.
type SummaryCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
	ttl        time.Duration
}

type summaryCacheEntry struct {
	key       string
	summary   string
	expiresAt time.Time
}

// NewSummaryCache returns nil when maxEntries or ttl is not positive.
func NewSummaryCache(maxEntries int, ttl time.Duration) *SummaryCache {
	if maxEntries <= 0 || ttl <= 0 {
		return nil
	}

	return &SummaryCache{
		entries:    make(map[string]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

func summaryCacheKey(text string) string {
	if text == "" {
		return ""
	}

	hash := sha256.Sum256([]byte(text))

	return hex.EncodeToString(hash[:])
}

func (c *SummaryCache) get(key string, now time.Time) (string, bool) {
	if c == nil || key == "" {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return "", false
	}

	entry := elem.Value.(*summaryCacheEntry) //nolint:forcetypeassert // Only entries are stored.
	if now.After(entry.expiresAt) {
		c.removeLocked(elem)

		return "", false
	}

	c.order.MoveToFront(elem)

	return entry.summary, true
}

func (c *SummaryCache) put(key string, summary string, now time.Time) {
	if c == nil || key == "" || summary == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := now.Add(c.ttl)

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*summaryCacheEntry) //nolint:forcetypeassert // Only entries are stored.
		entry.summary = summary
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)

		return
	}

	c.entries[key] = c.order.PushFront(&summaryCacheEntry{
		key:       key,
		summary:   summary,
		expiresAt: expiresAt,
	})

	c.evictLocked(now)
}

func (c *SummaryCache) size() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// evictLocked drops expired entries, then least recently used ones over the limit.
func (c *SummaryCache) evictLocked(now time.Time) {
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if entry := elem.Value.(*summaryCacheEntry); now.After(entry.expiresAt) { //nolint:forcetypeassert // Only entries are stored.
			c.removeLocked(elem)
		}
		elem = prev
	}

	for len(c.entries) > c.maxEntries {
		c.removeLocked(c.order.Back())
	}
}

func (c *SummaryCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*summaryCacheEntry) //nolint:forcetypeassert // Only entries are stored.

	delete(c.entries, entry.key)
	c.order.Remove(elem)
}
