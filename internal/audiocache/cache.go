// Package audiocache keeps recently synthesized speech audio in memory
// so re-reading a chunk, or resuming after a stale pause, does not hit
// the synthesis engine again.
package audiocache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Entry is one cached synthesis result: raw PCM plus the format needed
// to play it back.
type Entry struct {
	PCM        []byte
	SampleRate int
	Channels   int
	Duration   time.Duration
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Items     int
	HitRate   float64
}

// Cache is an LRU cache of synthesized chunks bounded by entry count.
// Speech chunks are short, so counting entries keeps sizing simple and
// predictable.
type Cache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	eviction *list.List
	stats    Stats
}

type cacheEntry struct {
	key   string
	value Entry
}

// New creates a cache holding at most capacity entries.
func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

// Key derives a stable cache key from the synthesis parameters that
// affect the output audio.
func Key(engine, voice string, rate float64, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s/%s/%.2f/%s", engine, voice, rate, hex.EncodeToString(sum[:16]))
}

// Get retrieves a cached entry, marking it most recently used.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return Entry{}, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*cacheEntry).value, true
}

// Put stores an entry, evicting the least recently used entries as
// needed.
func (c *Cache) Put(key string, value Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	for c.eviction.Len() >= c.capacity {
		c.evictOldest()
	}

	elem := c.eviction.PushFront(&cacheEntry{key: key, value: value})
	c.items[key] = elem
}

// Delete removes an entry if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
}

// Len returns the entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Stats returns a snapshot of cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Items = c.eviction.Len()
	if s.Hits+s.Misses > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Hits+s.Misses)
	}
	return s
}

func (c *Cache) evictOldest() {
	elem := c.eviction.Back()
	if elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
	}
}

func (c *Cache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*cacheEntry).key)
}
