package raster

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sells-group/glad-clusters/internal/tile"
)

// Cache is a concurrency-safe LRU cache of encoded tile rasters with a TTL.
// Keys combine the source name and the tile address.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	lru        *list.List // front is most recently used
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	key    string
	data   []byte
	stored time.Time
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewCache returns a cache holding at most maxEntries tiles for ttl each.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	return &Cache{
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		maxEntries: max(maxEntries, 1),
		ttl:        ttl,
		now:        time.Now,
	}
}

func cacheKey(source string, c tile.Coord) string {
	return source + "/" + c.String()
}

// Get returns the cached bytes of a tile, or nil on a miss or expiry.
func (c *Cache) Get(source string, t tile.Coord) []byte {
	key := cacheKey(source, t)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil
	}
	e := el.Value.(*cacheEntry)
	if c.ttl > 0 && c.now().Sub(e.stored) > c.ttl {
		c.lru.Remove(el)
		delete(c.entries, key)
		c.misses.Add(1)
		return nil
	}
	c.lru.MoveToFront(el)
	c.hits.Add(1)
	return e.data
}

// Put stores a tile, evicting the least recently used entry when full.
func (c *Cache) Put(source string, t tile.Coord, data []byte) {
	key := cacheKey(source, t)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*cacheEntry)
		e.data, e.stored = data, c.now()
		c.lru.MoveToFront(el)
		return
	}
	for c.lru.Len() >= c.maxEntries {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	c.entries[key] = c.lru.PushFront(&cacheEntry{key: key, data: data, stored: c.now()})
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	n := c.lru.Len()
	c.mu.Unlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return CacheStats{Entries: n, MaxEntries: c.maxEntries, Hits: hits, Misses: misses, HitRate: rate}
}
