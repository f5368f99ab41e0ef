package resolve

import (
	"container/list"
	"sync"
	"time"

	"handsfree/internal/logging"
)

// Cache is a TTL + LRU memo of resolver outcomes, keyed by the raw query
// string, maintained in insertion/access order. It memoizes failures and
// timeouts too, so a sour query is never retried on every command.
type Cache struct {
	mu       sync.Mutex
	maxSize  int
	ttl      time.Duration
	entries  map[string]*list.Element // key -> node in order
	order    *list.List               // front = most-recently-used
}

type cacheNode struct {
	key   string
	entry cacheEntry
}

// NewCache constructs a cache with the given bounds. maxSize <= 0 means
// unbounded (LRU eviction never triggers); ttl <= 0 means entries never
// expire by age.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	return &Cache{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns the cached result for key, or false on miss. A hit older than
// ttl is evicted and reported as a miss.
func (c *Cache) Get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	node := el.Value.(*cacheNode)
	if c.ttl > 0 && time.Since(node.entry.insertion) > c.ttl {
		c.order.Remove(el)
		delete(c.entries, key)
		return Result{}, false
	}
	c.order.MoveToFront(el)
	result := node.entry.result
	result.FromCache = true
	return result, true
}

// Put inserts or updates the cached result for key. Entries strictly older
// than ttl are pruned before any LRU eviction is considered; an existing
// key is updated in place and promoted to most-recently-used rather than
// evicted.
func (c *Cache) Put(key string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneExpiredLocked()

	if el, ok := c.entries[key]; ok {
		node := el.Value.(*cacheNode)
		node.entry = cacheEntry{result: result, insertion: time.Now()}
		c.order.MoveToFront(el)
		return
	}

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}

	node := &cacheNode{key: key, entry: cacheEntry{result: result, insertion: time.Now()}}
	el := c.order.PushFront(node)
	c.entries[key] = el
	logging.CacheDebug("put key=%q status=%s size=%d", key, result.Status, len(c.entries))
}

// pruneExpiredLocked removes every entry older than ttl. Caller holds c.mu.
func (c *Cache) pruneExpiredLocked() {
	if c.ttl <= 0 {
		return
	}
	now := time.Now()
	for el := c.order.Back(); el != nil; {
		node := el.Value.(*cacheNode)
		prev := el.Prev()
		if now.Sub(node.entry.insertion) > c.ttl {
			c.order.Remove(el)
			delete(c.entries, node.key)
		}
		el = prev
	}
}

// evictOldestLocked removes the least-recently-used entry. Caller holds c.mu.
func (c *Cache) evictOldestLocked() {
	el := c.order.Back()
	if el == nil {
		return
	}
	node := el.Value.(*cacheNode)
	c.order.Remove(el)
	delete(c.entries, node.key)
	logging.CacheDebug("evicted lru key=%q", node.key)
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns cache keys ordered most-recently-used first, for tests that
// need to assert eviction order.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*cacheNode).key)
	}
	return out
}
