// Package cache provides the Graph Construction Engine's single-slot
// Graph Cache (spec.md §4.9, §3.3): a build is memoized under a key of
// (store_mtime, similarity_threshold); a hit returns the existing
// result unchanged, a miss re-runs the full pipeline and replaces the
// slot. Re-entrant builds for the same process are serialized so there
// is never more than one in-flight pipeline run (spec.md §5: "exactly
// one in-flight build per cache key; the cache guards re-entry").
//
// Narrowed from the teacher's generic N-entry LRU-with-TTL query cache
// (container/list + hash map, hit/miss counters) down to the spec's
// single-slot shape: there is exactly one cached entry, so no LRU list
// is needed, but the TTL-expiration and atomic hit/miss-counter idioms
// are kept.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Key identifies one Graph Cache entry (spec.md §3.3: "invalidated
// when (store_mtime, similarity_threshold) changes").
type Key struct {
	StoreMtimeMs int64
	Threshold    float64
}

// entry holds one cached build result alongside its insertion time,
// used only for the optional TTL layered on top of key invalidation.
type entry struct {
	key       Key
	value     any
	expiresAt time.Time
}

// GraphCache is a thread-safe single-slot memoization of the full GCE
// pipeline build, keyed by Key.
//
// Example:
//
//	c := cache.NewGraphCache(0)
//	v, err := c.GetOrBuild(cache.Key{StoreMtimeMs: mtime, Threshold: 0.55}, func() (any, error) {
//		return engine.Build(ctx, reader, cfg)
//	})
type GraphCache struct {
	mu sync.Mutex

	ttl     time.Duration
	current *entry

	hits   uint64
	misses uint64
}

// NewGraphCache creates an empty Graph Cache. ttl is an additional
// expiration layered on top of key invalidation; zero disables it, in
// which case only a changed Key evicts the slot (spec.md §3.3).
func NewGraphCache(ttl time.Duration) *GraphCache {
	return &GraphCache{ttl: ttl}
}

// Get returns the cached value for key if present, not expired, and
// not superseded by a different key. Scenario F (spec.md §8): two
// consecutive calls with the same key return the exact same value
// (reference equality for pointer/slice-typed results).
func (c *GraphCache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *GraphCache) getLocked(key Key) (any, bool) {
	if c.current == nil || c.current.key != key {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}
	if c.ttl > 0 && time.Now().After(c.current.expiresAt) {
		c.current = nil
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}
	atomic.AddUint64(&c.hits, 1)
	return c.current.value, true
}

// Put stores value under key, replacing whatever was cached before
// regardless of its key (spec.md §3.3: the cache is a single slot).
func (c *GraphCache) Put(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(key, value)
}

func (c *GraphCache) putLocked(key Key, value any) {
	e := &entry{key: key, value: value}
	if c.ttl > 0 {
		e.expiresAt = time.Now().Add(c.ttl)
	}
	c.current = e
}

// GetOrBuild returns the cached value for key, or runs build and
// caches its result on a miss. The cache's lock is held for the
// duration of a miss's build call, which is what gives the GCE its
// "exactly one in-flight build per cache key" guarantee (spec.md §5):
// a second caller arriving mid-build blocks until the first finishes,
// then observes whatever the slot now holds rather than triggering a
// redundant rebuild.
func (c *GraphCache) GetOrBuild(key Key, build func() (any, error)) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.getLocked(key); ok {
		return v, nil
	}

	v, err := build()
	if err != nil {
		return nil, err
	}
	c.putLocked(key, v)
	return v, nil
}

// Invalidate clears the cached entry unconditionally, e.g. when a
// caller passes refresh=true to the /graph endpoint (spec.md §6.2).
func (c *GraphCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
}

// Stats reports cache hit/miss counters.
func (c *GraphCache) Stats() CacheStats {
	hits := atomic.LoadUint64(&c.hits)
	misses := atomic.LoadUint64(&c.misses)
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	c.mu.Lock()
	occupied := c.current != nil
	c.mu.Unlock()

	return CacheStats{Occupied: occupied, Hits: hits, Misses: misses, HitRate: hitRate}
}

// CacheStats holds Graph Cache performance counters (reported in the
// API facade's meta block, spec.md §4.9).
type CacheStats struct {
	Occupied bool
	Hits     uint64
	Misses   uint64
	HitRate  float64
}
