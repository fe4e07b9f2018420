package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphCacheMissThenHit(t *testing.T) {
	c := NewGraphCache(0)
	key := Key{StoreMtimeMs: 100, Threshold: 0.55}

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Put(key, "graph-v1")

	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "graph-v1", v)
}

func TestGraphCacheKeyChangeEvicts(t *testing.T) {
	c := NewGraphCache(0)
	k1 := Key{StoreMtimeMs: 100, Threshold: 0.55}
	k2 := Key{StoreMtimeMs: 200, Threshold: 0.55}

	c.Put(k1, "old")
	c.Put(k2, "new")

	_, ok := c.Get(k1)
	assert.False(t, ok, "single-slot cache must evict on key change")

	v, ok := c.Get(k2)
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestGraphCacheThresholdChangeEvicts(t *testing.T) {
	c := NewGraphCache(0)
	k1 := Key{StoreMtimeMs: 100, Threshold: 0.55}
	k2 := Key{StoreMtimeMs: 100, Threshold: 0.8}

	c.Put(k1, "low-threshold")
	_, ok := c.Get(k2)
	assert.False(t, ok)
}

func TestGraphCacheTTLExpires(t *testing.T) {
	c := NewGraphCache(20 * time.Millisecond)
	key := Key{StoreMtimeMs: 1, Threshold: 0.55}

	c.Put(key, "v")
	_, ok := c.Get(key)
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestGraphCacheGetOrBuildRunsOnceOnHit(t *testing.T) {
	c := NewGraphCache(0)
	key := Key{StoreMtimeMs: 1, Threshold: 0.55}
	calls := 0

	build := func() (any, error) {
		calls++
		return "built", nil
	}

	v1, err := c.GetOrBuild(key, build)
	require.NoError(t, err)
	v2, err := c.GetOrBuild(key, build)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls, "second call with same key must not rebuild")
}

func TestGraphCacheGetOrBuildPropagatesError(t *testing.T) {
	c := NewGraphCache(0)
	key := Key{StoreMtimeMs: 1, Threshold: 0.55}
	wantErr := errors.New("boom")

	_, err := c.GetOrBuild(key, func() (any, error) { return nil, wantErr })
	assert.ErrorIs(t, err, wantErr)

	// A failed build must not poison the cache.
	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestGraphCacheInvalidateForcesRebuild(t *testing.T) {
	c := NewGraphCache(0)
	key := Key{StoreMtimeMs: 1, Threshold: 0.55}
	calls := 0
	build := func() (any, error) { calls++; return calls, nil }

	_, _ = c.GetOrBuild(key, build)
	c.Invalidate()
	_, _ = c.GetOrBuild(key, build)

	assert.Equal(t, 2, calls)
}

func TestGraphCacheStats(t *testing.T) {
	c := NewGraphCache(0)
	key := Key{StoreMtimeMs: 1, Threshold: 0.55}

	c.Get(key) // miss
	c.Put(key, "v")
	c.Get(key) // hit
	c.Get(key) // hit

	stats := c.Stats()
	assert.True(t, stats.Occupied)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 66.66, stats.HitRate, 0.1)
}

func TestGraphCacheConcurrentGetOrBuildSerializes(t *testing.T) {
	c := NewGraphCache(0)
	key := Key{StoreMtimeMs: 1, Threshold: 0.55}

	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0
	build := func() (any, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GetOrBuild(key, build)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight, "spec.md §5: exactly one in-flight build per cache key")
}
