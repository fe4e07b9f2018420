// Package timeline maintains the moving time-range window used to
// filter the materialized graph by recency and to drive playback
// animation.
//
// Example Usage:
//
//	tl := timeline.New(timeline.Config{BucketCount: 50})
//	tl.Load(nodes, edges)
//	tl.Subscribe(func(s timeline.Snapshot) { render(s) })
//	tl.SetRangePercent(0, 0.5)
package timeline

import (
	"sync"

	"github.com/kestrelai/graphlens/pkg/graph"
)

// Config controls bucket count and default animation speed.
type Config struct {
	// BucketCount is the histogram resolution (spec.md §4.7, default 50).
	BucketCount int

	// SpeedMsPerUnit is how many wall-clock milliseconds correspond to
	// advancing the range by one full (minTs, maxTs) span during
	// animation playback.
	SpeedMsPerUnit float64

	// ShowFuture controls whether timestamp-less nodes are visible.
	ShowFuture bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{BucketCount: 50, SpeedMsPerUnit: 20000, ShowFuture: true}
}

// Range is the currently selected [start, end] window, in milliseconds.
type Range struct {
	Start, End int64
}

// Snapshot is the state handed to subscribers after every mutation
// (spec.md §4.7: "every mutation emits a state snapshot to registered
// subscribers exactly once per mutation").
type Snapshot struct {
	MinTs, MaxTs int64
	Current      Range
	IsAnimating  bool
	VisibleNodes []bool
	VisibleEdges []bool
	Histogram    []int
}

// Timeline owns the moving range and per-node/per-edge visibility
// bitsets for one materialized graph.
type Timeline struct {
	mu sync.Mutex

	cfg Config

	nodeTs []*int64 // nil entries mean "no timestamp"
	edges  []graph.Edge

	minTs, maxTs int64
	current      Range
	isAnimating  bool

	subscribers []func(Snapshot)
}

// New creates a Timeline with the given config (zero values fall back
// to DefaultConfig's bucket count).
func New(cfg Config) *Timeline {
	if cfg.BucketCount <= 0 {
		cfg.BucketCount = DefaultConfig().BucketCount
	}
	return &Timeline{cfg: cfg}
}

// Load indexes a materialized graph's timestamps and resets the range
// to the full [minTs, maxTs] span.
func (t *Timeline) Load(nodes []graph.Node, edges []graph.Edge) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nodeTs = make([]*int64, len(nodes))
	t.edges = edges

	var minTs, maxTs int64
	first := true
	for i, n := range nodes {
		t.nodeTs[i] = n.Timestamp
		if n.Timestamp == nil {
			continue
		}
		ts := *n.Timestamp
		if first || ts < minTs {
			minTs = ts
		}
		if first || ts > maxTs {
			maxTs = ts
		}
		first = false
	}
	t.minTs, t.maxTs = minTs, maxTs
	t.current = Range{Start: minTs, End: maxTs}

	t.notify()
}

// SetRange pins the visible window to [start, end] and recomputes
// visibility.
func (t *Timeline) SetRange(start, end int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = Range{Start: start, End: end}
	t.notify()
}

// SetRangePercent sets the range as fractions of [minTs, maxTs], each
// clamped to [0, 1].
func (t *Timeline) SetRangePercent(p0, p1 float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p0, p1 = clamp01(p0), clamp01(p1)
	span := t.maxTs - t.minTs
	t.current = Range{
		Start: t.minTs + int64(p0*float64(span)),
		End:   t.minTs + int64(p1*float64(span)),
	}
	t.notify()
}

// SetEndpointPercent advances only the end of the window, leaving the
// start pinned at minTs — used for progressive reveal (spec.md §4.7).
func (t *Timeline) SetEndpointPercent(p float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p = clamp01(p)
	span := t.maxTs - t.minTs
	t.current = Range{Start: t.minTs, End: t.minTs + int64(p*float64(span))}
	t.notify()
}

// StartAnimating begins playback; the caller drives ticks with Tick.
func (t *Timeline) StartAnimating() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.isAnimating = true
	t.notify()
}

// StopAnimating halts playback without changing the current range.
func (t *Timeline) StopAnimating() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.isAnimating = false
	t.notify()
}

// Tick advances End by (elapsedMs / SpeedMsPerUnit) * (maxTs - minTs),
// stopping animation once End reaches maxTs (spec.md §4.7).
func (t *Timeline) Tick(elapsedMs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.isAnimating || t.cfg.SpeedMsPerUnit <= 0 {
		return
	}
	span := float64(t.maxTs - t.minTs)
	advance := (elapsedMs / t.cfg.SpeedMsPerUnit) * span
	t.current.End += int64(advance)
	if t.current.End >= t.maxTs {
		t.current.End = t.maxTs
		t.isAnimating = false
	}
	t.notify()
}

// SnapToNearest returns the closest observed node timestamp to ts.
func (t *Timeline) SnapToNearest(ts int64) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	best := ts
	bestDiff := int64(-1)
	for _, nt := range t.nodeTs {
		if nt == nil {
			continue
		}
		diff := *nt - ts
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			bestDiff = diff
			best = *nt
		}
	}
	return best
}

// Subscribe registers a snapshot listener, invoked synchronously in
// registration order on every mutation.
func (t *Timeline) Subscribe(fn func(Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers = append(t.subscribers, fn)
}

// Snapshot returns the current state without mutating anything.
func (t *Timeline) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Timeline) notify() {
	snap := t.snapshotLocked()
	for _, fn := range t.subscribers {
		fn(snap)
	}
}

func (t *Timeline) snapshotLocked() Snapshot {
	visibleNodes := make([]bool, len(t.nodeTs))
	for i, ts := range t.nodeTs {
		if ts == nil {
			visibleNodes[i] = t.cfg.ShowFuture
			continue
		}
		visibleNodes[i] = *ts >= t.current.Start && *ts <= t.current.End
	}

	visibleEdges := make([]bool, len(t.edges))
	for i, e := range t.edges {
		visibleEdges[i] = inBounds(visibleNodes, e.Source) && inBounds(visibleNodes, e.Target)
	}

	return Snapshot{
		MinTs:        t.minTs,
		MaxTs:        t.maxTs,
		Current:      t.current,
		IsAnimating:  t.isAnimating,
		VisibleNodes: visibleNodes,
		VisibleEdges: visibleEdges,
		Histogram:    t.histogramLocked(),
	}
}

func (t *Timeline) histogramLocked() []int {
	buckets := make([]int, t.cfg.BucketCount)
	span := t.maxTs - t.minTs
	if span <= 0 {
		return buckets
	}
	for _, ts := range t.nodeTs {
		if ts == nil {
			continue
		}
		idx := int(float64(*ts-t.minTs) / float64(span) * float64(t.cfg.BucketCount))
		if idx >= t.cfg.BucketCount {
			idx = t.cfg.BucketCount - 1
		}
		if idx < 0 {
			idx = 0
		}
		buckets[idx]++
	}
	return buckets
}

func inBounds(visible []bool, idx int) bool {
	return idx >= 0 && idx < len(visible) && visible[idx]
}

func clamp01(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
