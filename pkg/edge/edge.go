// Package edge runs the strictly ordered Edge Synthesizer pipeline
// that turns materialized Nodes into the full Edge set: stored
// relations first, then a sequence of structural and semantic
// synthesis steps, each adding edges the later steps can build on.
package edge

import (
	"strings"

	"github.com/kestrelai/graphlens/pkg/config"
	"github.com/kestrelai/graphlens/pkg/graph"
	"github.com/kestrelai/graphlens/pkg/logx"
	"github.com/kestrelai/graphlens/pkg/math/vector"
	"github.com/kestrelai/graphlens/pkg/nodebuilder"
	"github.com/kestrelai/graphlens/pkg/store"
)

var log = logx.Get("edge")

// pairKey is the unordered-dedup key for non-hierarchy edges (spec.md
// §3.2: "the set of pairs {min(s,t), max(s,t)} is unique").
type pairKey struct{ a, b int }

func newPairKey(s, t int) pairKey {
	if s > t {
		s, t = t, s
	}
	return pairKey{s, t}
}

// synthesizer accumulates edges while enforcing the addEdge contract
// from spec.md §4.4: no self-loops, no unordered duplicates, per-node
// fan-out caps split between a structural phase and a semantic phase.
type synthesizer struct {
	nodes   []graph.Node
	edges   []graph.Edge
	seen    map[pairKey]bool
	fanout  map[int]int // structural fan-out counter
	semFan  map[int]int // semantic fan-out counter
	cfg     config.SimilarityConfig
}

func newSynthesizer(nodes []graph.Node, cfg config.SimilarityConfig) *synthesizer {
	return &synthesizer{
		nodes:  nodes,
		seen:   make(map[pairKey]bool),
		fanout: make(map[int]int),
		semFan: make(map[int]int),
		cfg:    cfg,
	}
}

// addEdge implements the shared contract every pipeline step funnels
// through (spec.md §4.4).
func (s *synthesizer) addEdge(source, target int, weight float64, t graph.EdgeType) bool {
	if source == target {
		return false
	}
	if source < 0 || target < 0 || source >= len(s.nodes) || target >= len(s.nodes) {
		return false
	}
	key := newPairKey(source, target)
	if s.seen[key] {
		return false
	}

	group := graph.ClassifyGroup(t)
	if group == graph.GroupSemantic {
		if s.semFan[source] >= s.cfg.SemanticFanoutCap || s.semFan[target] >= s.cfg.SemanticFanoutCap {
			return false
		}
		s.semFan[source]++
		s.semFan[target]++
	} else {
		if s.fanout[source] >= s.cfg.StructuralFanoutCap || s.fanout[target] >= s.cfg.StructuralFanoutCap {
			return false
		}
		s.fanout[source]++
		s.fanout[target]++
	}

	s.seen[key] = true
	s.edges = append(s.edges, graph.Edge{Source: source, Target: target, Weight: clamp01(weight), Type: t, Group: group})
	return true
}

func clamp01(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

// Input bundles the store collections the pipeline needs beyond the
// materialized node set (spec.md §4.4 steps 1, 3, 4, 6).
type Input struct {
	StoredEdges   []store.EdgeRow
	FileSequences []store.FileSequenceRow
}

// Synthesize runs the full 12-step pipeline and returns the
// materialized edge set plus each node's recomputed connection count.
func Synthesize(nodes []graph.Node, embeddings [][]float32, idx *nodebuilder.Index, in Input, cfg config.SimilarityConfig) ([]graph.Edge, []int) {
	s := newSynthesizer(nodes, cfg)

	stepStoredRelations(s, idx, in.StoredEdges)
	stepQPatternGrouping(s, nodes)
	stepRoutingEdges(s, nodes, idx)
	stepFileCoedit(s, idx, in.FileSequences)
	stepTrajectoryStructural(s, nodes)
	stepTemporalBridging(s, nodes)
	stepContentMatchAndTypeMapping(s, nodes)
	stepMemoryTrajectoryBridge(s, nodes)
	stepQPatternAnchors(s, nodes, idx)
	stepAgentHierarchy(s, nodes, idx)
	stepSemanticEdges(s, nodes, embeddings, cfg)
	stepKNNRescue(s, nodes, embeddings, cfg)

	counts := make([]int, len(nodes))
	for _, e := range s.edges {
		counts[e.Source]++
		counts[e.Target]++
	}
	return s.edges, counts
}

func tokenize(text string, minLen int) map[string]bool {
	out := make(map[string]bool)
	var cur strings.Builder
	flush := func() {
		if cur.Len() > minLen {
			out[strings.ToLower(cur.String())] = true
		}
		cur.Reset()
	}
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

func overlapCount(a, b map[string]bool) int {
	n := 0
	for tok := range a {
		if b[tok] {
			n++
		}
	}
	return n
}

func cosine(a, b []float32) float64 {
	return vector.CosineSimilarity(a, b)
}
