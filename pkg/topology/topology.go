// Package topology computes persistent homology over the projected
// node layout: connected-component bars (H0) via union-find and
// cycle bars (H1) via BFS-recovered representatives, then derives
// Knowledge Gaps from every cycle with at least three member nodes,
// ordered by persistence.
package topology

import (
	"math"
	"sort"

	"github.com/katalvlaran/lvlath/matrix"

	"github.com/kestrelai/graphlens/pkg/graph"
	"github.com/kestrelai/graphlens/pkg/logx"
)

var log = logx.Get("topology")

// maxNodes is the complexity ceiling past which the engine declines
// to run and returns empty barcodes (spec.md §4.6: "N <= ~2000").
const maxNodes = 2000

// filtrationEdge is one candidate edge in the Vietoris-Rips filtration.
type filtrationEdge struct {
	u, v int
	dist float64
}

// Result bundles the persistence barcode and derived knowledge gaps.
type Result struct {
	Bars          []graph.Bar
	KnowledgeGaps []graph.KnowledgeGap
}

// Compute runs persistent homology over the 2D positions of nodes
// (spec.md §4.6), reading each node's X and Y fields.
func Compute(nodes []graph.Node, maxEpsilonMultiplier float64) Result {
	n := len(nodes)
	if n > maxNodes {
		log.Debug("node count exceeds topology ceiling, returning empty barcode", "n", n, "ceiling", maxNodes)
		return Result{}
	}
	if n < 2 {
		return Result{}
	}

	dist, err := buildDistanceMatrix(nodes)
	if err != nil {
		log.Debug("failed to build distance matrix, returning empty barcode", "err", err)
		return Result{}
	}

	edges := flattenAscending(dist, n)
	if len(edges) == 0 {
		return Result{}
	}

	maxDist := edges[len(edges)-1].dist
	maxEpsilon := maxEpsilonMultiplier * maxDist

	bars, cycleReps := computeH0AndH1(nodes, edges, maxEpsilon)
	gaps := deriveKnowledgeGaps(nodes, cycleReps)

	return Result{Bars: bars, KnowledgeGaps: gaps}
}

// buildDistanceMatrix builds the upper-triangular pairwise Euclidean
// distance matrix on node positions, hosted by lvlath's dense matrix
// type (spec.md §4.6: "upper-triangular flat storage").
func buildDistanceMatrix(nodes []graph.Node) (*matrix.Dense, error) {
	n := len(nodes)
	dense, err := matrix.NewZeros(n, n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := math.Hypot(nodes[i].X-nodes[j].X, nodes[i].Y-nodes[j].Y)
			if err := dense.Set(i, j, d); err != nil {
				return nil, err
			}
			if err := dense.Set(j, i, d); err != nil {
				return nil, err
			}
		}
	}
	return dense, nil
}

func flattenAscending(dense *matrix.Dense, n int) []filtrationEdge {
	edges := make([]filtrationEdge, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, err := dense.At(i, j)
			if err != nil {
				continue
			}
			edges = append(edges, filtrationEdge{u: i, v: j, dist: d})
		}
	}
	sort.Slice(edges, func(a, b int) bool { return edges[a].dist < edges[b].dist })
	return edges
}

// cycleRep is an H1 bar's witnessing cycle: the path BFS recovered
// between the two endpoints of the edge that closed it, plus that
// closing edge's own endpoints.
type cycleRep struct {
	bar   graph.Bar
	nodes []int
}

func computeH0AndH1(nodes []graph.Node, edges []filtrationEdge, maxEpsilon float64) ([]graph.Bar, []cycleRep) {
	n := len(nodes)
	d := newDSU(n)
	adj := make([][]int, n)

	var bars []graph.Bar
	var cycles []cycleRep

	for _, e := range edges {
		if e.dist > maxEpsilon {
			break
		}

		rootU, rootV := d.find(e.u), d.find(e.v)
		if rootU != rootV {
			birth, merged := d.union(e.u, e.v)
			if merged {
				bars = append(bars, graph.Bar{Birth: birth, Death: e.dist, Dimension: 0})
			}
			adj[e.u] = append(adj[e.u], e.v)
			adj[e.v] = append(adj[e.v], e.u)
			continue
		}

		// Same component: this edge closes a cycle (H1 feature).
		path := bfsPath(adj, e.u, e.v)
		if len(path) < 3 {
			adj[e.u] = append(adj[e.u], e.v)
			adj[e.v] = append(adj[e.v], e.u)
			continue
		}
		death := minDiagonalDistance(nodes, path, e.dist)
		birth := e.dist // approximation: the closing edge's own distance is the birth proxy absent full matrix reduction
		bars = append(bars, graph.Bar{Birth: birth, Death: death, Dimension: 1, Representative: path})
		cycles = append(cycles, cycleRep{bar: graph.Bar{Birth: birth, Death: death, Dimension: 1, Representative: path}, nodes: path})

		adj[e.u] = append(adj[e.u], e.v)
		adj[e.v] = append(adj[e.v], e.u)
	}

	// Remaining distinct roots are essential H0 features (spec.md §4.6).
	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		root := d.find(i)
		if !seen[root] {
			seen[root] = true
			bars = append(bars, graph.Bar{Birth: d.birth[root], Death: math.Inf(1), Dimension: 0})
		}
	}

	return bars, cycles
}

// bfsPath finds a path between u and v in adj, skipping the direct
// edge between them if present, so the cycle's representative is the
// longer way around (spec.md §4.6: "Representative cycle is recovered
// by BFS on the current adjacency (skipping the direct edge)").
func bfsPath(adj [][]int, u, v int) []int {
	parent := make(map[int]int)
	visited := make(map[int]bool)
	queue := []int{u}
	visited[u] = true

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == v {
			break
		}
		for _, next := range adj[cur] {
			if cur == u && next == v {
				continue // skip the direct edge
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = cur
			queue = append(queue, next)
		}
	}

	if !visited[v] {
		return nil
	}
	var path []int
	for at := v; ; {
		path = append(path, at)
		if at == u {
			break
		}
		at = parent[at]
	}
	reverse(path)
	return path
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// minDiagonalDistance approximates the cycle's death epsilon as the
// minimum Euclidean distance between two non-adjacent vertices of the
// cycle (its shortest "diagonal") — a triangle has no non-adjacent
// pair, so its closing edge is itself the only candidate (spec.md
// §4.6: "a documented approximation").
func minDiagonalDistance(nodes []graph.Node, path []int, closingEdgeDist float64) float64 {
	k := len(path)
	if k < 4 {
		return closingEdgeDist
	}

	best := math.Inf(1)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			adjacent := j == i+1 || (i == 0 && j == k-1)
			if adjacent {
				continue
			}
			a, b := nodes[path[i]], nodes[path[j]]
			d := math.Hypot(a.X-b.X, a.Y-b.Y)
			if d < best {
				best = d
			}
		}
	}
	if math.IsInf(best, 1) {
		return closingEdgeDist
	}
	return best
}
