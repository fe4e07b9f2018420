// Package projection computes 2D node positions: a UMAP-style
// neighbor-embedding pass over valid embeddings, deterministic polar
// fallback rings for everything else, and an optional Poincaré-disk
// hyperbolic reprojection.
//
// No corpus dependency implements true UMAP, so the embedding pass
// below is a from-scratch force-directed approximation built on
// standard-library math (see DESIGN.md).
package projection

import (
	"math"
	"sort"

	"github.com/kestrelai/graphlens/pkg/config"
	"github.com/kestrelai/graphlens/pkg/graph"
	"github.com/kestrelai/graphlens/pkg/logx"
)

var log = logx.Get("projection")

// Project assigns X, Y (and optionally Z via Poincaré depth) to every
// node in place, returning the same slice for chaining.
func Project(nodes []graph.Node, embeddings [][]float32, cfg config.ProjectionConfig) []graph.Node {
	embeddedIdx := embeddedIndices(nodes)

	if len(embeddedIdx) >= cfg.MinEmbeddedNodes && cfg.MinEmbeddedNodes > 0 {
		positions := umapLike(embeddings, embeddedIdx, cfg)
		scaleInto(positions, cfg.CanvasOrigin, cfg.CanvasSize)
		for i, idx := range embeddedIdx {
			nodes[idx].X = positions[i][0]
			nodes[idx].Y = positions[i][1]
		}
	} else {
		log.Debug("too few embedded nodes for UMAP, all nodes use fallback rings", "embedded", len(embeddedIdx))
	}

	placeFallbackRings(nodes, embeddedIdx)

	if cfg.EnablePoincare {
		ReprojectPoincare(nodes)
	}
	return nodes
}

func embeddedIndices(nodes []graph.Node) []int {
	var idx []int
	for i, n := range nodes {
		if n.HasValidEmbedding {
			idx = append(idx, i)
		}
	}
	return idx
}

// umapLike runs a small stochastic-neighbor-style force layout: build
// a k-NN graph in embedding space (nNeighbors per spec.md §4.3), then
// relax a 2D layout that pulls neighbors together and pushes
// non-neighbors apart, approximating UMAP's attract/repel dynamic
// without needing the real algorithm's spectral initialization.
func umapLike(embeddings [][]float32, idx []int, cfg config.ProjectionConfig) [][2]float64 {
	n := len(idx)
	nNeighbors := nNeighborsFor(n)

	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		neighbors[i] = nearestNeighbors(embeddings, idx, i, nNeighbors)
	}

	pos := initialCircle(n)
	const iterations = 200
	const lr = 0.02
	for it := 0; it < iterations; it++ {
		decay := 1.0 - float64(it)/float64(iterations)
		forces := make([][2]float64, n)

		// Attraction to k-NN neighbors.
		for i := 0; i < n; i++ {
			for _, j := range neighbors[i] {
				dx, dy := pos[j][0]-pos[i][0], pos[j][1]-pos[i][1]
				dist := math.Hypot(dx, dy) + 1e-9
				target := cfg.MinDist
				f := (dist - target) / dist
				forces[i][0] += f * dx * lr * decay
				forces[i][1] += f * dy * lr * decay
			}
		}

		// Mild global repulsion so disconnected clusters don't collapse.
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				dx, dy := pos[i][0]-pos[j][0], pos[i][1]-pos[j][1]
				dist2 := dx*dx + dy*dy + 1e-6
				if dist2 > 16 {
					continue
				}
				repel := (0.05 * lr * decay) / dist2
				forces[i][0] += repel * dx
				forces[i][1] += repel * dy
			}
		}

		for i := 0; i < n; i++ {
			pos[i][0] += forces[i][0]
			pos[i][1] += forces[i][1]
		}
	}
	return pos
}

// nNeighborsFor implements max(2, min(15, floor(N/2))) (spec.md §4.3).
func nNeighborsFor(n int) int {
	half := n / 2
	v := half
	if v > 15 {
		v = 15
	}
	if v < 2 {
		v = 2
	}
	if v > n-1 && n > 1 {
		v = n - 1
	}
	return v
}

func nearestNeighbors(embeddings [][]float32, idx []int, i, k int) []int {
	type cand struct {
		j    int
		dist float64
	}
	cands := make([]cand, 0, len(idx)-1)
	for j := range idx {
		if j == i {
			continue
		}
		cands = append(cands, cand{j: j, dist: euclidean(embeddings[idx[i]], embeddings[idx[j]])})
	}
	sort.Slice(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })
	if k > len(cands) {
		k = len(cands)
	}
	out := make([]int, k)
	for n := 0; n < k; n++ {
		out[n] = cands[n].j
	}
	return out
}

func euclidean(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func initialCircle(n int) [][2]float64 {
	pos := make([][2]float64, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(maxInt(n, 1))
		pos[i] = [2]float64{math.Cos(theta), math.Sin(theta)}
	}
	return pos
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// scaleInto rescales positions in place to fill a square canvas of
// side `size` starting at (origin, origin) (spec.md §4.3 step 1:
// "3800x3800 box starting at (150,150)").
func scaleInto(positions [][2]float64, origin, size float64) {
	if len(positions) == 0 {
		return
	}
	minX, minY := positions[0][0], positions[0][1]
	maxX, maxY := minX, minY
	for _, p := range positions {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}
	spanX, spanY := maxX-minX, maxY-minY
	if spanX == 0 {
		spanX = 1
	}
	if spanY == 0 {
		spanY = 1
	}
	for i, p := range positions {
		positions[i][0] = origin + (p[0]-minX)/spanX*size
		positions[i][1] = origin + (p[1]-minY)/spanY*size
	}
}
