package projection

import (
	"math"

	"github.com/kestrelai/graphlens/pkg/graph"
)

// ringCenter is a fallback cluster's fixed center, expressed as a
// fraction of the fixed 3800-unit layout box that starts at (150,150);
// it does not follow the configured CanvasSize (spec.md §4.3
// step 2: "fixed table in the code: file top-left, agent top-right,
// ...").
type ringCenter struct {
	fx, fy  float64 // fraction of canvas [0,1]
	maxRing float64 // max radius as a fraction of canvas
}

var clusterCenters = map[graph.Source]ringCenter{
	graph.SourceFile:             {fx: 0.12, fy: 0.12, maxRing: 0.18},
	graph.SourceAgent:            {fx: 0.88, fy: 0.12, maxRing: 0.18},
	graph.SourceFileType:         {fx: 0.5, fy: 0.08, maxRing: 0.12},
	graph.SourceQPattern:         {fx: 0.2, fy: 0.3, maxRing: 0.2},
	graph.SourceTrajectorySucc:   {fx: 0.8, fy: 0.3, maxRing: 0.2},
	graph.SourceTrajectoryFailed: {fx: 0.8, fy: 0.45, maxRing: 0.2},
	graph.SourceState:            {fx: 0.15, fy: 0.85, maxRing: 0.18},
	graph.SourceAction:           {fx: 0.85, fy: 0.85, maxRing: 0.18},
	graph.SourceMemory:           {fx: 0.5, fy: 0.5, maxRing: 0.3},
	graph.SourceNeuralPattern:    {fx: 0.35, fy: 0.65, maxRing: 0.2},
}

// placeFallbackRings positions every node not already placed by UMAP
// (i.e. not in `embedded`) on a spiral around its kind's center
// (spec.md §4.3 step 2). The node of rank r in a cluster of n sits at
// radius maxRadius*(r+1)/(n+1): radius grows linearly with rank and
// stays below the cluster's declared maximum. The ring's outer radius
// does not grow linearly with cluster size.
func placeFallbackRings(nodes []graph.Node, embedded []int) {
	isEmbedded := make(map[int]bool, len(embedded))
	for _, i := range embedded {
		isEmbedded[i] = true
	}

	byKind := make(map[graph.Source][]int)
	for i, n := range nodes {
		if isEmbedded[i] {
			continue
		}
		byKind[n.Source] = append(byKind[n.Source], i)
	}

	const canvasSize = 3800.0
	const origin = 150.0

	for kind, indices := range byKind {
		center, ok := clusterCenters[kind]
		if !ok {
			center = ringCenter{fx: 0.5, fy: 0.5, maxRing: 0.25}
		}
		cx := origin + center.fx*canvasSize
		cy := origin + center.fy*canvasSize
		maxRadius := center.maxRing * canvasSize

		count := len(indices)
		for rank, idx := range indices {
			// Radius grows linearly with rank, capped at maxRadius so a
			// large cluster still fits within its declared ring budget.
			radius := maxRadius * float64(rank+1) / float64(count+1)
			if radius > maxRadius {
				radius = maxRadius
			}
			theta := 2 * math.Pi * float64(rank) / float64(maxInt(count, 1))
			nodes[idx].X = cx + radius*math.Cos(theta)
			nodes[idx].Y = cy + radius*math.Sin(theta)
		}
	}
}
