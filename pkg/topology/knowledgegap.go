package topology

import (
	"fmt"
	"math"
	"sort"

	"github.com/kestrelai/graphlens/pkg/graph"
)

// deriveKnowledgeGaps turns H1 cycle representatives with at least
// three member nodes into labeled, located gaps, sorted by descending
// persistence (spec.md §4.6). Every such cycle becomes a gap; none is
// dropped for low persistence.
func deriveKnowledgeGaps(nodes []graph.Node, cycles []cycleRep) []graph.KnowledgeGap {
	var gaps []graph.KnowledgeGap

	for i, c := range cycles {
		if len(c.nodes) < 3 {
			continue
		}

		cx, cy := centroid(nodes, c.nodes)
		radius := maxDistanceFrom(nodes, c.nodes, cx, cy)
		topics := surroundingTopics(nodes, c.nodes)

		gaps = append(gaps, graph.KnowledgeGap{
			ID:                fmt.Sprintf("gap:%d", i),
			NodeIndices:       c.nodes,
			CenterX:           cx,
			CenterY:           cy,
			Radius:            radius,
			Persistence:       persistenceOf(c.bar),
			SurroundingTopics: topics,
			Label:             gapLabel(topics),
		})
	}

	sort.Slice(gaps, func(a, b int) bool { return gaps[a].Persistence > gaps[b].Persistence })
	return gaps
}

func persistenceOf(bar graph.Bar) float64 {
	if math.IsInf(bar.Death, 1) {
		return bar.Birth
	}
	return bar.Death - bar.Birth
}

func centroid(nodes []graph.Node, idx []int) (float64, float64) {
	var sx, sy float64
	for _, i := range idx {
		sx += nodes[i].X
		sy += nodes[i].Y
	}
	n := float64(len(idx))
	return sx / n, sy / n
}

func maxDistanceFrom(nodes []graph.Node, idx []int, cx, cy float64) float64 {
	var maxR float64
	for _, i := range idx {
		r := math.Hypot(nodes[i].X-cx, nodes[i].Y-cy)
		if r > maxR {
			maxR = r
		}
	}
	return maxR
}

// surroundingTopics collects the distinct namespaces/domains touched
// by the cycle's member nodes, used to describe what the gap sits
// between.
func surroundingTopics(nodes []graph.Node, idx []int) []string {
	seen := make(map[string]bool)
	var topics []string
	for _, i := range idx {
		n := nodes[i]
		candidate := n.Namespace
		if n.Memory != nil && n.Memory.Domain != "" {
			candidate = n.Memory.Domain
		}
		if candidate == "" || seen[candidate] {
			continue
		}
		seen[candidate] = true
		topics = append(topics, candidate)
	}
	sort.Strings(topics)
	return topics
}

func gapLabel(topics []string) string {
	switch len(topics) {
	case 0:
		return "Unlabeled gap"
	case 1:
		return fmt.Sprintf("Gap within %s", topics[0])
	default:
		return fmt.Sprintf("Gap between %s and %s", topics[0], topics[len(topics)-1])
	}
}
