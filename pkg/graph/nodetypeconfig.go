package graph

import (
	"fmt"
	"hash/fnv"
)

// canonicalNodeTypes is the known-type portion of the SSOT table
// (spec.md §4.9): fixed label/color/icon/shape/order per source. Counts
// and Active are filled in from actual data on every BuildNodeTypeConfig
// call, never hand-maintained.
var canonicalNodeTypes = []NodeTypeConfig{
	{Source: SourceMemory, Label: "Memory", Color: "#4F8EF7", SVGIcon: "memory", Shape2D: "circle", Shape3D: "sphere", Order: 0},
	{Source: SourceNeuralPattern, Label: "Neural Pattern", Color: "#A855F7", SVGIcon: "pattern", Shape2D: "diamond", Shape3D: "octahedron", Order: 1},
	{Source: SourceQPattern, Label: "Q-Pattern", Color: "#F97316", SVGIcon: "q-table", Shape2D: "square", Shape3D: "box", Order: 2},
	{Source: SourceTrajectorySucc, Label: "Trajectory (success)", Color: "#22C55E", SVGIcon: "trajectory", Shape2D: "triangle", Shape3D: "cone", Order: 3},
	{Source: SourceTrajectoryFailed, Label: "Trajectory (failed)", Color: "#EF4444", SVGIcon: "trajectory", Shape2D: "triangle", Shape3D: "cone", Order: 4},
	{Source: SourceFile, Label: "File", Color: "#14B8A6", SVGIcon: "file", Shape2D: "square", Shape3D: "box", Order: 5},
	{Source: SourceFileType, Label: "File Type", Color: "#0EA5E9", SVGIcon: "file-type", Shape2D: "hexagon", Shape3D: "cylinder", Order: 6},
	{Source: SourceAgent, Label: "Agent", Color: "#EAB308", SVGIcon: "agent", Shape2D: "star", Shape3D: "icosahedron", Order: 7},
	{Source: SourceState, Label: "State", Color: "#64748B", SVGIcon: "state", Shape2D: "circle", Shape3D: "sphere", Order: 8},
	{Source: SourceAction, Label: "Action", Color: "#94A3B8", SVGIcon: "action", Shape2D: "circle", Shape3D: "sphere", Order: 9},
}

// roundRobinShapes2D backs synthesized unknown-type entries.
var roundRobinShapes2D = []string{"circle", "square", "triangle", "diamond", "hexagon", "star"}

// BuildNodeTypeConfig rebuilds the SSOT node-type table from actual
// node data (spec.md §3.2: "rebuilt from actual data on every load").
//
// Known sources get their canonical visual attributes; any source
// appearing in nodes that isn't in the canonical table is
// auto-synthesized with an HSL-hashed color and a round-robin shape,
// so the renderer never encounters an unconfigured type.
func BuildNodeTypeConfig(nodes []Node) map[Source]NodeTypeConfig {
	counts := make(map[Source]int, len(canonicalNodeTypes))
	for _, n := range nodes {
		counts[n.Source]++
	}

	cfg := make(map[Source]NodeTypeConfig, len(canonicalNodeTypes))
	for _, entry := range canonicalNodeTypes {
		e := entry
		e.Count = counts[e.Source]
		e.Active = e.Count > 0
		cfg[e.Source] = e
		delete(counts, e.Source)
	}

	// Remaining keys are unknown sources actually present in the data.
	order := len(canonicalNodeTypes)
	unknown := make([]Source, 0, len(counts))
	for s := range counts {
		unknown = append(unknown, s)
	}
	sortSources(unknown)
	for i, s := range unknown {
		cfg[s] = NodeTypeConfig{
			Source:  s,
			Label:   string(s),
			Color:   hashedHSLColor(string(s)),
			SVGIcon: "unknown",
			Shape2D: roundRobinShapes2D[i%len(roundRobinShapes2D)],
			Shape3D: "sphere",
			Order:   order + i,
			Count:   counts[s],
			Active:  counts[s] > 0,
		}
	}
	return cfg
}

// sortSources performs a small deterministic insertion sort so
// synthesized config order is stable across identical inputs (spec.md
// §8 property 6: byte-identical re-runs).
func sortSources(s []Source) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// hashedHSLColor deterministically hashes a label into an HSL string,
// used only for unknown node-type fallback colors.
func hashedHSLColor(label string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	hue := h.Sum32() % 360
	return fmt.Sprintf("hsl(%d, 65%%, 55%%)", hue)
}
