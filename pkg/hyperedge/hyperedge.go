// Package hyperedge groups nodes sharing a memory-kind or node-source
// into hyperedges, deriving a convex-hull-friendly member list for
// each group of four or more (spec.md §4.5).
package hyperedge

import (
	"fmt"
	"sort"

	"github.com/kestrelai/graphlens/pkg/graph"
)

// minMembers is the smallest group size that earns a hyperedge
// (spec.md §4.5: "with >= 4 members").
const minMembers = 4

// sourceClusterTypes are the node-source clusters eligible for
// hyperedges (spec.md §4.5).
var sourceClusterTypes = []graph.Source{
	graph.SourceFile,
	graph.SourceFileType,
	graph.SourceAgent,
	graph.SourceState,
	graph.SourceAction,
	graph.SourceQPattern,
	graph.SourceTrajectorySucc,
	graph.SourceTrajectoryFailed,
}

// Build emits one hyperedge per memory-type group and one per
// source-kind cluster meeting the minimum member threshold. Colors
// come from the SSOT node-type config so hyperedges visually match
// their member nodes' palette.
func Build(nodes []graph.Node, nodeTypeConfig map[graph.Source]graph.NodeTypeConfig) []graph.Hyperedge {
	var out []graph.Hyperedge

	byMemoryType := make(map[string][]int)
	for i, n := range nodes {
		if n.Memory == nil {
			continue
		}
		byMemoryType[n.KeyPrefix] = append(byMemoryType[n.KeyPrefix], i)
	}
	for _, memType := range sortedKeys(byMemoryType) {
		members := byMemoryType[memType]
		if len(members) < minMembers {
			continue
		}
		out = append(out, graph.Hyperedge{
			ID:          fmt.Sprintf("hyperedge:memory:%s", memType),
			Type:        "memory_type",
			Label:       memType,
			Members:     members,
			Color:       nodeTypeConfig[graph.SourceMemory].Color,
			MemberCount: len(members),
		})
	}

	bySource := make(map[graph.Source][]int)
	for i, n := range nodes {
		bySource[n.Source] = append(bySource[n.Source], i)
	}
	for _, src := range sourceClusterTypes {
		members := bySource[src]
		if len(members) < minMembers {
			continue
		}
		out = append(out, graph.Hyperedge{
			ID:          fmt.Sprintf("hyperedge:source:%s", src),
			Type:        "node_source",
			Label:       string(src),
			Members:     members,
			Color:       nodeTypeConfig[src].Color,
			MemberCount: len(members),
		})
	}

	return out
}

func sortedKeys(m map[string][]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
