package edge

import (
	"sort"
	"strings"

	"github.com/kestrelai/graphlens/pkg/graph"
	"github.com/kestrelai/graphlens/pkg/nodebuilder"
	"github.com/kestrelai/graphlens/pkg/store"
)

// stepStoredRelations is pipeline step 1: the highest-precedence
// edges come straight from the store's own edges table (spec.md §4.4
// step 1).
func stepStoredRelations(s *synthesizer, idx *nodebuilder.Index, rows []store.EdgeRow) {
	for _, r := range rows {
		si, ok1 := idx.ByID(r.Source)
		ti, ok2 := idx.ByID(r.Target)
		if !ok1 || !ok2 {
			log.Debug("stored edge: unresolvable endpoint, dropping", "source", r.Source, "target", r.Target)
			continue
		}
		s.addEdge(si, ti, r.Weight, graph.EdgeType(r.Type))
	}
}

// stepQPatternGrouping is pipeline step 2: prefix-chain linking of
// Q-patterns sharing a state prefix, plus full connection of rare
// action groups (count <= 3) (spec.md §4.4 step 2).
func stepQPatternGrouping(s *synthesizer, nodes []graph.Node) {
	byPrefix := make(map[string][]int)
	byAction := make(map[string][]int)
	for i, n := range nodes {
		if n.QPattern == nil {
			continue
		}
		byPrefix[n.KeyPrefix] = append(byPrefix[n.KeyPrefix], i)
		byAction[n.QPattern.Action] = append(byAction[n.QPattern.Action], i)
	}

	for _, prefix := range sortedStringKeys(byPrefix) {
		group := byPrefix[prefix]
		sort.Ints(group)
		for i := 1; i < len(group); i++ {
			s.addEdge(group[i-1], group[i], 0.6, graph.EdgeSameStatePrefix)
		}
	}

	for _, action := range sortedStringKeys(byAction) {
		group := byAction[action]
		if len(group) > 3 || len(group) < 2 {
			continue
		}
		sort.Ints(group)
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				s.addEdge(group[i], group[j], 0.7, graph.EdgeSameAction)
			}
		}
	}
}

// stepRoutingEdges is pipeline step 3: connects each (file_type,
// agent) pair with positive Q-weight. The file type comes from the
// state's "<action>:<ext>" form; the agent is the action value itself
// (spec.md §4.4 step 3).
func stepRoutingEdges(s *synthesizer, nodes []graph.Node, idx *nodebuilder.Index) {
	for _, n := range nodes {
		if n.QPattern == nil || n.QPattern.QValue <= 0 {
			continue
		}
		_, ext, ok := splitActionTypeKey(n.QPattern.State)
		if !ok {
			continue
		}
		agentName := strings.TrimSpace(n.QPattern.Action)
		if agentName == "" {
			continue
		}
		fileTypeIdx, ok1 := idx.ByKey("file_type:" + ext)
		agentIdx, ok2 := idx.ByAgentName(agentName)
		if !ok1 || !ok2 {
			continue
		}
		weight := n.QPattern.QValue / 10
		if weight > 1 {
			weight = 1
		}
		s.addEdge(fileTypeIdx, agentIdx, weight, graph.EdgeRoutesTo)
	}
}

// stepFileCoedit is pipeline step 4 (spec.md §4.4 step 4).
func stepFileCoedit(s *synthesizer, idx *nodebuilder.Index, rows []store.FileSequenceRow) {
	for _, r := range rows {
		fromIdx, ok1 := idx.ByKey("file:" + r.FromFile)
		toIdx, ok2 := idx.ByKey("file:" + r.ToFile)
		if !ok1 || !ok2 {
			continue
		}
		weight := float64(r.Count) / 5
		if weight > 1 {
			weight = 1
		}
		s.addEdge(fromIdx, toIdx, weight, graph.EdgeFileCoedit)
	}
}

// stepTrajectoryStructural is pipeline step 5 (spec.md §4.4 step 5).
func stepTrajectoryStructural(s *synthesizer, nodes []graph.Node) {
	var trajIdx []int
	for i, n := range nodes {
		if n.Trajectory != nil {
			trajIdx = append(trajIdx, i)
		}
	}
	sort.Slice(trajIdx, func(a, b int) bool {
		return nodes[trajIdx[a]].Trajectory.StartTime < nodes[trajIdx[b]].Trajectory.StartTime
	})
	for i := 1; i < len(trajIdx); i++ {
		s.addEdge(trajIdx[i-1], trajIdx[i], 0.7, graph.EdgeTrajectorySeq)
	}

	byAgent := make(map[string][]int)
	for _, i := range trajIdx {
		byAgent[nodes[i].Trajectory.Agent] = append(byAgent[nodes[i].Trajectory.Agent], i)
	}
	for _, agent := range sortedStringKeys(byAgent) {
		group := byAgent[agent]
		for i := 1; i < len(group); i++ {
			s.addEdge(group[i-1], group[i], 0.6, graph.EdgeSameAgent)
		}
	}

	var successes, failures []int
	for _, i := range trajIdx {
		if nodes[i].Trajectory.Success {
			successes = append(successes, i)
		} else {
			failures = append(failures, i)
		}
	}
	linkNextTwo(s, successes, 0.5, graph.EdgeSuccessCluster)
	linkNextTwo(s, failures, 0.5, graph.EdgeFailureCluster)
}

func linkNextTwo(s *synthesizer, ordered []int, weight float64, t graph.EdgeType) {
	for i, from := range ordered {
		for k := 1; k <= 2 && i+k < len(ordered); k++ {
			s.addEdge(from, ordered[i+k], weight, t)
		}
	}
}

// statePrefixMemoryType maps trajectory state prefixes to memory types
// for temporal bridging fallback (spec.md §4.4 step 6).
var statePrefixMemoryType = map[string]string{
	"edit":  "edit",
	"cmd":   "command",
	"search": "search_pattern",
	"agent": "agent_spawn",
}

// stepTemporalBridging is pipeline step 6 (spec.md §4.4 step 6).
func stepTemporalBridging(s *synthesizer, nodes []graph.Node) {
	const windowMs = 60_000

	var memIdx []int
	for i, n := range nodes {
		if n.Memory != nil {
			memIdx = append(memIdx, i)
		}
	}

	for ti, n := range nodes {
		if n.Trajectory == nil {
			continue
		}
		start := n.Trajectory.StartTime - windowMs
		end := n.Trajectory.EndTime + windowMs
		matched := 0
		for _, mi := range memIdx {
			mts := nodes[mi].Timestamp
			if mts == nil || *mts < start || *mts > end {
				continue
			}
			s.addEdge(ti, mi, 0.9, graph.EdgeTrajectoryMemory)
			matched++
		}

		prefix := n.Trajectory.Context
		if i := strings.IndexAny(prefix, ":_"); i >= 0 {
			prefix = prefix[:i]
		}
		if prefix == "" {
			continue
		}
		memType, ok := statePrefixMemoryType[prefix]
		if !ok {
			continue
		}
		bridged := 0
		for _, mi := range memIdx {
			if bridged >= 3 {
				break
			}
			if nodes[mi].KeyPrefix != memType {
				continue
			}
			s.addEdge(ti, mi, 0.4, graph.EdgeStateTypeBridge)
			bridged++
		}
	}
}

func sortedStringKeys[V any](m map[string][]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func splitActionTypeKey(action string) (prefix, ext string, ok bool) {
	for i := len(action) - 1; i >= 0; i-- {
		if action[i] == ':' {
			return action[:i], action[i+1:], true
		}
	}
	return "", "", false
}

