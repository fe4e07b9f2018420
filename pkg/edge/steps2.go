package edge

import (
	"sort"
	"strings"

	"github.com/kestrelai/graphlens/pkg/config"
	"github.com/kestrelai/graphlens/pkg/graph"
	"github.com/kestrelai/graphlens/pkg/nodebuilder"
)

// memoryTypeToStatePrefix is the step-7 fallback dictionary used when
// token overlap between a memory/neural-pattern and the Q-table is
// empty (spec.md §4.4 step 7).
var memoryTypeToStatePrefix = map[string]string{
	"edit":           "edit",
	"command":        "cmd",
	"search_pattern": "search",
	"agent_spawn":    "agent",
}

// stepContentMatchAndTypeMapping is pipeline step 7 (spec.md §4.4 step 7).
func stepContentMatchAndTypeMapping(s *synthesizer, nodes []graph.Node) {
	var qIdx []int
	qTokens := make(map[int]map[string]bool)
	for i, n := range nodes {
		if n.QPattern == nil {
			continue
		}
		qIdx = append(qIdx, i)
		qTokens[i] = tokenize(n.QPattern.State+" "+n.QPattern.Action, 3)
	}

	for i, n := range nodes {
		var content string
		switch {
		case n.Memory != nil:
			content = n.Preview
		case n.NeuralPattern != nil:
			content = n.Preview
		default:
			continue
		}
		tokens := tokenize(content, 3)
		if len(tokens) == 0 {
			continue
		}

		type scored struct {
			idx   int
			score int
		}
		var scores []scored
		for _, qi := range qIdx {
			score := overlapCount(tokens, qTokens[qi])
			if score > 0 {
				scores = append(scores, scored{qi, score})
			}
		}

		if len(scores) > 0 {
			sort.Slice(scores, func(a, b int) bool { return scores[a].score > scores[b].score })
			top := scores
			if len(top) > 3 {
				top = top[:3]
			}
			for _, sc := range top {
				weight := 0.3 + float64(sc.score)*0.1
				if weight > 0.8 {
					weight = 0.8
				}
				s.addEdge(i, sc.idx, weight, graph.EdgeContentMatch)
			}
			continue
		}

		// No overlap: fall back to the memory_type -> state-prefix dictionary.
		wantPrefix, ok := memoryTypeToStatePrefix[n.KeyPrefix]
		if !ok {
			continue
		}
		for _, qi := range qIdx {
			if nodes[qi].QPattern.State == wantPrefix || strings.HasPrefix(nodes[qi].QPattern.State, wantPrefix+":") {
				s.addEdge(i, qi, 0.35, graph.EdgeTypeMapping)
			}
		}
	}
}

// stepMemoryTrajectoryBridge is pipeline step 8 (spec.md §4.4 step 8).
func stepMemoryTrajectoryBridge(s *synthesizer, nodes []graph.Node) {
	for mi, m := range nodes {
		if m.Memory == nil {
			continue
		}
		contentLower := strings.ToLower(m.Preview)
		memTokens := tokenize(m.Preview, 4)

		for ti, t := range nodes {
			if t.Trajectory == nil {
				continue
			}
			if t.Trajectory.Agent != "" && strings.Contains(contentLower, strings.ToLower(t.Trajectory.Agent)) {
				s.addEdge(mi, ti, 0.55, graph.EdgeMemoryAgent)
				continue
			}
			ctxTokens := tokenize(t.Trajectory.Context, 4)
			if overlapCount(memTokens, ctxTokens) >= 2 {
				s.addEdge(mi, ti, 0.4, graph.EdgeMemoryContext)
			}
		}
	}
}

// stepQPatternAnchors is pipeline step 9 (spec.md §4.4 step 9).
func stepQPatternAnchors(s *synthesizer, nodes []graph.Node, idx *nodebuilder.Index) {
	for i, n := range nodes {
		if n.QPattern == nil {
			continue
		}
		if stateIdx, ok := idx.ByKey("state:" + n.QPattern.State); ok {
			s.addEdge(i, stateIdx, 0.8, graph.EdgeHasState)
		}
		if actionIdx, ok := idx.ByKey("action:" + n.QPattern.Action); ok {
			s.addEdge(i, actionIdx, 0.8, graph.EdgeHasAction)
		}
	}

	for i, n := range nodes {
		if n.StateAction == nil || n.Source != graph.SourceAction {
			continue
		}
		if agentIdx, ok := idx.ByAgentName(n.Preview); ok {
			s.addEdge(i, agentIdx, 0.9, graph.EdgeIsAgent)
		}
	}

	for ti, t := range nodes {
		if t.Trajectory == nil {
			continue
		}
		if agentIdx, ok := idx.ByAgentName(t.Trajectory.Agent); ok {
			s.addEdge(ti, agentIdx, 0.85, graph.EdgeTrajectoryAgent)
		}
	}
	for ti, t := range nodes {
		if t.Trajectory == nil {
			continue
		}
		for ni, np := range nodes {
			if np.NeuralPattern == nil || np.NeuralPattern.TrajectoryID == "" {
				continue
			}
			if np.NeuralPattern.TrajectoryID == t.ID {
				s.addEdge(ti, ni, 0.9, graph.EdgeTrajectoryNeural)
			}
		}
	}
}

// stepAgentHierarchy is pipeline step 10 (spec.md §4.4 step 10).
func stepAgentHierarchy(s *synthesizer, nodes []graph.Node, idx *nodebuilder.Index) {
	var queenIdx = -1
	var agentIdxs []int
	for i, n := range nodes {
		if n.Agent == nil {
			continue
		}
		agentIdxs = append(agentIdxs, i)
		lowerID := strings.ToLower(n.Agent.AgentID)
		lowerType := strings.ToLower(n.Agent.AgentType)
		if strings.Contains(lowerID, "queen") || strings.Contains(lowerID, "coordinator") ||
			strings.Contains(lowerType, "queen") || strings.Contains(lowerType, "coordinator") {
			if queenIdx == -1 {
				queenIdx = i
			}
		}
	}
	if queenIdx != -1 {
		for _, i := range agentIdxs {
			if i == queenIdx {
				continue
			}
			s.addEdge(queenIdx, i, 0.9, graph.EdgeAgentHierarchy)
		}
	}

	for _, ai := range agentIdxs {
		agentType := strings.ToLower(nodes[ai].Agent.AgentType)
		for ti, t := range nodes {
			if t.Trajectory == nil {
				continue
			}
			if strings.ToLower(t.Trajectory.Agent) == agentType {
				s.addEdge(ai, ti, 0.75, graph.EdgeAgentInstance)
			}
		}
	}
}

// stepSemanticEdges is pipeline step 11 (spec.md §4.4 step 11).
func stepSemanticEdges(s *synthesizer, nodes []graph.Node, embeddings [][]float32, cfg config.SimilarityConfig) {
	for _, e := range s.edges {
		if e.Type == graph.EdgeSemantic {
			log.Debug("store already provided semantic edges, skipping step 11")
			return
		}
	}

	var embeddedIdx []int
	for i, n := range nodes {
		if n.HasValidEmbedding {
			embeddedIdx = append(embeddedIdx, i)
		}
	}

	for a := 0; a < len(embeddedIdx); a++ {
		for b := a + 1; b < len(embeddedIdx); b++ {
			i, j := embeddedIdx[a], embeddedIdx[b]
			sim := cosine(embeddings[i], embeddings[j])
			if sim < cfg.Threshold {
				continue
			}
			s.addEdge(i, j, sim, graph.EdgeSemantic)
		}
	}
}

// stepKNNRescue is pipeline step 12 (spec.md §4.4 step 12).
func stepKNNRescue(s *synthesizer, nodes []graph.Node, embeddings [][]float32, cfg config.SimilarityConfig) {
	connected := make(map[int]bool)
	for _, e := range s.edges {
		connected[e.Source] = true
		connected[e.Target] = true
	}

	var embeddedIdx []int
	for i, n := range nodes {
		if n.HasValidEmbedding {
			embeddedIdx = append(embeddedIdx, i)
		}
	}

	for _, i := range embeddedIdx {
		if connected[i] {
			continue
		}
		type scored struct {
			idx int
			sim float64
		}
		var scores []scored
		for _, j := range embeddedIdx {
			if i == j {
				continue
			}
			scores = append(scores, scored{j, cosine(embeddings[i], embeddings[j])})
		}
		sort.Slice(scores, func(a, b int) bool { return scores[a].sim > scores[b].sim })
		k := cfg.OrphanRescueK
		if k > len(scores) {
			k = len(scores)
		}
		for n := 0; n < k; n++ {
			s.addEdge(i, scores[n].idx, scores[n].sim, graph.EdgeKNNFallback)
		}
	}
}
