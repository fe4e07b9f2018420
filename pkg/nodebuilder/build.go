package nodebuilder

import (
	"sort"
	"strings"

	"github.com/kestrelai/graphlens/pkg/graph"
	"github.com/kestrelai/graphlens/pkg/logx"
	"github.com/kestrelai/graphlens/pkg/store"
)

var log = logx.Get("nodebuilder")

// Input bundles every row collection the Store Reader produces.
type Input struct {
	Memories       []store.MemoryRow
	NeuralPatterns []store.NeuralPatternRow
	Patterns       []store.PatternRow
	Trajectories   []store.TrajectoryRow
	FileSequences  []store.FileSequenceRow
	Agents         []store.AgentRow
}

// Build materializes every node kind in a fixed order (memory, neural
// pattern, Q-pattern, trajectory success/failed, file, file-type,
// agent, state, action) so that repeated builds over identical input
// are byte-for-byte reproducible (spec.md §8 property 6).
func Build(in Input) Result {
	b := newBuilder()

	buildMemories(b, in.Memories)
	buildNeuralPatterns(b, in.NeuralPatterns)
	buildQPatterns(b, in.Patterns)
	buildTrajectories(b, in.Trajectories)
	buildFiles(b, in.FileSequences)
	buildFileTypes(b, in.Patterns)
	buildAgents(b, in.Patterns, in.Agents)
	buildStatesAndActions(b, in.Patterns)

	return Result{Nodes: b.nodes, Embeddings: b.embeddings, Index: b.index}
}

func buildMemories(b *builder, rows []store.MemoryRow) {
	for _, m := range rows {
		domain, _ := m.Metadata["domain"].(string)
		sourceDoc, _ := m.Metadata["source"].(string)
		namespace, _ := m.Metadata["namespace"].(string)
		document, _ := m.Metadata["document"].(string)
		layer, _ := m.Metadata["layer"].(string)
		var recallCount int
		if rc, ok := m.Metadata["recallCount"].(float64); ok {
			recallCount = int(rc)
		}
		var rewardSum, effectiveness float64
		if rs, ok := m.Metadata["rewardSum"].(float64); ok {
			rewardSum = rs
		}
		if e, ok := m.Metadata["effectiveness"].(float64); ok {
			effectiveness = e
		}

		n := graph.Node{
			ID:          m.ID,
			Source:      graph.SourceMemory,
			Timestamp:   m.Timestamp,
			Preview:     preview(m.Content),
			Namespace:   namespace,
			KeyPrefix:   m.MemoryType,
			ContentType: detectContentType(m.Content),
			ValueLength: len(m.Content),
			WordCount:   wordCount(m.Content),
			NSDepth:     nsDepth(namespace),
			Memory: &graph.MemoryFields{
				IsFoundation:  store.InferFoundation(m.Metadata, sourceDoc, domain),
				Layer:         layer,
				Document:      document,
				RecallCount:   recallCount,
				RewardSum:     rewardSum,
				Effectiveness: effectiveness,
				SourceDoc:     sourceDoc,
				Domain:        domain,
			},
		}
		b.add(n, m.Embedding, "")
	}
}

func buildNeuralPatterns(b *builder, rows []store.NeuralPatternRow) {
	for _, p := range rows {
		trajectoryID, _ := p.Metadata["trajectoryId"].(string)
		n := graph.Node{
			ID:          p.ID,
			Source:      graph.SourceNeuralPattern,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
			Preview:     preview(p.Content),
			KeyPrefix:   p.Category,
			ContentType: detectContentType(p.Content),
			ValueLength: len(p.Content),
			WordCount:   wordCount(p.Content),
			NeuralPattern: &graph.NeuralPatternFields{
				Category:     p.Category,
				Confidence:   p.Confidence,
				UsageCount:   p.Usage,
				TrajectoryID: trajectoryID,
			},
		}
		b.add(n, p.Embedding, "")
	}
}

func buildQPatterns(b *builder, rows []store.PatternRow) {
	for _, p := range rows {
		id := p.State + "::" + p.Action
		n := graph.Node{
			ID:        id,
			Source:    graph.SourceQPattern,
			Timestamp: p.LastUpdate,
			Preview:   preview(p.State + " -> " + p.Action),
			KeyPrefix: splitStatePrefix(p.State),
			QPattern: &graph.QPatternFields{
				State:  p.State,
				Action: p.Action,
				QValue: p.QValue,
				Visits: p.Visits,
			},
		}
		b.add(n, nil, "")
	}
}

func buildTrajectories(b *builder, rows []store.TrajectoryRow) {
	for _, t := range rows {
		success := strings.EqualFold(t.Outcome, "success") || strings.EqualFold(t.Outcome, "succeeded")
		src := graph.SourceTrajectoryFailed
		if success {
			src = graph.SourceTrajectorySucc
		}
		var ts int64
		if t.Timestamp != nil {
			ts = *t.Timestamp
		}
		n := graph.Node{
			ID:        t.ID,
			Source:    src,
			Timestamp: t.Timestamp,
			Preview:   preview(t.State + " / " + t.Action),
			Trajectory: &graph.TrajectoryFields{
				Context:   t.State,
				Success:   success,
				StartTime: ts,
				EndTime:   ts,
				Reward:    t.Reward,
			},
		}
		b.add(n, nil, "")
	}
}

func buildFiles(b *builder, rows []store.FileSequenceRow) {
	seen := make(map[string]bool)
	var paths []string
	for _, r := range rows {
		for _, p := range [2]string{r.FromFile, r.ToFile} {
			if p != "" && !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	sort.Strings(paths)
	for _, path := range paths {
		name := path
		if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
			name = path[i+1:]
		}
		n := graph.Node{
			ID:      fileKey(path),
			Source:  graph.SourceFile,
			Preview: path,
			File: &graph.FileFields{
				FilePath: path,
				FileName: name,
				FileExt:  fileExt(path),
			},
		}
		b.add(n, nil, fileKey(path))
	}
}

// buildFileTypes synthesizes one node per distinct file extension
// appearing in Q-table state keys formatted "<action>:<ext>" (spec.md
// §4.2; e.g. state="edit:.js" yields file-type ".js").
func buildFileTypes(b *builder, patterns []store.PatternRow) {
	seen := make(map[string]bool)
	var exts []string
	for _, p := range patterns {
		if _, ext, ok := fileActionTypeKey(p.State); ok {
			if !seen[ext] {
				seen[ext] = true
				exts = append(exts, ext)
			}
		}
	}
	sort.Strings(exts)
	for _, ext := range exts {
		n := graph.Node{
			ID:      fileTypeKey(ext),
			Source:  graph.SourceFileType,
			Preview: ext,
		}
		b.add(n, nil, fileTypeKey(ext))
	}
}

// buildAgents creates one node per agent name carrying positive weight
// in any Q-table action (the action value IS the agent name, spec.md
// §4.2; e.g. action="coder") plus every row of the optional agents
// table, computing agentHealth as the weight distribution's mean/max
// ratio clamped to [0,1].
func buildAgents(b *builder, patterns []store.PatternRow, agentRows []store.AgentRow) {
	weights := make(map[string][]float64)
	order := []string{}
	for _, p := range patterns {
		name := agentNameFromAction(p.Action)
		if name == "" || p.QValue <= 0 {
			continue
		}
		if _, ok := weights[name]; !ok {
			order = append(order, name)
		}
		weights[name] = append(weights[name], p.QValue)
	}
	sort.Strings(order)

	rowsByName := make(map[string]store.AgentRow, len(agentRows))
	for _, a := range agentRows {
		rowsByName[a.Name] = a
	}

	for _, name := range order {
		health := meanMaxRatio(weights[name])
		agentType, _ := rowsByName[name].Data["agentType"].(string)
		status, _ := rowsByName[name].Data["agentStatus"].(string)
		role, _ := rowsByName[name].Data["topologyRole"].(string)

		n := graph.Node{
			ID:      agentKey(name),
			Source:  graph.SourceAgent,
			Preview: name,
			Agent: &graph.AgentFields{
				AgentID:      name,
				AgentType:    agentType,
				AgentStatus:  status,
				AgentHealth:  health,
				TopologyRole: role,
			},
		}
		idx := b.add(n, nil, agentKey(name))
		b.index.byAgent[name] = idx
	}

	// Any agents-table row not already covered by a Q-table weight still
	// gets a node, so explicit agent registrations are never dropped.
	for _, name := range sortedKeys(rowsByName) {
		if _, ok := b.index.byAgent[name]; ok {
			continue
		}
		a := rowsByName[name]
		agentType, _ := a.Data["agentType"].(string)
		status, _ := a.Data["agentStatus"].(string)
		role, _ := a.Data["topologyRole"].(string)
		n := graph.Node{
			ID:      agentKey(name),
			Source:  graph.SourceAgent,
			Preview: name,
			Agent: &graph.AgentFields{
				AgentID:      name,
				AgentType:    agentType,
				AgentStatus:  status,
				TopologyRole: role,
			},
		}
		idx := b.add(n, nil, agentKey(name))
		b.index.byAgent[name] = idx
	}
}

func sortedKeys(m map[string]store.AgentRow) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// agentNameFromAction returns the agent name carried directly by a
// Q-pattern's action value (spec.md §4.2), trimmed of surrounding
// whitespace.
func agentNameFromAction(action string) string {
	return strings.TrimSpace(action)
}

func meanMaxRatio(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum, max float64
	for _, v := range vals {
		sum += v
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return 0
	}
	ratio := (sum / float64(len(vals))) / max
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// buildStatesAndActions synthesizes one node per distinct state value
// and one per distinct action value across the Q-table, each carrying
// aggregate statistics (spec.md §4.2).
func buildStatesAndActions(b *builder, patterns []store.PatternRow) {
	type agg struct {
		count  int
		sumQ   float64
		visits int
	}
	states := make(map[string]*agg)
	actions := make(map[string]*agg)
	var stateOrder, actionOrder []string

	for _, p := range patterns {
		if _, ok := states[p.State]; !ok {
			states[p.State] = &agg{}
			stateOrder = append(stateOrder, p.State)
		}
		sAgg := states[p.State]
		sAgg.count++
		sAgg.sumQ += p.QValue
		sAgg.visits += p.Visits

		if _, ok := actions[p.Action]; !ok {
			actions[p.Action] = &agg{}
			actionOrder = append(actionOrder, p.Action)
		}
		aAgg := actions[p.Action]
		aAgg.count++
		aAgg.sumQ += p.QValue
		aAgg.visits += p.Visits
	}

	sort.Strings(stateOrder)
	for _, val := range stateOrder {
		a := states[val]
		avg := 0.0
		if a.count > 0 {
			avg = a.sumQ / float64(a.count)
		}
		n := graph.Node{
			ID:      stateKey(val),
			Source:  graph.SourceState,
			Preview: val,
			StateAction: &graph.StateActionFields{
				PatternCount: a.count,
				AvgQ:         avg,
				TotalVisits:  a.visits,
			},
		}
		b.add(n, nil, stateKey(val))
	}

	sort.Strings(actionOrder)
	for _, val := range actionOrder {
		a := actions[val]
		avg := 0.0
		if a.count > 0 {
			avg = a.sumQ / float64(a.count)
		}
		n := graph.Node{
			ID:      actionKey(val),
			Source:  graph.SourceAction,
			Preview: val,
			StateAction: &graph.StateActionFields{
				PatternCount: a.count,
				AvgQ:         avg,
				TotalVisits:  a.visits,
			},
		}
		b.add(n, nil, actionKey(val))
	}
}
