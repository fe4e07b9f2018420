package nodebuilder

import (
	"testing"

	"github.com/kestrelai/graphlens/pkg/graph"
	"github.com/kestrelai/graphlens/pkg/store"
)

func tsPtr(v int64) *int64 { return &v }

func TestBuildMemoriesInfersFoundationAndPreview(t *testing.T) {
	in := Input{
		Memories: []store.MemoryRow{
			{
				ID:         "m1",
				Content:    "a decision about the security posture of the deploy pipeline",
				MemoryType: "episodic",
				Timestamp:  tsPtr(1000),
				Metadata:   map[string]any{"domain": "security"},
			},
		},
	}
	result := Build(in)
	if len(result.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(result.Nodes))
	}
	n := result.Nodes[0]
	if n.Source != graph.SourceMemory {
		t.Errorf("expected memory source, got %s", n.Source)
	}
	if !n.Memory.IsFoundation {
		t.Error("expected security domain to infer foundation=true")
	}
	if idx, ok := result.Index.ByID("m1"); !ok || idx != 0 {
		t.Errorf("expected index lookup for m1 to resolve to 0, got %d,%v", idx, ok)
	}
}

func TestBuildQPatternsProducesStableIDs(t *testing.T) {
	in := Input{
		Patterns: []store.PatternRow{
			{State: "edit:foo.go", Action: "write", QValue: 0.5, Visits: 3},
		},
	}
	result := Build(in)
	if len(result.Nodes) < 3 {
		t.Fatalf("expected at least q-pattern + state + action nodes, got %d", len(result.Nodes))
	}
	idx, ok := result.Index.ByID("edit:foo.go::write")
	if !ok {
		t.Fatal("expected q-pattern node ID to be resolvable")
	}
	if result.Nodes[idx].QPattern.QValue != 0.5 {
		t.Errorf("expected QValue 0.5, got %v", result.Nodes[idx].QPattern.QValue)
	}
}

func TestBuildFilesDeduplicatesAndSortsPaths(t *testing.T) {
	in := Input{
		FileSequences: []store.FileSequenceRow{
			{FromFile: "b.go", ToFile: "a.go", Count: 2},
			{FromFile: "a.go", ToFile: "c.go", Count: 1},
		},
	}
	result := Build(in)
	var paths []string
	for _, n := range result.Nodes {
		if n.Source == graph.SourceFile {
			paths = append(paths, n.File.FilePath)
		}
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 distinct files, got %v", paths)
	}
	if paths[0] != "a.go" || paths[1] != "b.go" || paths[2] != "c.go" {
		t.Errorf("expected sorted paths, got %v", paths)
	}
	if _, ok := result.Index.ByKey("file:a.go"); !ok {
		t.Error("expected file:a.go synthetic key to resolve")
	}
}

func TestBuildAgentsHealthClampedAndIndexed(t *testing.T) {
	in := Input{
		Patterns: []store.PatternRow{
			{State: "edit:.go", Action: "queen", QValue: 1.0, Visits: 5},
			{State: "read:.go", Action: "queen", QValue: 0.2, Visits: 1},
		},
	}
	result := Build(in)
	idx, ok := result.Index.ByAgentName("queen")
	if !ok {
		t.Fatal("expected agent name lookup to resolve")
	}
	health := result.Nodes[idx].Agent.AgentHealth
	if health < 0 || health > 1 {
		t.Errorf("expected health clamped to [0,1], got %v", health)
	}
}

func TestBuildTrajectoriesClassifiesSuccessVsFailed(t *testing.T) {
	in := Input{
		Trajectories: []store.TrajectoryRow{
			{ID: "t1", State: "s", Action: "a", Outcome: "success", Reward: 1},
			{ID: "t2", State: "s", Action: "a", Outcome: "failure", Reward: -1},
		},
	}
	result := Build(in)
	var sawSuccess, sawFailed bool
	for _, n := range result.Nodes {
		switch n.Source {
		case graph.SourceTrajectorySucc:
			sawSuccess = true
		case graph.SourceTrajectoryFailed:
			sawFailed = true
		}
	}
	if !sawSuccess || !sawFailed {
		t.Errorf("expected both success and failed trajectory nodes, got success=%v failed=%v", sawSuccess, sawFailed)
	}
}

func TestBuildFileTypesFromStateKeys(t *testing.T) {
	in := Input{
		Patterns: []store.PatternRow{
			{State: "edit:.go", Action: "a1", QValue: 0.1, Visits: 1},
			{State: "edit:.go", Action: "a2", QValue: 0.1, Visits: 1},
			{State: "read:.md", Action: "a3", QValue: 0.1, Visits: 1},
		},
	}
	result := Build(in)
	var exts []string
	for _, n := range result.Nodes {
		if n.Source == graph.SourceFileType {
			exts = append(exts, n.Preview)
		}
	}
	if len(exts) != 2 {
		t.Fatalf("expected 2 distinct file-type nodes, got %v", exts)
	}
}

func TestEmbeddingPaddingToMaxDim(t *testing.T) {
	short := &store.Embedding{Vector: []float32{1, 2, 3}, Dim: 3}
	in := Input{
		Memories: []store.MemoryRow{{ID: "m1", Content: "x", Embedding: short}},
	}
	result := Build(in)
	if len(result.Embeddings[0]) != maxEmbeddingDim {
		t.Fatalf("expected padded embedding of length %d, got %d", maxEmbeddingDim, len(result.Embeddings[0]))
	}
	if result.Nodes[0].HasValidEmbedding {
		t.Error("3-dim embedding must not report HasValidEmbedding")
	}
	if !result.Nodes[0].HasEmbedding {
		t.Error("expected HasEmbedding true for non-nil embedding")
	}
}
