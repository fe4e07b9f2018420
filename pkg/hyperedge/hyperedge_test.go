package hyperedge

import (
	"testing"

	"github.com/kestrelai/graphlens/pkg/graph"
)

func TestBuildEmitsMemoryTypeAndSourceClusters(t *testing.T) {
	nodes := make([]graph.Node, 0, 10)
	for i := 0; i < 5; i++ {
		nodes = append(nodes, graph.Node{Source: graph.SourceMemory, KeyPrefix: "episodic", Memory: &graph.MemoryFields{}})
	}
	for i := 0; i < 4; i++ {
		nodes = append(nodes, graph.Node{Source: graph.SourceFile})
	}
	nodes = append(nodes, graph.Node{Source: graph.SourceAgent})

	cfg := map[graph.Source]graph.NodeTypeConfig{
		graph.SourceMemory: {Color: "#4F8EF7"},
		graph.SourceFile:   {Color: "#14B8A6"},
	}
	hyperedges := Build(nodes, cfg)

	var sawMemory, sawFile bool
	for _, h := range hyperedges {
		if h.Type == "memory_type" && h.Label == "episodic" {
			sawMemory = true
			if h.MemberCount != 5 {
				t.Errorf("expected 5 members, got %d", h.MemberCount)
			}
		}
		if h.Type == "node_source" && h.Label == string(graph.SourceFile) {
			sawFile = true
			if h.MemberCount != 4 {
				t.Errorf("expected 4 members, got %d", h.MemberCount)
			}
		}
	}
	if !sawMemory || !sawFile {
		t.Errorf("expected both memory and file hyperedges, got %+v", hyperedges)
	}
}

func TestBuildSkipsUndersizedGroups(t *testing.T) {
	nodes := []graph.Node{
		{Source: graph.SourceAgent},
		{Source: graph.SourceAgent},
	}
	if hyperedges := Build(nodes, map[graph.Source]graph.NodeTypeConfig{}); len(hyperedges) != 0 {
		t.Errorf("expected no hyperedges below threshold, got %+v", hyperedges)
	}
}
