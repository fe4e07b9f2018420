package edge

import (
	"testing"

	"github.com/kestrelai/graphlens/pkg/config"
	"github.com/kestrelai/graphlens/pkg/graph"
	"github.com/kestrelai/graphlens/pkg/nodebuilder"
	"github.com/kestrelai/graphlens/pkg/store"
)

func defaultSimilarityConfig() config.SimilarityConfig {
	return config.SimilarityConfig{
		Threshold:           0.55,
		SemanticFanoutCap:   15,
		StructuralFanoutCap: 25,
		OrphanRescueK:       3,
	}
}

func TestAddEdgeRejectsSelfLoop(t *testing.T) {
	s := newSynthesizer([]graph.Node{{}, {}}, defaultSimilarityConfig())
	if s.addEdge(0, 0, 0.5, graph.EdgeExplicit) {
		t.Fatal("expected self-loop to be rejected")
	}
}

func TestAddEdgeRejectsUnorderedDuplicate(t *testing.T) {
	s := newSynthesizer([]graph.Node{{}, {}}, defaultSimilarityConfig())
	if !s.addEdge(0, 1, 0.5, graph.EdgeExplicit) {
		t.Fatal("expected first edge to be added")
	}
	if s.addEdge(1, 0, 0.9, graph.EdgeExplicit) {
		t.Fatal("expected reversed duplicate pair to be rejected")
	}
	if len(s.edges) != 1 {
		t.Fatalf("expected exactly 1 edge, got %d", len(s.edges))
	}
}

func TestAddEdgeEnforcesStructuralFanoutCap(t *testing.T) {
	nodes := make([]graph.Node, 30)
	cfg := defaultSimilarityConfig()
	cfg.StructuralFanoutCap = 2
	s := newSynthesizer(nodes, cfg)
	for i := 1; i < 5; i++ {
		s.addEdge(0, i, 0.5, graph.EdgeExplicit)
	}
	if s.fanout[0] != 2 {
		t.Errorf("expected fan-out capped at 2, got %d", s.fanout[0])
	}
}

func TestAddEdgeClassifiesGroupCorrectly(t *testing.T) {
	s := newSynthesizer([]graph.Node{{}, {}}, defaultSimilarityConfig())
	s.addEdge(0, 1, 0.9, graph.EdgeSemantic)
	if s.edges[0].Group != graph.GroupSemantic {
		t.Errorf("expected semantic group, got %s", s.edges[0].Group)
	}
}

func TestSynthesizeStoredRelationsResolveEndpoints(t *testing.T) {
	nb := nodebuilder.Build(nodebuilder.Input{
		Memories: []store.MemoryRow{
			{ID: "a", Content: "alpha"},
			{ID: "b", Content: "beta"},
		},
	})

	in := Input{StoredEdges: []store.EdgeRow{{Source: "a", Target: "b", Weight: 0.8, Type: "explicit"}}}
	edges, counts := Synthesize(nb.Nodes, nb.Embeddings, nb.Index, in, defaultSimilarityConfig())
	if len(edges) != 1 {
		t.Fatalf("expected 1 resolved edge, got %d", len(edges))
	}
	if counts[0] != 1 || counts[1] != 1 {
		t.Errorf("expected connection counts of 1 each, got %v", counts)
	}
}

func TestSynthesizeSemanticEdgeBetweenIdenticalEmbeddings(t *testing.T) {
	vecA := make([]float32, 384)
	vecB := make([]float32, 384)
	for i := range vecA {
		vecA[i] = 1
		vecB[i] = 1
	}
	nb := nodebuilder.Result{
		Nodes: []graph.Node{
			{ID: "a", HasValidEmbedding: true},
			{ID: "b", HasValidEmbedding: true},
		},
		Embeddings: [][]float32{vecA, vecB},
		Index:      nil,
	}
	idx := &nodebuilder.Index{}
	edges, _ := Synthesize(nb.Nodes, nb.Embeddings, idx, Input{}, defaultSimilarityConfig())
	foundSemantic := false
	for _, e := range edges {
		if e.Type == graph.EdgeSemantic {
			foundSemantic = true
			if e.Weight < 0.99 {
				t.Errorf("expected near-identical vectors to score ~1.0, got %v", e.Weight)
			}
		}
	}
	if !foundSemantic {
		t.Fatal("expected a semantic edge between identical embeddings")
	}
}
