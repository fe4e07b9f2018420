package topology

import (
	"math"
	"testing"

	"github.com/kestrelai/graphlens/pkg/graph"
)

func square() []graph.Node {
	return []graph.Node{
		{X: 0, Y: 0},
		{X: 1, Y: 0},
		{X: 1, Y: 1},
		{X: 0, Y: 1},
	}
}

func TestComputeReturnsEmptyBelowTwoNodes(t *testing.T) {
	res := Compute([]graph.Node{{X: 0, Y: 0}}, 1.1)
	if len(res.Bars) != 0 {
		t.Fatalf("expected no bars for a single node, got %v", res.Bars)
	}
}

func TestComputeReturnsEmptyAboveNodeCeiling(t *testing.T) {
	nodes := make([]graph.Node, maxNodes+1)
	res := Compute(nodes, 1.1)
	if len(res.Bars) != 0 || len(res.KnowledgeGaps) != 0 {
		t.Fatalf("expected empty barcode above the node ceiling, got %v", res)
	}
}

func TestComputeProducesOneEssentialComponentForAConnectedCluster(t *testing.T) {
	res := Compute(square(), 10)

	essential := 0
	for _, b := range res.Bars {
		if b.Dimension == 0 && math.IsInf(b.Death, 1) {
			essential++
		}
	}
	if essential != 1 {
		t.Errorf("expected exactly 1 essential component for a fully connected square, got %d (%v)", essential, res.Bars)
	}
}

func TestComputeFindsACycleInASquare(t *testing.T) {
	res := Compute(square(), 10)

	var h1 int
	var death float64
	for _, b := range res.Bars {
		if b.Dimension == 1 {
			h1++
			death = b.Death
		}
	}
	if h1 == 0 {
		t.Fatalf("expected at least one H1 bar for a square's loop, got bars=%v", res.Bars)
	}
	if math.Abs(death-math.Sqrt2) > 1e-9 {
		t.Errorf("expected the unit square's H1 bar to die at sqrt(2), got %v", death)
	}
}

func TestComputeDerivesKnowledgeGapFromCycle(t *testing.T) {
	nodes := []graph.Node{
		{X: 0, Y: 0, Namespace: "alpha"},
		{X: 1, Y: 0, Namespace: "alpha"},
		{X: 1, Y: 1, Namespace: "beta"},
		{X: 0, Y: 1, Namespace: "beta"},
	}
	res := Compute(nodes, 10)
	if len(res.KnowledgeGaps) == 0 {
		t.Fatalf("expected a knowledge gap derived from the square's cycle, bars=%v", res.Bars)
	}
	gap := res.KnowledgeGaps[0]
	if len(gap.NodeIndices) < 3 {
		t.Errorf("expected a gap with >= 3 member nodes, got %v", gap.NodeIndices)
	}
	if gap.Label == "" {
		t.Error("expected a non-empty gap label")
	}
}

func TestComputeEmptyEpsilonLeavesAllPointsIsolated(t *testing.T) {
	res := Compute(square(), 0)

	essential := 0
	for _, b := range res.Bars {
		if b.Dimension == 0 && math.IsInf(b.Death, 1) {
			essential++
		}
	}
	if essential != len(square()) {
		t.Errorf("expected every node isolated at epsilon 0, got %d essential components", essential)
	}
}

func TestDSUElderRuleKeepsEarlierBirth(t *testing.T) {
	d := newDSU(3)
	d.birth[0] = 0.1
	d.birth[1] = 0.5
	d.birth[2] = 0.2

	if _, merged := d.union(0, 1); !merged {
		t.Fatal("expected first union to merge")
	}
	root := d.find(0)
	if d.birth[root] != 0.1 {
		t.Errorf("expected elder birth 0.1 to survive, got %v", d.birth[root])
	}

	if _, merged := d.union(root, 2); !merged {
		t.Fatal("expected second union to merge")
	}
	root = d.find(0)
	if d.birth[root] != 0.1 {
		t.Errorf("expected elder birth 0.1 to still survive after second merge, got %v", d.birth[root])
	}
}

func TestDSUUnionOfSameComponentIsNoop(t *testing.T) {
	d := newDSU(2)
	d.union(0, 1)
	if _, merged := d.union(0, 1); merged {
		t.Error("expected re-union of already-merged vertices to report no merge")
	}
}
