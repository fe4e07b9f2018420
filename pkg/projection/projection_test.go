package projection

import (
	"math"
	"testing"

	"github.com/kestrelai/graphlens/pkg/config"
	"github.com/kestrelai/graphlens/pkg/graph"
)

func TestNNeighborsForBounds(t *testing.T) {
	cases := []struct{ n, want int }{
		{1, 2}, {4, 2}, {10, 5}, {40, 15}, {1000, 15},
	}
	for _, c := range cases {
		if got := nNeighborsFor(c.n); got != c.want && c.n > 1 {
			t.Errorf("nNeighborsFor(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestScaleIntoFillsCanvas(t *testing.T) {
	positions := [][2]float64{{0, 0}, {10, 5}, {-5, 20}}
	scaleInto(positions, 150, 3800)
	for _, p := range positions {
		if p[0] < 150 || p[0] > 150+3800 || p[1] < 150 || p[1] > 150+3800 {
			t.Errorf("position %v out of canvas bounds", p)
		}
	}
}

func TestProjectPlacesFallbackNodesWithoutEmbeddings(t *testing.T) {
	nodes := []graph.Node{
		{Source: graph.SourceFile},
		{Source: graph.SourceAgent},
	}
	cfg := config.ProjectionConfig{MinEmbeddedNodes: 5, NComponents: 2, MinDist: 0.1, CanvasSize: 3800, CanvasOrigin: 150}
	Project(nodes, make([][]float32, len(nodes)), cfg)
	for i, n := range nodes {
		if n.X == 0 && n.Y == 0 {
			t.Errorf("node %d expected non-origin fallback position", i)
		}
	}
}

func TestPoincareDistanceSymmetricAndZeroAtSamePoint(t *testing.T) {
	d := PoincareDistance(0.1, 0.2, 0.3, -0.1)
	d2 := PoincareDistance(0.3, -0.1, 0.1, 0.2)
	if math.Abs(d-d2) > 1e-9 {
		t.Errorf("expected symmetric distance, got %v vs %v", d, d2)
	}
	if PoincareDistance(0.2, 0.2, 0.2, 0.2) != 0 {
		t.Error("expected zero distance for identical points")
	}
}

func TestMobiusAddIdentityAtOrigin(t *testing.T) {
	x, y := MobiusAdd(0, 0, 0.3, 0.4)
	if math.Abs(x-0.3) > 1e-9 || math.Abs(y-0.4) > 1e-9 {
		t.Errorf("Möbius addition with origin should be identity, got (%v, %v)", x, y)
	}
}

func TestDiskKleinRoundTrip(t *testing.T) {
	x, y := 0.3, 0.2
	kx, ky := DiskToKlein(x, y)
	dx, dy := KleinToDisk(kx, ky)
	if math.Abs(dx-x) > 1e-6 || math.Abs(dy-y) > 1e-6 {
		t.Errorf("round trip mismatch: got (%v,%v), want (%v,%v)", dx, dy, x, y)
	}
}

func TestReprojectPoincareKeepsPointsInDiskAndSetsZ(t *testing.T) {
	nodes := []graph.Node{
		{Source: graph.SourceFile, X: 10, Y: 0},
		{Source: graph.SourceAgent, X: 0, Y: 10},
	}
	ReprojectPoincare(nodes)
	for _, n := range nodes {
		r := math.Hypot(n.X, n.Y)
		if r >= 1 {
			t.Errorf("expected point inside unit disk, got radius %v", r)
		}
		if n.Z == nil {
			t.Error("expected Z to be set after Poincaré reprojection")
		}
	}
}
