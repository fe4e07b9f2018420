package projection

import (
	"math"

	"github.com/kestrelai/graphlens/pkg/graph"
)

// kindDepth is each source kind's canonical hierarchy depth in
// [0.1, 0.9] (spec.md §4.3 step 3: "agent -> state -> action ->
// trajectory -> neural -> Q -> memory -> file").
var kindDepth = map[graph.Source]float64{
	graph.SourceAgent:            0.1,
	graph.SourceState:            0.2,
	graph.SourceAction:           0.3,
	graph.SourceTrajectorySucc:   0.4,
	graph.SourceTrajectoryFailed: 0.4,
	graph.SourceNeuralPattern:    0.5,
	graph.SourceQPattern:         0.6,
	graph.SourceMemory:           0.7,
	graph.SourceFile:             0.9,
	graph.SourceFileType:         0.9,
}

// ReprojectPoincare remaps already-placed 2D points into the unit disk
// with a hierarchy-aware radial blend, preserving angle (spec.md §4.3
// step 3). It mutates X, Y in place and sets Z to the blended radius
// so 3D renderers can treat depth as a dedicated axis.
func ReprojectPoincare(nodes []graph.Node) {
	if len(nodes) == 0 {
		return
	}

	maxR := 0.0
	cx, cy := centroid(nodes)
	for _, n := range nodes {
		r := math.Hypot(n.X-cx, n.Y-cy)
		if r > maxR {
			maxR = r
		}
	}
	if maxR == 0 {
		maxR = 1
	}

	for i := range nodes {
		n := &nodes[i]
		dx, dy := n.X-cx, n.Y-cy
		angle := math.Atan2(dy, dx)
		normalizedR := math.Hypot(dx, dy) / maxR

		depth, ok := kindDepth[n.Source]
		if !ok {
			depth = 0.5
		}
		blended := 0.5*normalizedR + 0.5*(depth*0.95)
		if blended >= 1 {
			blended = 0.999
		}

		n.X = blended * math.Cos(angle)
		n.Y = blended * math.Sin(angle)
		z := blended
		n.Z = &z
	}
}

func centroid(nodes []graph.Node) (float64, float64) {
	var sx, sy float64
	for _, n := range nodes {
		sx += n.X
		sy += n.Y
	}
	count := float64(len(nodes))
	return sx / count, sy / count
}

// MobiusAdd performs Möbius addition of two points in the Poincaré
// disk model (spec.md §4.3: "Provides Möbius addition, ... for
// interactive pan/zoom").
func MobiusAdd(ax, ay, bx, by float64) (float64, float64) {
	ab := ax*bx + ay*by
	a2 := ax*ax + ay*ay
	b2 := bx*bx + by*by
	denom := 1 + 2*ab + a2*b2
	if denom == 0 {
		denom = 1e-12
	}
	numX := (1+2*ab+b2)*ax + (1-a2)*bx
	numY := (1+2*ab+b2)*ay + (1-a2)*by
	return numX / denom, numY / denom
}

// PoincareDistance computes the hyperbolic distance between two points
// in the unit disk.
func PoincareDistance(ax, ay, bx, by float64) float64 {
	negBx, negBy := -bx, -by
	sx, sy := MobiusAdd(negBx, negBy, ax, ay)
	norm := math.Hypot(sx, sy)
	if norm >= 1 {
		norm = 1 - 1e-12
	}
	return 2 * math.Atanh(norm)
}

// ExpMap maps a tangent vector at the disk's origin-relative point p
// onto the disk (the Riemannian exponential map).
func ExpMap(px, py, vx, vy float64) (float64, float64) {
	vNorm := math.Hypot(vx, vy)
	if vNorm == 0 {
		return px, py
	}
	lambda := 2 / (1 - (px*px + py*py))
	coef := math.Tanh(lambda * vNorm / 2) / vNorm
	return MobiusAdd(px, py, coef*vx, coef*vy)
}

// LogMap is the inverse of ExpMap: it recovers the tangent vector at p
// that exponentiates to q.
func LogMap(px, py, qx, qy float64) (float64, float64) {
	negPx, negPy := -px, -py
	dx, dy := MobiusAdd(negPx, negPy, qx, qy)
	dNorm := math.Hypot(dx, dy)
	if dNorm == 0 {
		return 0, 0
	}
	lambda := 2 / (1 - (px*px + py*py))
	coef := (2 / lambda) * math.Atanh(dNorm) / dNorm
	return coef * dx, coef * dy
}

// DiskToKlein converts a Poincaré-disk point to the Klein (Beltrami)
// model, used by some renderers for straight-line geodesics.
func DiskToKlein(x, y float64) (float64, float64) {
	denom := 1 + x*x + y*y
	return 2 * x / denom, 2 * y / denom
}

// KleinToDisk is the inverse of DiskToKlein.
func KleinToDisk(x, y float64) (float64, float64) {
	denom := 1 + math.Sqrt(1-x*x-y*y)
	if denom == 0 {
		denom = 1e-12
	}
	return x / denom, y / denom
}

// DiskToHalfPlane converts a Poincaré-disk point to the upper
// half-plane model via the standard Cayley-transform inverse.
func DiskToHalfPlane(x, y float64) (float64, float64) {
	denom := x*x + (y-1)*(y-1)
	if denom == 0 {
		denom = 1e-12
	}
	hx := 2 * x / denom
	hy := (1 - x*x - y*y) / denom
	return hx, hy
}
