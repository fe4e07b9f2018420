package topology

// dsu is an integer-indexed disjoint-set with path compression and
// union by rank, adapted from the string-keyed version in
// katalvlaran/lvlath's Kruskal MST implementation to the dense integer
// vertex IDs the Topology Engine works with.
type dsu struct {
	parent []int
	rank   []int
	birth  []float64 // the epsilon at which this root's component was born
}

func newDSU(n int) *dsu {
	d := &dsu{
		parent: make([]int, n),
		rank:   make([]int, n),
		birth:  make([]float64, n),
	}
	for i := range d.parent {
		d.parent[i] = i
	}
	return d
}

// find walks up to the root with path compression.
func (d *dsu) find(u int) int {
	for d.parent[u] != u {
		d.parent[u] = d.parent[d.parent[u]]
		u = d.parent[u]
	}
	return u
}

// union merges the components of u and v, applying the elder rule:
// the root whose birth epsilon is earlier survives as the merged
// root, regardless of rank-driven tree attachment (spec.md §4.6: "ties
// broken by the elder rule"). Returns the younger root's original
// birth time (the new bar's birth) and whether a merge actually
// happened.
func (d *dsu) union(u, v int) (youngerBirth float64, merged bool) {
	rootU, rootV := d.find(u), d.find(v)
	if rootU == rootV {
		return 0, false
	}

	elder, younger := rootU, rootV
	if d.birth[rootV] < d.birth[rootU] {
		elder, younger = rootV, rootU
	}
	youngerBirth = d.birth[younger]

	if d.rank[rootU] < d.rank[rootV] {
		d.parent[rootU] = rootV
	} else {
		d.parent[rootV] = rootU
		if d.rank[rootU] == d.rank[rootV] {
			d.rank[rootU]++
		}
	}
	// The surviving root keeps the elder's birth time regardless of
	// which side rank-based attachment made the structural root.
	survivor := d.find(elder)
	d.birth[survivor] = d.birth[elder]

	return youngerBirth, true
}
