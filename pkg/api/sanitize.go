// Package api is the Graph Construction Engine's JSON facade: wire
// DTOs for every response field, a recursive numeric sanitizer, and
// the single GET /graph HTTP handler (spec.md §4.9, §6.2).
//
// Grounded on the teacher's pkg/storage "export" idiom (ToNeo4jExport:
// a pure transform from internal types to a wire struct) and
// pkg/server's net/http-based mux (no router library is used there
// either, so this facade doesn't reach for one).
package api

import "math"

// Sanitize replaces NaN and +/-Inf with def (spec.md §4.9: "every
// numeric field crossing the API boundary is passed through
// sanitize(x, default=0)"). Finite values pass through unchanged.
func Sanitize(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// SanitizeAll applies Sanitize with def=0 to every element of vs,
// in place, matching the facade's default ("recursively to nested
// records and arrays" with a default of 0 unless a field says
// otherwise, e.g. essential Bar.Death).
func SanitizeAll(vs []float64) []float64 {
	for i, v := range vs {
		vs[i] = Sanitize(v, 0)
	}
	return vs
}
