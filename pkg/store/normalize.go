package store

import (
	"encoding/binary"
	"encoding/json"
	"math"
)

// canonicalEmbeddingDim is the dimensionality a valid embedding must have
// (spec.md §3.1, §6.3): maxDim = 384.
const canonicalEmbeddingDim = 384

// canonicalEmbeddingBytes is the byte length of a canonical blob:
// 4 bytes/float32 * 384 dims (spec.md §3.2).
const canonicalEmbeddingBytes = 4 * canonicalEmbeddingDim

// legacyEmbeddingBytes is a 64-dim variant that is read but flagged
// hasValidEmbedding=false (spec.md §6.3).
const legacyEmbeddingBytes = 4 * 64

// decodeEmbedding normalizes an embedding column that may arrive as a
// little-endian float32 blob, a JSON array string, or nil. It never
// returns an error: on any failure the result is nil (spec.md §4.1).
func decodeEmbedding(raw any) *Embedding {
	switch v := raw.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		if vec, ok := decodeFloat32Blob(v); ok {
			return &Embedding{Vector: vec, Dim: len(vec)}
		}
		// Fall through to JSON parsing of the raw bytes.
		if vec, ok := decodeFloat32JSON(v); ok {
			return &Embedding{Vector: vec, Dim: len(vec)}
		}
		return nil
	case string:
		if vec, ok := decodeFloat32JSON([]byte(v)); ok {
			return &Embedding{Vector: vec, Dim: len(vec)}
		}
		return nil
	case []float32:
		return &Embedding{Vector: v, Dim: len(v)}
	case []float64:
		vec := make([]float32, len(v))
		for i, f := range v {
			vec[i] = float32(f)
		}
		return &Embedding{Vector: vec, Dim: len(vec)}
	default:
		return nil
	}
}

// decodeFloat32Blob attempts a little-endian Float32 reinterpretation
// of raw bytes. It only succeeds (ok=true) for byte lengths that are a
// multiple of 4 and match the canonical or legacy dimension, per the
// bit-exact contract in spec.md §6.3.
func decodeFloat32Blob(raw []byte) (vec []float32, ok bool) {
	if len(raw)%4 != 0 {
		return nil, false
	}
	if len(raw) != canonicalEmbeddingBytes && len(raw) != legacyEmbeddingBytes {
		return nil, false
	}
	n := len(raw) / 4
	vec = make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, true
}

// decodeFloat32JSON parses a JSON numeric array into a float32 slice.
func decodeFloat32JSON(raw []byte) (vec []float32, ok bool) {
	var floats []float64
	if err := json.Unmarshal(raw, &floats); err != nil {
		return nil, false
	}
	vec = make([]float32, len(floats))
	for i, f := range floats {
		vec[i] = float32(f)
	}
	return vec, true
}

// Timestamp unit thresholds (spec.md §3.2): magnitudes above these
// indicate microsecond- or millisecond-scale raw values respectively;
// anything smaller is assumed to be whole seconds.
const (
	microsecondThreshold = 1_000_000_000_000_000 // > 10^15 => microseconds
	millisecondThreshold = 1_000_000_000_000      // > 10^12 => milliseconds
)

// normalizeTimestamp converts a raw timestamp of unknown unit into
// milliseconds. Negative raw values are rejected (spec.md §9 design
// notes: "rejection of negative values") and normalizeTimestamp
// returns (0, false) for them.
func normalizeTimestamp(raw int64) (ms int64, ok bool) {
	if raw < 0 {
		return 0, false
	}
	if raw == 0 {
		return 0, false
	}
	switch {
	case raw > microsecondThreshold:
		return raw / 1000, true
	case raw > millisecondThreshold:
		return raw, true
	default:
		return raw * 1000, true
	}
}

// parseMetadata decodes a metadata JSON column with a per-row catch:
// a parse failure yields the empty object, never an error (spec.md
// §4.1, §7 kind 3).
func parseMetadata(raw any) map[string]any {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return map[string]any{}
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return map[string]any{}
	}
	if len(data) == 0 {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	if out == nil {
		return map[string]any{}
	}
	return out
}

// InferFoundation implements the memory foundation-flag inference rule
// (spec.md §4.1): explicit "foundation" metadata key, source ==
// "__ADRS__", or domain in {architecture, security}.
func InferFoundation(metadata map[string]any, source, domain string) bool {
	if v, ok := metadata["foundation"]; ok {
		if b, ok := v.(bool); ok && b {
			return true
		}
	}
	if source == "__ADRS__" {
		return true
	}
	switch domain {
	case "architecture", "security":
		return true
	}
	return false
}

// initWarmupSentinel is the content value that marks a memory row as a
// startup placeholder, filtered out entirely by ReadMemories
// (spec.md §3.3).
const initWarmupSentinel = "init-warmup"

// IsWarmupSentinel reports whether a memory row should be dropped.
func IsWarmupSentinel(content string) bool {
	return content == initWarmupSentinel
}
