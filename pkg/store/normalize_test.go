package store

import (
	"encoding/binary"
	"math"
	"testing"
)

func float32BlobOf(vals []float32) []byte {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf
}

func TestDecodeEmbeddingCanonicalBlob(t *testing.T) {
	vals := make([]float32, canonicalEmbeddingDim)
	for i := range vals {
		vals[i] = float32(i) * 0.01
	}
	emb := decodeEmbedding(float32BlobOf(vals))
	if emb == nil {
		t.Fatal("expected non-nil embedding")
	}
	if !emb.Valid() {
		t.Fatalf("expected valid canonical embedding, got dim=%d", emb.Dim)
	}
	if emb.Vector[1] != vals[1] {
		t.Errorf("expected round-trip float32 value, got %v want %v", emb.Vector[1], vals[1])
	}
}

func TestDecodeEmbeddingLegacyBlobIsInvalid(t *testing.T) {
	vals := make([]float32, 64)
	emb := decodeEmbedding(float32BlobOf(vals))
	if emb == nil {
		t.Fatal("expected non-nil embedding for legacy blob")
	}
	if emb.Valid() {
		t.Error("legacy 64-dim embedding must not report Valid()")
	}
}

func TestDecodeEmbeddingJSONFallback(t *testing.T) {
	emb := decodeEmbedding([]byte(`[0.1, 0.2, 0.3]`))
	if emb == nil || emb.Dim != 3 {
		t.Fatalf("expected 3-dim JSON embedding, got %+v", emb)
	}
}

func TestDecodeEmbeddingNilAndGarbage(t *testing.T) {
	if decodeEmbedding(nil) != nil {
		t.Error("nil input should decode to nil")
	}
	if decodeEmbedding([]byte("not json, not a multiple of 4 bytes!!")) != nil {
		t.Error("unparsable garbage should decode to nil, not error")
	}
}

func TestNormalizeTimestampUnits(t *testing.T) {
	cases := []struct {
		name string
		raw  int64
		want int64
		ok   bool
	}{
		{"microseconds", 1_700_000_000_000_000 + 1, (1_700_000_000_000_000 + 1) / 1000, true},
		{"milliseconds", 1_700_000_000_000, 1_700_000_000_000, true},
		{"seconds", 1_700_000_000, 1_700_000_000 * 1000, true},
		{"zero", 0, 0, false},
		{"negative", -5, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := normalizeTimestamp(c.raw)
			if ok != c.ok {
				t.Fatalf("ok = %v, want %v", ok, c.ok)
			}
			if ok && got != c.want {
				t.Errorf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestParseMetadataRecoversFromBadJSON(t *testing.T) {
	if m := parseMetadata([]byte("{not json")); len(m) != 0 {
		t.Errorf("expected empty map on parse failure, got %v", m)
	}
	if m := parseMetadata(nil); len(m) != 0 {
		t.Errorf("expected empty map for nil, got %v", m)
	}
	m := parseMetadata([]byte(`{"foundation": true}`))
	if v, _ := m["foundation"].(bool); !v {
		t.Errorf("expected foundation=true, got %v", m)
	}
}

func TestInferFoundation(t *testing.T) {
	cases := []struct {
		name     string
		metadata map[string]any
		source   string
		domain   string
		want     bool
	}{
		{"explicit flag", map[string]any{"foundation": true}, "", "", true},
		{"adrs source", map[string]any{}, "__ADRS__", "", true},
		{"architecture domain", map[string]any{}, "", "architecture", true},
		{"security domain", map[string]any{}, "", "security", true},
		{"none of the above", map[string]any{}, "other", "misc", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := InferFoundation(c.metadata, c.source, c.domain); got != c.want {
				t.Errorf("InferFoundation() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestIsWarmupSentinel(t *testing.T) {
	if !IsWarmupSentinel("init-warmup") {
		t.Error("expected sentinel content to match")
	}
	if IsWarmupSentinel("normal memory content") {
		t.Error("expected non-sentinel content to not match")
	}
}
