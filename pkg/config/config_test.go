package config

import "testing"

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
	if cfg.Similarity.Threshold != 0.55 {
		t.Errorf("expected default threshold 0.55, got %f", cfg.Similarity.Threshold)
	}
	if cfg.Similarity.SemanticFanoutCap != 15 {
		t.Errorf("expected semantic fanout cap 15, got %d", cfg.Similarity.SemanticFanoutCap)
	}
	if cfg.Similarity.StructuralFanoutCap != 25 {
		t.Errorf("expected structural fanout cap 25, got %d", cfg.Similarity.StructuralFanoutCap)
	}
	if cfg.Projection.NComponents != 2 {
		t.Errorf("expected 2 projection components, got %d", cfg.Projection.NComponents)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Similarity.Threshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for out-of-range threshold")
	}
}

func TestValidateRejectsEmptyStorePath(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Store.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for empty store path")
	}
}
