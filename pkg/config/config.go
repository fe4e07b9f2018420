// Package config loads Graph Construction Engine configuration from
// environment variables.
//
// Following the teacher's env-var-first convention, every setting has
// a GRAPHLENS_-prefixed variable and a sane default so the engine runs
// unconfigured against a local intelligence store.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all Graph Construction Engine configuration.
type Config struct {
	// Store is the path to the read-only SQLite intelligence store.
	Store StoreConfig

	// Similarity controls the semantic edge synthesis threshold.
	Similarity SimilarityConfig

	// Projection controls UMAP and fallback layout parameters.
	Projection ProjectionConfig

	// Cache controls the Graph Cache's keying and behavior.
	Cache CacheConfig

	// Logging controls log level/format.
	Logging LoggingConfig

	// Server controls the HTTP facade.
	Server ServerConfig

	// Timeline controls histogram resolution and animation speed.
	Timeline TimelineConfig
}

// StoreConfig locates the intelligence store on disk.
type StoreConfig struct {
	// Path to the SQLite database file (GRAPHLENS_STORE_PATH).
	Path string
}

// SimilarityConfig configures semantic edge synthesis (spec.md §4.4 step 11).
type SimilarityConfig struct {
	// Threshold is the default cosine-similarity cutoff, compared with >=.
	// GRAPHLENS_SIMILARITY_THRESHOLD, default 0.55.
	Threshold float64

	// SemanticFanoutCap is the per-node semantic edge cap (default 15).
	SemanticFanoutCap int

	// StructuralFanoutCap is the per-node non-semantic edge cap (default 25).
	StructuralFanoutCap int

	// OrphanRescueK is the number of knn_fallback edges per orphan (default 3).
	OrphanRescueK int
}

// ProjectionConfig configures UMAP and fallback layout.
type ProjectionConfig struct {
	// MinEmbeddedNodes is the minimum embedded-node count required to run UMAP.
	MinEmbeddedNodes int

	// NComponents is the UMAP output dimensionality (always 2 per spec).
	NComponents int

	// MinDist is UMAP's minimum-distance parameter.
	MinDist float64

	// CanvasSize is the logical square canvas side length nodes are scaled into.
	CanvasSize float64

	// CanvasOrigin is the top-left offset nodes are scaled into.
	CanvasOrigin float64

	// EnablePoincare enables the optional hyperbolic reprojection.
	EnablePoincare bool
}

// CacheConfig configures the single-slot Graph Cache (spec.md §4.9).
type CacheConfig struct {
	// TTL is an optional additional expiration on top of the mtime/threshold key.
	// Zero disables TTL expiration (the default; mtime/threshold invalidation
	// is always active regardless of TTL).
	TTL time.Duration
}

// LoggingConfig configures pkg/logx output.
type LoggingConfig struct {
	Level string // debug, info, warn, error
	JSON  bool
}

// ServerConfig configures the optional /graph HTTP facade.
type ServerConfig struct {
	Addr string
}

// TimelineConfig configures the Timeline Filter (spec.md §4.7).
type TimelineConfig struct {
	// BucketCount is the histogram resolution (default 50).
	BucketCount int

	// SpeedMsPerUnit is milliseconds of wall-clock playback per full
	// (minTs, maxTs) span traversed.
	SpeedMsPerUnit float64

	// ShowFuture controls visibility of timestamp-less nodes.
	ShowFuture bool
}

// LoadFromEnv builds a Config from environment variables, falling back
// to documented defaults for anything unset.
func LoadFromEnv() *Config {
	return &Config{
		Store: StoreConfig{
			Path: getEnv("GRAPHLENS_STORE_PATH", "./intelligence.db"),
		},
		Similarity: SimilarityConfig{
			Threshold:           getEnvFloat("GRAPHLENS_SIMILARITY_THRESHOLD", 0.55),
			SemanticFanoutCap:   getEnvInt("GRAPHLENS_SEMANTIC_FANOUT_CAP", 15),
			StructuralFanoutCap: getEnvInt("GRAPHLENS_STRUCTURAL_FANOUT_CAP", 25),
			OrphanRescueK:       getEnvInt("GRAPHLENS_ORPHAN_RESCUE_K", 3),
		},
		Projection: ProjectionConfig{
			MinEmbeddedNodes: getEnvInt("GRAPHLENS_UMAP_MIN_NODES", 5),
			NComponents:      2,
			MinDist:          getEnvFloat("GRAPHLENS_UMAP_MIN_DIST", 0.1),
			CanvasSize:       getEnvFloat("GRAPHLENS_CANVAS_SIZE", 3800),
			CanvasOrigin:     getEnvFloat("GRAPHLENS_CANVAS_ORIGIN", 150),
			EnablePoincare:   getEnvBool("GRAPHLENS_ENABLE_POINCARE", false),
		},
		Cache: CacheConfig{
			TTL: getEnvDuration("GRAPHLENS_CACHE_TTL", 0),
		},
		Logging: LoggingConfig{
			Level: getEnv("GRAPHLENS_LOG_LEVEL", "info"),
			JSON:  getEnvBool("GRAPHLENS_LOG_JSON", false),
		},
		Server: ServerConfig{
			Addr: getEnv("GRAPHLENS_ADDR", ":8585"),
		},
		Timeline: TimelineConfig{
			BucketCount:    getEnvInt("GRAPHLENS_TIMELINE_BUCKETS", 50),
			SpeedMsPerUnit: getEnvFloat("GRAPHLENS_TIMELINE_SPEED_MS", 20000),
			ShowFuture:     getEnvBool("GRAPHLENS_TIMELINE_SHOW_FUTURE", true),
		},
	}
}

// Validate checks the config for internally inconsistent values.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("config: store path must not be empty")
	}
	if c.Similarity.Threshold < 0 || c.Similarity.Threshold > 1 {
		return fmt.Errorf("config: similarity threshold %f out of [0,1]", c.Similarity.Threshold)
	}
	if c.Similarity.SemanticFanoutCap <= 0 {
		return fmt.Errorf("config: semantic fanout cap must be positive")
	}
	if c.Similarity.StructuralFanoutCap <= 0 {
		return fmt.Errorf("config: structural fanout cap must be positive")
	}
	if c.Projection.MinEmbeddedNodes < 0 {
		return fmt.Errorf("config: umap min nodes must be non-negative")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
