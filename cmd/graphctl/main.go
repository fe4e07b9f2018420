// Package main provides the Graph Construction Engine's CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelai/graphlens/pkg/api"
	"github.com/kestrelai/graphlens/pkg/config"
	"github.com/kestrelai/graphlens/pkg/engine"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "graphctl",
		Short: "graphctl builds and serves the self-learning agent's graph view",
		Long: `graphctl turns a self-learning agent's SQLite intelligence store into
a typed, layout-ready, edge-classified, topologically-analyzed graph.

Features:
  • Polymorphic node model over memories, patterns, trajectories, files, and agents
  • Twelve-step deterministic edge synthesis pipeline
  • UMAP projection with polar-ring fallback and optional Poincare reprojection
  • Persistent homology and derived knowledge gaps
  • Single-slot cache keyed on (store mtime, similarity threshold)`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("graphctl v%s\n", version)
		},
	})

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Run the pipeline once and print the sanitized JSON graph",
		RunE:  runBuild,
	}
	buildCmd.Flags().String("store", "", "Path to the SQLite intelligence store (default from GRAPHLENS_STORE_PATH)")
	buildCmd.Flags().Float64("threshold", 0, "Similarity threshold override (0 uses the configured default)")
	buildCmd.Flags().Bool("refresh", false, "Bypass the cache and force a rebuild")
	rootCmd.AddCommand(buildCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve GET /graph over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().String("store", "", "Path to the SQLite intelligence store (default from GRAPHLENS_STORE_PATH)")
	serveCmd.Flags().String("addr", "", "Listen address (default from GRAPHLENS_ADDR)")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.LoadFromEnv()

	if store, _ := cmd.Flags().GetString("store"); store != "" {
		cfg.Store.Path = store
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	threshold, _ := cmd.Flags().GetFloat64("threshold")
	if threshold == 0 {
		threshold = cfg.Similarity.Threshold
	}
	refresh, _ := cmd.Flags().GetBool("refresh")

	eng := engine.New(cfg.Store.Path, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	g, err := eng.Build(ctx, threshold, refresh, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("building graph: %w", err)
	}

	resp := api.Build(g, eng.CacheStats())
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	eng := engine.New(cfg.Store.Path, cfg)
	srv := api.New(eng, cfg)

	fmt.Printf("Starting graphctl v%s\n", version)
	fmt.Printf("   Store: %s\n", cfg.Store.Path)

	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	fmt.Printf("Serving on http://%s/graph\n", srv.Addr())
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}
