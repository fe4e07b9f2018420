// Package engine orchestrates the full Graph Construction Engine data
// flow (spec.md §2): Store Reader -> Node Builder -> Projection ->
// Edge Synthesizer -> Hyperedge Builder -> Topology -> Color, with the
// whole result memoized by the single-slot Graph Cache keyed on
// (store_mtime, similarity_threshold).
//
// This is the one package every other GCE component is wired through;
// pkg/api's /graph handler and cmd/graphctl's build/serve subcommands
// both call Engine.Build and never touch pkg/store, pkg/edge, etc.
// directly.
package engine

import (
	"context"
	"fmt"

	"github.com/kestrelai/graphlens/pkg/cache"
	"github.com/kestrelai/graphlens/pkg/color"
	"github.com/kestrelai/graphlens/pkg/config"
	"github.com/kestrelai/graphlens/pkg/edge"
	"github.com/kestrelai/graphlens/pkg/graph"
	"github.com/kestrelai/graphlens/pkg/hyperedge"
	"github.com/kestrelai/graphlens/pkg/logx"
	"github.com/kestrelai/graphlens/pkg/nodebuilder"
	"github.com/kestrelai/graphlens/pkg/projection"
	"github.com/kestrelai/graphlens/pkg/store"
	"github.com/kestrelai/graphlens/pkg/timeline"
	"github.com/kestrelai/graphlens/pkg/topology"
)

var log = logx.Get("engine")

// maxEpsilonMultiplier is the Vietoris-Rips filtration ceiling
// relative to the max pairwise distance (spec.md §4.6 default).
const maxEpsilonMultiplier = 1.1

// Graph is the fully materialized, cache-memoized pipeline result
// (spec.md §4.9 response shape, minus JSON sanitization which is
// pkg/api's concern).
type Graph struct {
	Nodes          []graph.Node
	Edges          []graph.Edge
	Hyperedges     []graph.Hyperedge
	NodeTypeConfig map[graph.Source]graph.NodeTypeConfig
	Topology       topology.Result
	Timeline       timeline.Snapshot
	Meta           Meta
}

// Meta carries the build's provenance and any store-level error
// (spec.md §7 kind 1: "a distinct failure returned in the response
// meta.error; the response is still shaped normally with empty arrays").
type Meta struct {
	LoadedAtMs   int64
	StoreMtimeMs int64
	Threshold    float64
	Error        string
	FromCache    bool
}

// Engine owns the store path, configuration, and Graph Cache for one
// intelligence store.
type Engine struct {
	storePath string
	cfg       *config.Config
	cache     *cache.GraphCache
}

// New creates an Engine over storePath using cfg (zero value is
// invalid; callers should start from config.LoadFromEnv()).
func New(storePath string, cfg *config.Config) *Engine {
	return &Engine{
		storePath: storePath,
		cfg:       cfg,
		cache:     cache.NewGraphCache(cfg.Cache.TTL),
	}
}

// Build runs (or returns the memoized result of) the full pipeline at
// threshold. refresh forces a rebuild regardless of the cache state
// (spec.md §6.2: "GET /graph?refresh=bool&threshold=float").
func (e *Engine) Build(ctx context.Context, threshold float64, refresh bool, nowMs int64) (*Graph, error) {
	mtime, statErr := store.Mtime(e.storePath)
	if statErr != nil {
		log.Warn("store unreachable, returning empty renderable graph", "path", e.storePath, "err", statErr)
		return emptyGraph(threshold, nowMs, statErr), nil
	}

	key := cache.Key{StoreMtimeMs: mtime, Threshold: threshold}
	if refresh {
		e.cache.Invalidate()
	}

	if cached, ok := e.cache.Get(key); ok {
		g := cached.(*Graph)
		g.Meta.FromCache = true
		return g, nil
	}

	v, err := e.cache.GetOrBuild(key, func() (any, error) {
		return e.build(ctx, mtime, threshold, nowMs)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Graph), nil
}

// build runs the pipeline once, uncached.
func (e *Engine) build(ctx context.Context, mtime int64, threshold float64, nowMs int64) (*Graph, error) {
	reader, err := store.Open(ctx, e.storePath)
	if err != nil {
		return emptyGraph(threshold, nowMs, err), nil
	}
	defer reader.Close()

	in, edgeIn, err := readAll(ctx, reader)
	if err != nil {
		return emptyGraph(threshold, nowMs, err), nil
	}

	built := nodebuilder.Build(in)
	nodes := built.Nodes

	nodes = projection.Project(nodes, built.Embeddings, e.cfg.Projection)

	simCfg := e.cfg.Similarity
	simCfg.Threshold = threshold
	edges, counts := edge.Synthesize(nodes, built.Embeddings, built.Index, edgeIn, simCfg)
	for i := range nodes {
		nodes[i].ConnectionCount = counts[i]
	}

	nodeTypeConfig := graph.BuildNodeTypeConfig(nodes)
	hyperedges := hyperedge.Build(nodes, nodeTypeConfig)
	topo := topology.Compute(nodes, maxEpsilonMultiplier)

	tl := timeline.New(timeline.Config{
		BucketCount:    e.cfg.Timeline.BucketCount,
		SpeedMsPerUnit: e.cfg.Timeline.SpeedMsPerUnit,
		ShowFuture:     e.cfg.Timeline.ShowFuture,
	})
	tl.Load(nodes, edges)

	return &Graph{
		Nodes:          nodes,
		Edges:          edges,
		Hyperedges:     hyperedges,
		NodeTypeConfig: nodeTypeConfig,
		Topology:       topo,
		Timeline:       tl.Snapshot(),
		Meta: Meta{
			LoadedAtMs:   nowMs,
			StoreMtimeMs: mtime,
			Threshold:    threshold,
		},
	}, nil
}

// readAll reads every store collection the pipeline needs. An error
// reading memories or patterns is returned at once and the remaining
// tables are not read; errors from the other tables are ignored and
// their collections are left empty (spec.md §7 kind 2).
func readAll(ctx context.Context, r *store.Reader) (nodebuilder.Input, edge.Input, error) {
	memories, err := r.ReadMemories(ctx)
	if err != nil {
		return nodebuilder.Input{}, edge.Input{}, fmt.Errorf("engine: %w", err)
	}
	neural, _ := r.ReadNeuralPatterns(ctx)
	patterns, err := r.ReadPatterns(ctx)
	if err != nil {
		return nodebuilder.Input{}, edge.Input{}, fmt.Errorf("engine: %w", err)
	}
	trajectories, _ := r.ReadTrajectories(ctx)
	fileSeqs, _ := r.ReadFileSequences(ctx)
	agents, _ := r.ReadAgents(ctx)
	storedEdges, _ := r.ReadEdges(ctx)

	in := nodebuilder.Input{
		Memories:       memories,
		NeuralPatterns: neural,
		Patterns:       patterns,
		Trajectories:   trajectories,
		FileSequences:  fileSeqs,
		Agents:         agents,
	}
	edgeIn := edge.Input{StoredEdges: storedEdges, FileSequences: fileSeqs}
	return in, edgeIn, nil
}

// emptyGraph returns an always-renderable, empty-but-valid graph for
// the missing-store error path (spec.md §7 kind 1).
func emptyGraph(threshold float64, nowMs int64, cause error) *Graph {
	nodes := []graph.Node{}
	return &Graph{
		Nodes:          nodes,
		Edges:          []graph.Edge{},
		Hyperedges:     []graph.Hyperedge{},
		NodeTypeConfig: graph.BuildNodeTypeConfig(nodes),
		Topology:       topology.Result{},
		Timeline:       timeline.Snapshot{},
		Meta: Meta{
			LoadedAtMs: nowMs,
			Threshold:  threshold,
			Error:      cause.Error(),
		},
	}
}

// CacheStats reports the Graph Cache's hit/miss counters, surfaced by
// pkg/api in the /graph response's stats block (spec.md §4.9).
func (e *Engine) CacheStats() cache.CacheStats {
	return e.cache.Stats()
}

// Resolve applies a color mode over g's nodes, a thin convenience
// wrapper so callers (pkg/api, cmd/graphctl) don't need to import
// pkg/color directly just to reach the node-type config it needs.
func (g *Graph) Resolve(mode color.Mode) color.Result {
	return color.Resolve(g.Nodes, mode, g.NodeTypeConfig)
}
