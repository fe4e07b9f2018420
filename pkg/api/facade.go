package api

import (
	"math"

	"github.com/kestrelai/graphlens/pkg/cache"
	"github.com/kestrelai/graphlens/pkg/engine"
	"github.com/kestrelai/graphlens/pkg/graph"
	"github.com/kestrelai/graphlens/pkg/timeline"
	"github.com/kestrelai/graphlens/pkg/topology"
)

// Response is the GET /graph wire shape (spec.md §4.9): {nodes, edges,
// hyperedges, nodeTypeConfig, meta, timeline, metrics, stats, topology}.
type Response struct {
	Nodes          []NodeJSON                  `json:"nodes"`
	Edges          []EdgeJSON                  `json:"edges"`
	Hyperedges     []HyperedgeJSON              `json:"hyperedges"`
	NodeTypeConfig map[string]NodeTypeConfigJSON `json:"nodeTypeConfig"`
	Meta           MetaJSON                    `json:"meta"`
	Timeline       TimelineJSON                `json:"timeline"`
	Metrics        MetricsJSON                 `json:"metrics"`
	Stats          StatsJSON                   `json:"stats"`
	Topology       TopologyJSON                `json:"topology"`
}

// NodeJSON is the sanitized wire form of graph.Node (spec.md §3.1).
type NodeJSON struct {
	ID        string   `json:"id"`
	NodeIndex int      `json:"nodeIndex"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Z         *float64 `json:"z,omitempty"`

	Timestamp *int64 `json:"timestamp,omitempty"`
	CreatedAt *int64 `json:"createdAt,omitempty"`
	UpdatedAt *int64 `json:"updatedAt,omitempty"`

	Source      string `json:"source"`
	Preview     string `json:"preview"`
	Namespace   string `json:"namespace"`
	KeyPrefix   string `json:"keyPrefix"`
	ContentType string `json:"contentType"`

	ValueLength     int `json:"valueLength"`
	WordCount       int `json:"wordCount"`
	NSDepth         int `json:"nsDepth"`
	ConnectionCount int `json:"connectionCount"`

	HasEmbedding      bool `json:"hasEmbedding"`
	HasValidEmbedding bool `json:"hasValidEmbedding"`
	EmbeddingDim      int  `json:"embeddingDim"`

	// Kind-specific, flattened per spec.md §3.1's "adds" phrasing.
	State       string   `json:"state,omitempty"`
	Action      string   `json:"action,omitempty"`
	QValue      *float64 `json:"qValue,omitempty"`
	Visits      *int     `json:"visits,omitempty"`
	Model       string   `json:"model,omitempty"`
	Agent       string   `json:"agent,omitempty"`
	Context     string   `json:"context,omitempty"`
	Success     *bool    `json:"success,omitempty"`
	StartTime   *int64   `json:"startTime,omitempty"`
	EndTime     *int64   `json:"endTime,omitempty"`
	StepCount   *int     `json:"stepCount,omitempty"`
	Steps       []string `json:"steps,omitempty"`
	Reward      *float64 `json:"reward,omitempty"`
	IsFoundation *bool   `json:"isFoundation,omitempty"`
	Layer        string  `json:"layer,omitempty"`
	Document     string  `json:"document,omitempty"`
	RecallCount  *int    `json:"recallCount,omitempty"`
	RewardSum    *float64 `json:"rewardSum,omitempty"`
	Effectiveness *float64 `json:"effectiveness,omitempty"`
	LastRecalled *int64  `json:"lastRecalled,omitempty"`
	SourceDoc    string  `json:"sourceDoc,omitempty"`
	Domain       string  `json:"domain,omitempty"`
	Category     string  `json:"category,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
	UsageCount   *int    `json:"usageCount,omitempty"`
	TrajectoryID string  `json:"trajectoryId,omitempty"`
	PatternCount *int    `json:"patternCount,omitempty"`
	AvgQ         *float64 `json:"avgQ,omitempty"`
	TotalVisits  *int    `json:"totalVisits,omitempty"`
	AgentID      string  `json:"agentId,omitempty"`
	AgentType    string  `json:"agentType,omitempty"`
	AgentStatus  string  `json:"agentStatus,omitempty"`
	AgentHealth  *float64 `json:"agentHealth,omitempty"`
	TopologyRole string  `json:"topologyRole,omitempty"`
	FilePath     string  `json:"filePath,omitempty"`
	FileName     string  `json:"fileName,omitempty"`
	FileExt      string  `json:"fileExt,omitempty"`
}

// EdgeJSON is the wire form of graph.Edge.
type EdgeJSON struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Weight float64 `json:"weight"`
	Type   string  `json:"type"`
	Group  string  `json:"group"`
}

// HyperedgeJSON is the wire form of graph.Hyperedge.
type HyperedgeJSON struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Label       string `json:"label"`
	Members     []int  `json:"members"`
	Color       string `json:"color"`
	MemberCount int    `json:"memberCount"`
}

// NodeTypeConfigJSON is the wire form of one SSOT config entry.
type NodeTypeConfigJSON struct {
	Source  string `json:"source"`
	Label   string `json:"label"`
	Color   string `json:"color"`
	SVGIcon string `json:"svgIcon"`
	Shape2D string `json:"shape2d"`
	Shape3D string `json:"shape3d"`
	Order   int    `json:"order"`
	Count   int    `json:"count"`
	Active  bool   `json:"active"`
}

// MetaJSON carries build provenance and the optional store error
// (spec.md §7 kind 1).
type MetaJSON struct {
	LoadedAtMs   int64   `json:"loadedAt"`
	StoreMtimeMs int64   `json:"storeMtimeMs"`
	Threshold    float64 `json:"threshold"`
	Error        string  `json:"error,omitempty"`
	FromCache    bool    `json:"fromCache"`
}

// TimelineJSON is the wire form of a timeline.Snapshot.
type TimelineJSON struct {
	MinTs        int64     `json:"minTs"`
	MaxTs        int64     `json:"maxTs"`
	Current      RangeJSON `json:"current"`
	IsAnimating  bool      `json:"isAnimating"`
	VisibleNodes []bool    `json:"visibleNodes"`
	VisibleEdges []bool    `json:"visibleEdges"`
	Histogram    []int     `json:"histogram"`
}

// RangeJSON is the wire form of timeline.Range.
type RangeJSON struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// MetricsJSON is a small set of derived counts the UI renders as a
// status strip.
type MetricsJSON struct {
	NodeCount      int `json:"nodeCount"`
	EdgeCount      int `json:"edgeCount"`
	HyperedgeCount int `json:"hyperedgeCount"`
	BarCount       int `json:"barCount"`
	GapCount       int `json:"gapCount"`
}

// StatsJSON surfaces the Graph Cache's hit/miss counters.
type StatsJSON struct {
	CacheOccupied bool    `json:"cacheOccupied"`
	CacheHits     uint64  `json:"cacheHits"`
	CacheMisses   uint64  `json:"cacheMisses"`
	CacheHitRate  float64 `json:"cacheHitRate"`
}

// BarJSON is the wire form of graph.Bar. For essential features
// (spec.md §3.1: "Bar.death" may be legitimately infinite) Death stays
// 0 and is omitted from the JSON, and Essential is true;
// the sentinel is an explicit boolean rather than a magic number so
// the renderer never mistakes a sanitized 0 for "essential".
type BarJSON struct {
	Birth          float64 `json:"birth"`
	Death          float64 `json:"death,omitempty"`
	Essential      bool    `json:"essential,omitempty"`
	Dimension      int     `json:"dimension"`
	Representative []int   `json:"representative,omitempty"`
}

// GapJSON is the wire form of graph.KnowledgeGap.
type GapJSON struct {
	ID                string   `json:"id"`
	NodeIndices       []int    `json:"nodeIndices"`
	CenterX           float64  `json:"centerX"`
	CenterY           float64  `json:"centerY"`
	Radius            float64  `json:"radius"`
	Persistence       float64  `json:"persistence"`
	SurroundingTopics []string `json:"surroundingTopics"`
	Label             string   `json:"label"`
}

// TopologyJSON bundles the persistence barcode and derived gaps.
type TopologyJSON struct {
	Bars []BarJSON `json:"bars"`
	Gaps []GapJSON `json:"gaps"`
}

// Build converts an engine.Graph plus cache stats into the sanitized
// wire Response (spec.md §4.9).
func Build(g *engine.Graph, cacheStats cache.CacheStats) Response {
	return Response{
		Nodes:          buildNodes(g.Nodes),
		Edges:          buildEdges(g.Edges),
		Hyperedges:     buildHyperedges(g.Hyperedges),
		NodeTypeConfig: buildNodeTypeConfig(g.NodeTypeConfig),
		Meta: MetaJSON{
			LoadedAtMs:   g.Meta.LoadedAtMs,
			StoreMtimeMs: g.Meta.StoreMtimeMs,
			Threshold:    Sanitize(g.Meta.Threshold, 0),
			Error:        g.Meta.Error,
			FromCache:    g.Meta.FromCache,
		},
		Timeline: buildTimeline(g.Timeline),
		Metrics: MetricsJSON{
			NodeCount:      len(g.Nodes),
			EdgeCount:      len(g.Edges),
			HyperedgeCount: len(g.Hyperedges),
			BarCount:       len(g.Topology.Bars),
			GapCount:       len(g.Topology.KnowledgeGaps),
		},
		Stats: StatsJSON{
			CacheOccupied: cacheStats.Occupied,
			CacheHits:     cacheStats.Hits,
			CacheMisses:   cacheStats.Misses,
			CacheHitRate:  Sanitize(cacheStats.HitRate, 0),
		},
		Topology: buildTopology(g.Topology),
	}
}

func buildNodes(nodes []graph.Node) []NodeJSON {
	out := make([]NodeJSON, len(nodes))
	for i, n := range nodes {
		out[i] = buildNode(n)
	}
	return out
}

func buildNode(n graph.Node) NodeJSON {
	j := NodeJSON{
		ID:                n.ID,
		NodeIndex:         n.NodeIndex,
		X:                 Sanitize(n.X, 0),
		Y:                 Sanitize(n.Y, 0),
		Timestamp:         n.Timestamp,
		CreatedAt:         n.CreatedAt,
		UpdatedAt:         n.UpdatedAt,
		Source:            string(n.Source),
		Preview:           n.Preview,
		Namespace:         n.Namespace,
		KeyPrefix:         n.KeyPrefix,
		ContentType:       string(n.ContentType),
		ValueLength:       n.ValueLength,
		WordCount:         n.WordCount,
		NSDepth:           n.NSDepth,
		ConnectionCount:   n.ConnectionCount,
		HasEmbedding:      n.HasEmbedding,
		HasValidEmbedding: n.HasValidEmbedding,
		EmbeddingDim:      n.EmbeddingDim,
	}
	if n.Z != nil {
		z := Sanitize(*n.Z, 0)
		j.Z = &z
	}
	if q := n.QPattern; q != nil {
		j.State, j.Action, j.Model = q.State, q.Action, q.Model
		j.QValue = ptrF(Sanitize(q.QValue, 0))
		j.Visits = ptrI(q.Visits)
	}
	if tr := n.Trajectory; tr != nil {
		j.Agent, j.Context = tr.Agent, tr.Context
		j.Success = ptrB(tr.Success)
		j.StartTime, j.EndTime = ptrI64(tr.StartTime), ptrI64(tr.EndTime)
		j.StepCount = ptrI(tr.StepCount)
		j.Steps = tr.Steps
		j.Reward = ptrF(Sanitize(tr.Reward, 0))
	}
	if m := n.Memory; m != nil {
		j.IsFoundation = ptrB(m.IsFoundation)
		j.Layer, j.Document, j.SourceDoc, j.Domain = m.Layer, m.Document, m.SourceDoc, m.Domain
		j.RecallCount = ptrI(m.RecallCount)
		j.RewardSum = ptrF(Sanitize(m.RewardSum, 0))
		j.Effectiveness = ptrF(Sanitize(m.Effectiveness, 0))
		j.LastRecalled = m.LastRecalled
	}
	if np := n.NeuralPattern; np != nil {
		j.Category = np.Category
		j.Confidence = ptrF(Sanitize(np.Confidence, 0))
		j.UsageCount = ptrI(np.UsageCount)
		j.TrajectoryID = np.TrajectoryID
	}
	if sa := n.StateAction; sa != nil {
		j.PatternCount = ptrI(sa.PatternCount)
		j.AvgQ = ptrF(Sanitize(sa.AvgQ, 0))
		j.TotalVisits = ptrI(sa.TotalVisits)
	}
	if a := n.Agent; a != nil {
		j.AgentID, j.AgentType, j.AgentStatus, j.TopologyRole = a.AgentID, a.AgentType, a.AgentStatus, a.TopologyRole
		j.AgentHealth = ptrF(Sanitize(a.AgentHealth, 0))
	}
	if f := n.File; f != nil {
		j.FilePath, j.FileName, j.FileExt = f.FilePath, f.FileName, f.FileExt
	}
	return j
}

func buildEdges(edges []graph.Edge) []EdgeJSON {
	out := make([]EdgeJSON, len(edges))
	for i, e := range edges {
		out[i] = EdgeJSON{
			Source: e.Source,
			Target: e.Target,
			Weight: Sanitize(e.Weight, 0),
			Type:   string(e.Type),
			Group:  string(e.Group),
		}
	}
	return out
}

func buildHyperedges(hs []graph.Hyperedge) []HyperedgeJSON {
	out := make([]HyperedgeJSON, len(hs))
	for i, h := range hs {
		out[i] = HyperedgeJSON{
			ID: h.ID, Type: h.Type, Label: h.Label,
			Members: h.Members, Color: h.Color, MemberCount: h.MemberCount,
		}
	}
	return out
}

func buildNodeTypeConfig(cfg map[graph.Source]graph.NodeTypeConfig) map[string]NodeTypeConfigJSON {
	out := make(map[string]NodeTypeConfigJSON, len(cfg))
	for src, c := range cfg {
		out[string(src)] = NodeTypeConfigJSON{
			Source: string(c.Source), Label: c.Label, Color: c.Color,
			SVGIcon: c.SVGIcon, Shape2D: c.Shape2D, Shape3D: c.Shape3D,
			Order: c.Order, Count: c.Count, Active: c.Active,
		}
	}
	return out
}

func buildTimeline(snap timeline.Snapshot) TimelineJSON {
	return TimelineJSON{
		MinTs:       snap.MinTs,
		MaxTs:       snap.MaxTs,
		Current:     RangeJSON{Start: snap.Current.Start, End: snap.Current.End},
		IsAnimating: snap.IsAnimating,
		VisibleNodes: snap.VisibleNodes,
		VisibleEdges: snap.VisibleEdges,
		Histogram:    snap.Histogram,
	}
}

func buildTopology(t topology.Result) TopologyJSON {
	bars := make([]BarJSON, len(t.Bars))
	for i, b := range t.Bars {
		essential := math.IsInf(b.Death, 1)
		bj := BarJSON{
			Birth:          Sanitize(b.Birth, 0),
			Dimension:      b.Dimension,
			Representative: b.Representative,
			Essential:      essential,
		}
		if !essential {
			bj.Death = Sanitize(b.Death, 0)
		}
		bars[i] = bj
	}

	gaps := make([]GapJSON, len(t.KnowledgeGaps))
	for i, g := range t.KnowledgeGaps {
		gaps[i] = GapJSON{
			ID:                g.ID,
			NodeIndices:       g.NodeIndices,
			CenterX:           Sanitize(g.CenterX, 0),
			CenterY:           Sanitize(g.CenterY, 0),
			Radius:            Sanitize(g.Radius, 0),
			Persistence:       Sanitize(g.Persistence, 0),
			SurroundingTopics: g.SurroundingTopics,
			Label:             g.Label,
		}
	}

	return TopologyJSON{Bars: bars, Gaps: gaps}
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }
func ptrI64(v int64) *int64   { return &v }
func ptrB(v bool) *bool       { return &v }
