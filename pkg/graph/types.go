// Package graph defines the unified Node, Edge, Hyperedge, and
// topological-feature types shared by every Graph Construction Engine
// component, plus the single-source-of-truth node-type configuration
// consumed by every downstream renderer.
//
// These types are the wire shape: every numeric field that crosses the
// API boundary is sanitized (see pkg/api) before it reaches a caller,
// but the in-process representation here is allowed transient NaN/Inf
// during construction (e.g. an empty cluster's mean).
package graph

// Source identifies which of the nine node kinds a Node materializes.
type Source string

// The closed set of node sources (spec.md §3.1).
const (
	SourceMemory          Source = "memory"
	SourceNeuralPattern    Source = "neural_pattern"
	SourceQPattern         Source = "q_pattern"
	SourceTrajectorySucc   Source = "trajectory_success"
	SourceTrajectoryFailed Source = "trajectory_failed"
	SourceFile             Source = "file"
	SourceFileType         Source = "file_type"
	SourceAgent            Source = "agent"
	SourceState            Source = "state"
	SourceAction           Source = "action"
)

// ContentType classifies a node's textual preview.
type ContentType string

const (
	ContentJSON  ContentType = "json"
	ContentYAML  ContentType = "yaml"
	ContentPlain ContentType = "plain"
)

// Node is the unified, polymorphic graph node record (spec.md §3.1).
//
// Kind-specific fields are grouped into pointer sub-structs so a given
// Node only carries the fields relevant to its Source; all other
// sub-struct pointers are nil.
type Node struct {
	// Identity
	ID        string
	NodeIndex int

	// Positional, assigned by pkg/projection.
	X, Y float64
	Z    *float64

	// Temporal, in milliseconds; nil when the source row has no timestamp.
	Timestamp *int64
	CreatedAt *int64
	UpdatedAt *int64

	// Textual
	Source      Source
	Preview     string
	Namespace   string
	KeyPrefix   string
	ContentType ContentType

	// Metric
	ValueLength     int
	WordCount       int
	NSDepth         int
	ConnectionCount int

	// Semantic
	HasEmbedding      bool
	HasValidEmbedding bool
	EmbeddingDim      int

	// Kind-specific extensions; at most one is non-nil per Source
	// (StateAction is used by both SourceState and SourceAction;
	// file-type nodes carry none).
	QPattern      *QPatternFields
	Trajectory    *TrajectoryFields
	Memory        *MemoryFields
	NeuralPattern *NeuralPatternFields
	StateAction   *StateActionFields
	Agent         *AgentFields
	File          *FileFields
}

// QPatternFields carries the learner's action-value table row data.
type QPatternFields struct {
	State  string
	Action string
	QValue float64
	Visits int
	Model  string // optional, empty when absent
}

// TrajectoryFields carries one execution episode.
type TrajectoryFields struct {
	Agent     string
	Context   string
	Success   bool
	StartTime int64
	EndTime   int64
	StepCount int
	Steps     []string // optional, nil when the store didn't record steps
	Reward    float64
}

// MemoryFields carries reinforcement-learning bookkeeping for a memory node.
type MemoryFields struct {
	IsFoundation bool
	Layer        string
	Document     string
	RecallCount  int
	RewardSum    float64
	Effectiveness float64
	LastRecalled *int64
	SourceDoc    string
	Domain       string
}

// NeuralPatternFields carries a learned neural pattern's metadata.
type NeuralPatternFields struct {
	Category      string
	Confidence    float64
	UsageCount    int
	TrajectoryID  string // optional, empty when not referenced
}

// StateActionFields carries the aggregate statistics attached to
// synthesized state/action nodes.
type StateActionFields struct {
	PatternCount int
	AvgQ         float64
	TotalVisits  int
}

// AgentFields carries an agent node's identity and health.
type AgentFields struct {
	AgentID      string
	AgentType    string
	AgentStatus  string
	AgentHealth  float64
	TopologyRole string
}

// FileFields carries a file node's path decomposition.
type FileFields struct {
	FilePath string
	FileName string
	FileExt  string
}

// EdgeType is the closed set of edge type strings (spec.md §3.1).
type EdgeType string

const (
	EdgeExplicit         EdgeType = "explicit"
	EdgeHasState         EdgeType = "has_state"
	EdgeHasAction        EdgeType = "has_action"
	EdgeIsAgent          EdgeType = "is_agent"
	EdgeAgentHierarchy   EdgeType = "agent_hierarchy"
	EdgeTrajectoryMemory EdgeType = "trajectory_memory"
	EdgeTrajectorySeq    EdgeType = "trajectory_sequence"
	EdgeSequence         EdgeType = "sequence"
	EdgeSameStatePrefix  EdgeType = "same_state_prefix"
	EdgeSameAction       EdgeType = "same_action"
	EdgeSameAgent        EdgeType = "same_agent"
	EdgeSuccessCluster   EdgeType = "success_cluster"
	EdgeFailureCluster   EdgeType = "failure_cluster"
	EdgeTrajectoryAction EdgeType = "trajectory_action"
	EdgeTrajectoryAgent  EdgeType = "trajectory_agent"
	EdgeTrajectoryNeural EdgeType = "trajectory_neural"
	EdgeAgentInstance    EdgeType = "agent_instance"
	EdgeStateTypeBridge  EdgeType = "state_type_bridge"
	EdgeMemoryAgent      EdgeType = "memory_agent"
	EdgeMemoryContext    EdgeType = "memory_context"
	EdgeRoutesTo         EdgeType = "routes_to"
	EdgeEditedAfter      EdgeType = "edited_after"
	EdgeFileCoedit       EdgeType = "file_coedit"
	EdgeContentMatch     EdgeType = "content_match"
	EdgeTypeMapping      EdgeType = "type_mapping"
	EdgeSemantic         EdgeType = "semantic"
	EdgeKNNFallback      EdgeType = "knn_fallback"
	EdgeTrajectoryOutcome EdgeType = "trajectory_outcome"
)

// EdgeGroup is derived from EdgeType, never from provenance (spec.md §3.1).
type EdgeGroup string

const (
	GroupSemantic      EdgeGroup = "semantic"
	GroupDeterministic EdgeGroup = "deterministic"
)

// semanticEdgeTypes is the fixed set of types classified as semantic.
var semanticEdgeTypes = map[EdgeType]bool{
	EdgeSemantic:       true,
	EdgeContentMatch:   true,
	EdgeTypeMapping:    true,
	EdgeMemoryContext:  true,
	EdgeKNNFallback:    true,
}

// ClassifyGroup returns the fixed semantic/deterministic classification
// for an edge type (spec.md §4.4 addEdge contract).
func ClassifyGroup(t EdgeType) EdgeGroup {
	if semanticEdgeTypes[t] {
		return GroupSemantic
	}
	return GroupDeterministic
}

// Edge is a directed storage record, semantically undirected unless
// Type is a hierarchy type (spec.md §3.1).
type Edge struct {
	Source int
	Target int
	Weight float64
	Type   EdgeType
	Group  EdgeGroup
}

// Hyperedge groups >=4 nodes sharing a memory-kind or node-source
// (spec.md §3.1, §4.5).
type Hyperedge struct {
	ID          string
	Type        string
	Label       string
	Members     []int
	Color       string
	MemberCount int
}

// Bar is one persistence barcode entry (spec.md §3.1, §4.6).
type Bar struct {
	Birth          float64
	Death          float64 // +Inf for essential features
	Dimension      int     // 0 or 1
	Representative []int   // node indices, present for H1 bars
}

// KnowledgeGap is a derived topological feature (spec.md §3.1, §4.6).
type KnowledgeGap struct {
	ID               string
	NodeIndices      []int
	CenterX, CenterY float64
	Radius           float64
	Persistence      float64
	SurroundingTopics []string
	Label            string
}

// NodeTypeConfig is one entry of the SSOT node-type table (spec.md §4.9).
type NodeTypeConfig struct {
	Source  Source
	Label   string
	Color   string
	SVGIcon string
	Shape2D string
	Shape3D string
	Order   int
	Count   int
	Active  bool
}
