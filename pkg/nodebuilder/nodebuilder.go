// Package nodebuilder materializes the unified Node record for each of
// the nine node kinds and builds the parallel embedding array consumed
// by the Projection & Layout and Edge Synthesizer stages.
//
// Every public index (node ID, raw agent name, or synthetic key) is
// resolved through a single Index, so downstream packages never touch
// a slice directly.
package nodebuilder

import (
	"encoding/json"
	"strings"

	"github.com/kestrelai/graphlens/pkg/graph"
	"github.com/kestrelai/graphlens/pkg/store"
)

// maxEmbeddingDim is the padded width of every embedding row appended
// to the parallel embedding array (spec.md §4.2: "padded with zeros to
// maxDim = 384").
const maxEmbeddingDim = 384

// Result is the materialized output of the Node Builder: a dense node
// slice plus the parallel embedding matrix and every lookup index
// downstream stages need.
type Result struct {
	Nodes      []graph.Node
	Embeddings [][]float32 // len(Embeddings) == len(Nodes); nil row when absent
	Index      *Index
}

// Index resolves the synthetic and natural keys described in spec.md
// §4.2: "by id, by raw agent name ... and by synthetic keys".
type Index struct {
	byID    map[string]int
	byAgent map[string]int
	byKey   map[string]int // file:<path>, file_type:<ext>, agent:<name>, state:<val>, action:<val>
}

func newIndex() *Index {
	return &Index{
		byID:    make(map[string]int),
		byAgent: make(map[string]int),
		byKey:   make(map[string]int),
	}
}

// ByID resolves a node's stable ID to its dense index.
func (x *Index) ByID(id string) (int, bool) { i, ok := x.byID[id]; return i, ok }

// ByAgentName resolves a raw agent name to its agent node's index.
func (x *Index) ByAgentName(name string) (int, bool) { i, ok := x.byAgent[name]; return i, ok }

// ByKey resolves a synthetic key (see Index) to a node index.
func (x *Index) ByKey(key string) (int, bool) { i, ok := x.byKey[key]; return i, ok }

func fileKey(path string) string     { return "file:" + path }
func fileTypeKey(ext string) string  { return "file_type:" + ext }
func agentKey(name string) string    { return "agent:" + name }
func stateKey(val string) string     { return "state:" + val }
func actionKey(val string) string    { return "action:" + val }

// builder accumulates nodes and embeddings in materialization order.
type builder struct {
	nodes      []graph.Node
	embeddings [][]float32
	index      *Index
}

func newBuilder() *builder {
	return &builder{index: newIndex()}
}

func (b *builder) add(n graph.Node, emb *store.Embedding, key string) int {
	n.NodeIndex = len(b.nodes)
	n.HasEmbedding = emb != nil
	n.HasValidEmbedding = emb.Valid()
	if emb != nil {
		n.EmbeddingDim = emb.Dim
	}

	idx := n.NodeIndex
	b.nodes = append(b.nodes, n)
	b.embeddings = append(b.embeddings, padEmbedding(emb))

	if n.ID != "" {
		if _, dup := b.index.byID[n.ID]; dup {
			log.Warn("duplicate node id, last write wins", "id", n.ID, "source", n.Source)
		}
		b.index.byID[n.ID] = idx
	}
	if key != "" {
		b.index.byKey[key] = idx
	}
	return idx
}

func padEmbedding(emb *store.Embedding) []float32 {
	if emb == nil {
		return nil
	}
	padded := make([]float32, maxEmbeddingDim)
	n := emb.Dim
	if n > maxEmbeddingDim {
		n = maxEmbeddingDim
	}
	copy(padded, emb.Vector[:n])
	return padded
}

// preview truncates content to the first 300 characters (spec.md §3.1).
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= 300 {
		return content
	}
	return string(runes[:300])
}

// wordCount splits on whitespace.
func wordCount(content string) int {
	return len(strings.Fields(content))
}

// detectContentType sniffs JSON, then YAML-ish (contains ": " and a
// newline), else plain (spec.md §3.1).
func detectContentType(content string) graph.ContentType {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return graph.ContentPlain
	}
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var js json.RawMessage
		if json.Unmarshal([]byte(trimmed), &js) == nil {
			return graph.ContentJSON
		}
	}
	if strings.Contains(trimmed, ":\n") || (strings.Contains(trimmed, ": ") && strings.Contains(trimmed, "\n")) {
		return graph.ContentYAML
	}
	return graph.ContentPlain
}

// nsDepth counts path-like separators in a namespace/key prefix.
func nsDepth(keyPrefix string) int {
	if keyPrefix == "" {
		return 0
	}
	return strings.Count(keyPrefix, "/") + strings.Count(keyPrefix, ".") + strings.Count(keyPrefix, ":")
}

// splitStatePrefix returns the portion of a Q-pattern state before the
// first ':' (spec.md §4.4 step 2), or the whole string if there is none.
func splitStatePrefix(state string) string {
	if i := strings.IndexByte(state, ':'); i >= 0 {
		return state[:i]
	}
	return state
}

// fileExt returns the extension (without leading dot) of a path, or
// "noext" when the path has none.
func fileExt(path string) string {
	i := strings.LastIndexByte(path, '.')
	slash := strings.LastIndexAny(path, "/\\")
	if i <= slash {
		return "noext"
	}
	return path[i+1:]
}

// fileActionTypeKey splits a Q-table file-type key of the stored
// format "<action>:<ext>" (spec.md §4.2).
func fileActionTypeKey(key string) (action, ext string, ok bool) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
