// Package color resolves a display RGB triple for each node under one
// of the selectable color modes (spec.md §4.8): categorical modes
// allocate from a fixed palette family with deterministic hashing on
// miss, gradient modes normalize a numeric field into [0,1] and map it
// through a ramp, and composite modes blend several fields into one
// quality score. The resolver also emits a legend (label -> RGB) so
// the UI can render a key alongside the graph.
//
// Grounded on the teacher's apoc/hashing package (hash/fnv for
// deterministic, dependency-free hashing) generalized here from string
// digests to a hue bucket used only when a categorical value falls
// outside the fixed palette.
package color

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/kestrelai/graphlens/pkg/graph"
)

// RGB is one resolved color, 0-255 per channel.
type RGB struct {
	R, G, B uint8
}

// Mode is one of the ~25 selectable coloring strategies (spec.md §4.8).
type Mode string

const (
	ModeSource        Mode = "source"
	ModeNamespace     Mode = "namespace"
	ModeConnectivity  Mode = "connectivity"
	ModeTime          Mode = "time"
	ModeRecency       Mode = "recency"
	ModeLength        Mode = "length"
	ModeContentType   Mode = "content_type"
	ModeQValue        Mode = "q_value"
	ModeVisits        Mode = "visits"
	ModeState         Mode = "state"
	ModeAction        Mode = "action"
	ModeSuccess       Mode = "success"
	ModeQuality       Mode = "quality"
	ModeAgent         Mode = "agent"
	ModeModel         Mode = "model"
	ModeTopologyRole  Mode = "topology_role"
	ModeFoundation    Mode = "foundation"
	ModeLayer         Mode = "layer"
	ModeEffectiveness Mode = "effectiveness"
	ModeRecallCount   Mode = "recall_count"
	ModeDomain        Mode = "domain"
	ModeConfidence    Mode = "confidence"
	ModeCategory      Mode = "category"
	ModeWordCount     Mode = "word_count"
	ModeNSDepth       Mode = "ns_depth"
	ModeEmbedding     Mode = "embedding"
)

// Result bundles the per-node colors and the legend driving the UI key.
type Result struct {
	Colors []RGB
	Legend map[string]RGB
}

// categoricalPalettes is the fixed family of 4 palettes categorical
// modes allocate from in order (all of the first palette, then the
// second, and so on), falling back to a hashed hue once all four are
// exhausted for a given mode's value set.
var categoricalPalettes = [4][8]RGB{
	{{0x4F, 0x8E, 0xF7}, {0xA8, 0x55, 0xF7}, {0xF9, 0x73, 0x16}, {0x22, 0xC5, 0x5E}, {0xEF, 0x44, 0x44}, {0x14, 0xB8, 0xA6}, {0x0E, 0xA5, 0xE9}, {0xEA, 0xB3, 0x08}},
	{{0xEC, 0x48, 0x99}, {0x84, 0xCC, 0x16}, {0xF4, 0x3F, 0x5E}, {0x06, 0xB6, 0xD4}, {0xD9, 0x46, 0xEF}, {0x65, 0xA3, 0x0D}, {0xF5, 0x9E, 0x0B}, {0x6B, 0x72, 0x80}},
	{{0x7C, 0x3A, 0xED}, {0x0D, 0x94, 0x88}, {0xDC, 0x26, 0x26}, {0x2D, 0xD4, 0xBF}, {0xCA, 0x8A, 0x04}, {0x4D, 0x7C, 0x0F}, {0xBE, 0x18, 0x5D}, {0x1D, 0x4E, 0xD8}},
	{{0x9A, 0x33, 0x12}, {0x15, 0x80, 0x3D}, {0x6D, 0x28, 0xD9}, {0x0F, 0x76, 0x6E}, {0x9F, 0x12, 0x39}, {0x3F, 0x3F, 0x46}, {0xB4, 0x53, 0x09}, {0x16, 0x65, 0x34}},
}

// Resolve colors every node under mode and returns the legend driving
// the UI key. nodeTypeConfig supplies the canonical per-source palette
// for ModeSource so categorical and structural coloring agree.
func Resolve(nodes []graph.Node, mode Mode, nodeTypeConfig map[graph.Source]graph.NodeTypeConfig) Result {
	switch mode {
	case ModeConnectivity:
		return gradientByInt(nodes, func(n graph.Node) int { return n.ConnectionCount })
	case ModeTime:
		return gradientByTimestamp(nodes, func(n graph.Node) *int64 { return n.Timestamp })
	case ModeRecency:
		return gradientByTimestamp(nodes, func(n graph.Node) *int64 {
			if n.Memory != nil {
				return n.Memory.LastRecalled
			}
			return n.Timestamp
		})
	case ModeLength:
		return gradientByInt(nodes, func(n graph.Node) int { return n.ValueLength })
	case ModeWordCount:
		return gradientByInt(nodes, func(n graph.Node) int { return n.WordCount })
	case ModeNSDepth:
		return gradientByInt(nodes, func(n graph.Node) int { return n.NSDepth })
	case ModeQValue:
		return gradientByFloat(nodes, func(n graph.Node) (float64, bool) {
			if n.QPattern == nil {
				return 0, false
			}
			return n.QPattern.QValue, true
		})
	case ModeVisits:
		return gradientByInt(nodes, func(n graph.Node) int {
			if n.QPattern == nil {
				return 0
			}
			return n.QPattern.Visits
		})
	case ModeConfidence:
		return gradientByFloat(nodes, func(n graph.Node) (float64, bool) {
			if n.NeuralPattern == nil {
				return 0, false
			}
			return n.NeuralPattern.Confidence, true
		})
	case ModeEffectiveness:
		return gradientByFloat(nodes, func(n graph.Node) (float64, bool) {
			if n.Memory == nil {
				return 0, false
			}
			return n.Memory.Effectiveness, true
		})
	case ModeRecallCount:
		return gradientByInt(nodes, func(n graph.Node) int {
			if n.Memory == nil {
				return 0
			}
			return n.Memory.RecallCount
		})
	case ModeEmbedding:
		return gradientByInt(nodes, func(n graph.Node) int { return n.EmbeddingDim })
	case ModeSuccess:
		return categoricalByKey(nodes, func(n graph.Node) string {
			if n.Trajectory == nil {
				return ""
			}
			if n.Trajectory.Success {
				return "success"
			}
			return "failure"
		}, mode)
	case ModeFoundation:
		return categoricalByKey(nodes, func(n graph.Node) string {
			if n.Memory != nil && n.Memory.IsFoundation {
				return "foundation"
			}
			return "standard"
		}, mode)
	case ModeContentType:
		return categoricalByKey(nodes, func(n graph.Node) string { return string(n.ContentType) }, mode)
	case ModeNamespace:
		return categoricalByKey(nodes, func(n graph.Node) string { return n.Namespace }, mode)
	case ModeState:
		return categoricalByKey(nodes, func(n graph.Node) string {
			if n.QPattern != nil {
				return n.QPattern.State
			}
			if n.StateAction != nil && n.Source == graph.SourceState {
				return n.ID
			}
			return ""
		}, mode)
	case ModeAction:
		return categoricalByKey(nodes, func(n graph.Node) string {
			if n.QPattern != nil {
				return n.QPattern.Action
			}
			if n.StateAction != nil && n.Source == graph.SourceAction {
				return n.ID
			}
			return ""
		}, mode)
	case ModeAgent:
		return categoricalByKey(nodes, func(n graph.Node) string {
			if n.Agent != nil {
				return n.Agent.AgentID
			}
			if n.Trajectory != nil {
				return n.Trajectory.Agent
			}
			return ""
		}, mode)
	case ModeModel:
		return categoricalByKey(nodes, func(n graph.Node) string {
			if n.QPattern != nil {
				return n.QPattern.Model
			}
			return ""
		}, mode)
	case ModeTopologyRole:
		return categoricalByKey(nodes, func(n graph.Node) string {
			if n.Agent != nil {
				return n.Agent.TopologyRole
			}
			return ""
		}, mode)
	case ModeLayer:
		return categoricalByKey(nodes, func(n graph.Node) string {
			if n.Memory != nil {
				return n.Memory.Layer
			}
			return ""
		}, mode)
	case ModeDomain:
		return categoricalByKey(nodes, func(n graph.Node) string {
			if n.Memory != nil {
				return n.Memory.Domain
			}
			return ""
		}, mode)
	case ModeCategory:
		return categoricalByKey(nodes, func(n graph.Node) string {
			if n.NeuralPattern != nil {
				return n.NeuralPattern.Category
			}
			return ""
		}, mode)
	case ModeQuality:
		return compositeQuality(nodes)
	case ModeSource:
		fallthrough
	default:
		return sourceColors(nodes, nodeTypeConfig)
	}
}

// sourceColors is the default mode: one color per Source, taken
// directly from the SSOT node-type config (spec.md §4.9 colors).
func sourceColors(nodes []graph.Node, nodeTypeConfig map[graph.Source]graph.NodeTypeConfig) Result {
	legend := make(map[string]RGB)
	colors := make([]RGB, len(nodes))
	for i, n := range nodes {
		c := hexToRGB(nodeTypeConfig[n.Source].Color)
		colors[i] = c
		legend[string(n.Source)] = c
	}
	return Result{Colors: colors, Legend: legend}
}

// categoricalByKey allocates a palette entry per distinct key value in
// first-seen order, falling back to a deterministic hashed hue once
// the fixed palette's 32 slots are exhausted.
func categoricalByKey(nodes []graph.Node, keyFn func(graph.Node) string, mode Mode) Result {
	order := map[string]int{}
	var keys []string
	colors := make([]RGB, len(nodes))

	resolve := func(key string) RGB {
		i, ok := order[key]
		if !ok {
			i = len(keys)
			order[key] = i
			keys = append(keys, key)
		}
		return paletteColor(i, fmt.Sprintf("%s:%s", mode, key))
	}

	for i, n := range nodes {
		colors[i] = resolve(keyFn(n))
	}

	legend := make(map[string]RGB, len(keys))
	for _, k := range keys {
		legend[k] = resolve(k)
	}
	return Result{Colors: colors, Legend: legend}
}

// paletteColor returns the i-th categorical color, wrapping through
// the 4 palettes of 8 before falling back to a hashed hue (spec.md
// §4.8: "allocate colors from a fixed family of 4 palettes with
// deterministic hashing on miss").
func paletteColor(i int, hashSeed string) RGB {
	const slots = 4 * 8
	if i < slots {
		return categoricalPalettes[i/8][i%8]
	}
	return hashedColor(hashSeed)
}

func hashedColor(seed string) RGB {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	sum := h.Sum32()
	hue := float64(sum % 360)
	return hslToRGB(hue, 0.65, 0.55)
}

// gradientByInt maps an integer field through the shared gradient ramp.
func gradientByInt(nodes []graph.Node, valFn func(graph.Node) int) Result {
	return gradientByFloat(nodes, func(n graph.Node) (float64, bool) { return float64(valFn(n)), true })
}

// gradientByTimestamp maps a nullable millisecond timestamp through the
// gradient ramp; nodes without one get the ramp's minimum color.
func gradientByTimestamp(nodes []graph.Node, valFn func(graph.Node) *int64) Result {
	return gradientByFloat(nodes, func(n graph.Node) (float64, bool) {
		ts := valFn(n)
		if ts == nil {
			return 0, false
		}
		return float64(*ts), true
	})
}

// gradientByFloat implements spec.md §4.8's gradient contract:
// (v-min)/(max-min), with min==max -> 0.
func gradientByFloat(nodes []graph.Node, valFn func(graph.Node) (float64, bool)) Result {
	colors := make([]RGB, len(nodes))
	vals := make([]float64, len(nodes))
	present := make([]bool, len(nodes))

	min, max := 0.0, 0.0
	first := true
	for i, n := range nodes {
		v, ok := valFn(n)
		present[i] = ok
		vals[i] = v
		if !ok {
			continue
		}
		if first || v < min {
			min = v
		}
		if first || v > max {
			max = v
		}
		first = false
	}

	for i := range nodes {
		if !present[i] {
			colors[i] = gradientRamp(0)
			continue
		}
		t := 0.0
		if max > min {
			t = (vals[i] - min) / (max - min)
		}
		colors[i] = gradientRamp(t)
	}

	legend := map[string]RGB{
		"min": gradientRamp(0),
		"mid": gradientRamp(0.5),
		"max": gradientRamp(1),
	}
	return Result{Colors: colors, Legend: legend}
}

// gradientRamp maps t in [0,1] through a blue -> yellow -> red ramp.
func gradientRamp(t float64) RGB {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	hue := 220 - t*220 // 220 (blue) down to 0 (red), passing through yellow
	return hslToRGB(hue, 0.75, 0.5)
}

// compositeQuality takes one quality field per node kind (Q-value for
// Q-patterns, effectiveness for memories, confidence for neural
// patterns, reward for trajectories), min-max normalizes it across the
// nodes and maps it through the gradient ramp; fields are not blended
// within a node (spec.md §4.8: "composite quality" mode).
func compositeQuality(nodes []graph.Node) Result {
	return gradientByFloat(nodes, func(n graph.Node) (float64, bool) {
		switch {
		case n.QPattern != nil:
			return n.QPattern.QValue, true
		case n.Memory != nil:
			return n.Memory.Effectiveness, true
		case n.NeuralPattern != nil:
			return n.NeuralPattern.Confidence, true
		case n.Trajectory != nil:
			return n.Trajectory.Reward, true
		default:
			return 0, false
		}
	})
}

// hexToRGB parses "#RRGGBB"; malformed input (e.g. an "hsl(...)"
// fallback string from the SSOT config) degrades to mid-gray rather
// than erroring, per spec.md §7's "safe default" propagation policy.
func hexToRGB(hex string) RGB {
	if len(hex) != 7 || hex[0] != '#' {
		return RGB{0x80, 0x80, 0x80}
	}
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return RGB{0x80, 0x80, 0x80}
	}
	return RGB{uint8(r), uint8(g), uint8(b)}
}

// hslToRGB converts HSL (hue in degrees, saturation/lightness in
// [0,1]) to 8-bit RGB.
func hslToRGB(h, s, l float64) RGB {
	h = normalizeHue(h)
	c := (1 - absF(2*l-1)) * s
	x := c * (1 - absF(modF(h/60, 2)-1))
	m := l - c/2

	var r1, g1, b1 float64
	switch {
	case h < 60:
		r1, g1, b1 = c, x, 0
	case h < 120:
		r1, g1, b1 = x, c, 0
	case h < 180:
		r1, g1, b1 = 0, c, x
	case h < 240:
		r1, g1, b1 = 0, x, c
	case h < 300:
		r1, g1, b1 = x, 0, c
	default:
		r1, g1, b1 = c, 0, x
	}

	return RGB{
		R: to255(r1 + m),
		G: to255(g1 + m),
		B: to255(b1 + m),
	}
}

func normalizeHue(h float64) float64 {
	for h < 0 {
		h += 360
	}
	for h >= 360 {
		h -= 360
	}
	return h
}

func modF(a, b float64) float64 {
	for a < 0 {
		a += b
	}
	for a >= b {
		a -= b
	}
	return a
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func to255(v float64) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(v*255 + 0.5)
}

// AllModes returns every selectable mode in a stable order, used by
// the settings UI to populate its mode picker (collaborator surface;
// listed here since the Resolver is the single source of truth for
// what modes exist).
func AllModes() []Mode {
	modes := []Mode{
		ModeSource, ModeNamespace, ModeConnectivity, ModeTime, ModeRecency,
		ModeLength, ModeContentType, ModeQValue, ModeVisits, ModeState,
		ModeAction, ModeSuccess, ModeQuality, ModeAgent, ModeModel,
		ModeTopologyRole, ModeFoundation, ModeLayer, ModeEffectiveness,
		ModeRecallCount, ModeDomain, ModeConfidence, ModeCategory,
		ModeWordCount, ModeNSDepth, ModeEmbedding,
	}
	out := make([]Mode, len(modes))
	copy(out, modes)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
