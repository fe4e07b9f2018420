package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelai/graphlens/pkg/graph"
)

func ts(ms int64) *int64 { return &ms }

func TestResolveSourceModeUsesNodeTypeConfig(t *testing.T) {
	nodes := []graph.Node{{Source: graph.SourceMemory}, {Source: graph.SourceAgent}}
	cfg := graph.BuildNodeTypeConfig(nodes)

	res := Resolve(nodes, ModeSource, cfg)
	require.Len(t, res.Colors, 2)
	assert.Equal(t, hexToRGB(cfg[graph.SourceMemory].Color), res.Colors[0])
	assert.Equal(t, hexToRGB(cfg[graph.SourceAgent].Color), res.Colors[1])
	assert.Contains(t, res.Legend, string(graph.SourceMemory))
}

func TestGradientMinEqualsMaxIsZero(t *testing.T) {
	nodes := []graph.Node{{ConnectionCount: 5}, {ConnectionCount: 5}}
	res := Resolve(nodes, ModeConnectivity, nil)
	assert.Equal(t, res.Colors[0], res.Colors[1])
	assert.Equal(t, gradientRamp(0), res.Colors[0])
}

func TestGradientSpansMinToMax(t *testing.T) {
	nodes := []graph.Node{{ConnectionCount: 0}, {ConnectionCount: 10}, {ConnectionCount: 5}}
	res := Resolve(nodes, ModeConnectivity, nil)
	assert.Equal(t, gradientRamp(0), res.Colors[0])
	assert.Equal(t, gradientRamp(1), res.Colors[1])
	assert.Equal(t, gradientRamp(0.5), res.Colors[2])
}

func TestCategoricalSameKeySameColor(t *testing.T) {
	nodes := []graph.Node{
		{Namespace: "a"}, {Namespace: "b"}, {Namespace: "a"},
	}
	res := Resolve(nodes, ModeNamespace, nil)
	assert.Equal(t, res.Colors[0], res.Colors[2])
	assert.NotEqual(t, res.Colors[0], res.Colors[1])
}

func TestCategoricalFallsBackToHashAfterPaletteExhausted(t *testing.T) {
	var nodes []graph.Node
	for i := 0; i < 40; i++ {
		nodes = append(nodes, graph.Node{Namespace: string(rune('a' + i))})
	}
	res := Resolve(nodes, ModeNamespace, nil)
	require.Len(t, res.Colors, 40)
	// The 33rd distinct value (index 32) falls past the 32-slot fixed
	// palette and must use the hashed fallback.
	assert.Equal(t, hashedColor("namespace:"+string(rune('a'+32))), res.Colors[32])
}

func TestSuccessModeDistinguishesOutcome(t *testing.T) {
	nodes := []graph.Node{
		{Trajectory: &graph.TrajectoryFields{Success: true}},
		{Trajectory: &graph.TrajectoryFields{Success: false}},
	}
	res := Resolve(nodes, ModeSuccess, nil)
	assert.NotEqual(t, res.Colors[0], res.Colors[1])
}

func TestRecencyPrefersLastRecalledOverTimestamp(t *testing.T) {
	nodes := []graph.Node{
		{Timestamp: ts(100), Memory: &graph.MemoryFields{LastRecalled: ts(900)}},
		{Timestamp: ts(900), Memory: &graph.MemoryFields{LastRecalled: ts(100)}},
	}
	res := Resolve(nodes, ModeRecency, nil)
	assert.Equal(t, gradientRamp(1), res.Colors[0])
	assert.Equal(t, gradientRamp(0), res.Colors[1])
}

func TestHexToRGBMalformedDegradesToGray(t *testing.T) {
	assert.Equal(t, RGB{0x80, 0x80, 0x80}, hexToRGB("hsl(120, 65%, 55%)"))
	assert.Equal(t, RGB{0x80, 0x80, 0x80}, hexToRGB(""))
}

func TestHexToRGBRoundTrip(t *testing.T) {
	assert.Equal(t, RGB{0x4F, 0x8E, 0xF7}, hexToRGB("#4F8EF7"))
}

func TestAllModesIsSortedAndComplete(t *testing.T) {
	modes := AllModes()
	require.True(t, len(modes) >= 25)
	for i := 1; i < len(modes); i++ {
		assert.True(t, modes[i-1] < modes[i])
	}
}
