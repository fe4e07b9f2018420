package engine

import (
	"context"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelai/graphlens/pkg/config"
	"github.com/kestrelai/graphlens/pkg/graph"
	"github.com/kestrelai/graphlens/pkg/testfixture"
)

// scenarioAYAML is spec.md §8's Scenario A: one memory, one Q-pattern,
// one trajectory, one file-sequence row.
const scenarioAYAML = `
memories:
  - id: m1
    content: hello
    memory_type: episodic
    timestamp: 1700000000000
    metadata: "{}"
patterns:
  - state: "edit:.js"
    action: coder
    q_value: 0.8
    visits: 3
    last_update: 1700000000000
trajectories:
  - id: t1
    state: edit_js
    action: coder
    outcome: success
    reward: 1.0
    timestamp: 1700000000000
file_sequences:
  - from_file: a.ts
    to_file: b.ts
    count: 2
`

func newFixtureDB(t *testing.T) string {
	t.Helper()
	s, err := testfixture.Parse([]byte(scenarioAYAML))
	require.NoError(t, err)
	return s.BuildDB(t)
}

func TestEngineBuildSmoke(t *testing.T) {
	path := newFixtureDB(t)
	cfg := config.LoadFromEnv()
	cfg.Store.Path = path

	e := New(path, cfg)
	g, err := e.Build(context.Background(), 0.55, false, 1)
	require.NoError(t, err)
	require.Empty(t, g.Meta.Error)

	assert.NotEmpty(t, g.Nodes)
	for i, n := range g.Nodes {
		assert.Equal(t, i, n.NodeIndex, "spec.md §8 property 1")
	}
	for _, e := range g.Edges {
		assert.NotEqual(t, e.Source, e.Target, "spec.md §8 property 2")
	}

	// Every node source present in Nodes must appear active in the SSOT config.
	seen := map[graph.Source]bool{}
	for _, n := range g.Nodes {
		seen[n.Source] = true
	}
	for src := range seen {
		cfgEntry, ok := g.NodeTypeConfig[src]
		require.True(t, ok)
		assert.True(t, cfgEntry.Active)
	}
}

func TestEngineBuildIsDeterministicAcrossRuns(t *testing.T) {
	path := newFixtureDB(t)
	cfg := config.LoadFromEnv()

	e1 := New(path, cfg)
	g1, err := e1.Build(context.Background(), 0.55, false, 1)
	require.NoError(t, err)

	e2 := New(path, cfg)
	g2, err := e2.Build(context.Background(), 0.55, false, 2)
	require.NoError(t, err)

	require.Equal(t, len(g1.Nodes), len(g2.Nodes))
	for i := range g1.Nodes {
		assert.Equal(t, g1.Nodes[i].ID, g2.Nodes[i].ID, "spec.md §8 property 6 (modulo loadedAt)")
	}
}

func TestEngineBuildCachesByMtimeAndThreshold(t *testing.T) {
	path := newFixtureDB(t)
	cfg := config.LoadFromEnv()
	e := New(path, cfg)

	g1, err := e.Build(context.Background(), 0.55, false, 1)
	require.NoError(t, err)
	g2, err := e.Build(context.Background(), 0.55, false, 2)
	require.NoError(t, err)

	assert.Same(t, g1, g2, "scenario F: identical key must return the same object")
}

func TestEngineBuildMissingStoreIsRenderable(t *testing.T) {
	cfg := config.LoadFromEnv()
	missing := filepath.Join(t.TempDir(), "absent.db")
	e := New(missing, cfg)

	g, err := e.Build(context.Background(), 0.55, false, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, g.Meta.Error)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
}
