package forcesim

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelai/graphlens/pkg/graph"
)

func fixtureNodes(n int) []graph.Node {
	nodes := make([]graph.Node, n)
	for i := range nodes {
		nodes[i] = graph.Node{ID: "n", NodeIndex: i, X: float64(i) * 10, Y: 0}
	}
	return nodes
}

func TestControllerLifecycleTransitions(t *testing.T) {
	c := New(DefaultConfig())
	assert.Equal(t, StateIdle, c.State())

	c.SetData(fixtureNodes(4), nil)
	assert.Equal(t, StateIdle, c.State())

	c.Start()
	assert.Equal(t, StateRunning, c.State())

	c.Stop()
	assert.Equal(t, StatePaused, c.State())

	c.Dispose()
	assert.Equal(t, StateDisposed, c.State())
}

func TestControllerStartAfterDisposeIsNoop(t *testing.T) {
	c := New(DefaultConfig())
	c.SetData(fixtureNodes(2), nil)
	c.Dispose()
	c.Start()
	assert.Equal(t, StateDisposed, c.State())
}

func TestControllerTicksMoveUnpinnedNodes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickInterval = 2 * time.Millisecond
	c := New(cfg)
	c.SetData(fixtureNodes(3), nil)

	var mu sync.Mutex
	var last Tick
	c.Subscribe(func(tick Tick) {
		mu.Lock()
		last = tick
		mu.Unlock()
	})

	c.Start()
	time.Sleep(20 * time.Millisecond)
	c.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, last.Positions)
	assert.Len(t, last.Positions, 6)
}

func TestControllerPinNodeFreezesPosition(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickInterval = 2 * time.Millisecond
	c := New(cfg)
	c.SetData(fixtureNodes(3), nil)
	c.PinNode(0, 5, 5)

	c.Start()
	time.Sleep(20 * time.Millisecond)
	c.Stop()

	c.mu.Lock()
	x, y := c.nodes[0].X, c.nodes[0].Y
	c.mu.Unlock()
	assert.Equal(t, 5.0, x)
	assert.Equal(t, 5.0, y)
}

func TestControllerUpdateConfigMergesNonZeroFields(t *testing.T) {
	c := New(DefaultConfig())
	c.UpdateConfig(Config{SpringLength: 99})
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, 99.0, c.cfg.SpringLength)
	assert.Equal(t, DefaultConfig().RepulsionStrength, c.cfg.RepulsionStrength)
}
