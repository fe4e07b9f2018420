// Package forcesim owns the physics-worker lifecycle that advances
// node positions on each simulation tick (spec.md §4.10: interface
// only, the force-directed algorithm itself is out of scope).
//
// Grounded on the teacher's pkg/gpu worker-lifecycle shape (a owning
// struct with a state flag and a background goroutine communicating
// over channels, guarded by a mutex for cross-thread field access) and
// on kmeans.go's iterative convergence loop, adapted here into a
// pairwise-repulsion + spring integrator for the fallback path.
package forcesim

import (
	"math"
	"sync"
	"time"

	"github.com/kestrelai/graphlens/pkg/graph"
	"github.com/kestrelai/graphlens/pkg/logx"
)

var log = logx.Get("forcesim")

// State is the controller's lifecycle state machine (spec.md §4.10,
// §5: "cooperatively concurrent... owns one background worker").
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateRunning      State = "running"
	StatePaused       State = "paused"
	StateDisposed     State = "disposed"
)

// Tick is one frame of simulation output: the flattened position
// buffer `[x0, y0, x1, y1, ...]` and the cooling factor alpha in
// [0, 1] (spec.md §4.10).
type Tick struct {
	Positions []float64
	Alpha     float64
}

// Config controls the fallback integrator's physical constants. The
// zero value is invalid; use DefaultConfig.
type Config struct {
	RepulsionStrength float64
	SpringStrength    float64
	SpringLength      float64
	AlphaDecay        float64
	AlphaMin          float64
	TickInterval      time.Duration
}

// DefaultConfig mirrors common force-directed layout defaults (d3-force-ish).
func DefaultConfig() Config {
	return Config{
		RepulsionStrength: 900,
		SpringStrength:    0.08,
		SpringLength:      60,
		AlphaDecay:        1 - math.Pow(0.001, 1.0/300),
		AlphaMin:          0.001,
		TickInterval:      16 * time.Millisecond,
	}
}

// Controller is the physics worker lifecycle owner. There is no real
// worker thread in this Go port (spec.md §4.10's "parallel worker" is
// a browser-side Web Worker in the original system); Controller always
// runs the documented fallback path, since a goroutine+timer pairwise
// integrator is "functionally equivalent" per spec.
type Controller struct {
	mu    sync.Mutex
	state State
	cfg   Config

	nodes []graph.Node
	edges []graph.Edge
	vx, vy []float64
	pinned []bool
	alpha  float64

	subscribers []func(Tick)
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// New creates a Controller in the idle state.
func New(cfg Config) *Controller {
	return &Controller{state: StateIdle, cfg: cfg}
}

// State reports the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetData (re)initializes the worker with a fresh node/edge set,
// discarding any prior velocity and pin state (spec.md §4.10:
// "setData(nodes, edges) (re)initializes the worker").
func (c *Controller) SetData(nodes []graph.Node, edges []graph.Edge) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateInitializing
	c.nodes = nodes
	c.edges = edges
	c.vx = make([]float64, len(nodes))
	c.vy = make([]float64, len(nodes))
	c.pinned = make([]bool, len(nodes))
	c.alpha = 1
	c.state = StateIdle
}

// Start begins ticking on a background goroutine; a no-op if already
// running.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.state == StateRunning || c.state == StateDisposed {
		c.mu.Unlock()
		return
	}
	c.state = StateRunning
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	interval := c.cfg.TickInterval
	n := len(c.nodes)
	c.mu.Unlock()

	log.Info("force simulation started", "nodes", n, "interval", interval)
	c.wg.Add(1)
	go c.run(stopCh, interval)
}

// Stop halts ticking. Any tick already in flight completes before Stop
// returns (spec.md §5: "any tick already in flight is still applied
// before the controller considers itself stopped").
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	c.state = StatePaused
	close(c.stopCh)
	c.mu.Unlock()

	c.wg.Wait()
}

// Restart resets alpha to the given value and resumes ticking.
func (c *Controller) Restart(alpha float64) {
	c.mu.Lock()
	c.alpha = alpha
	c.mu.Unlock()
	c.Start()
}

// UpdateConfig merges non-zero fields of partial into the running
// configuration, taking effect on the next tick.
func (c *Controller) UpdateConfig(partial Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if partial.RepulsionStrength != 0 {
		c.cfg.RepulsionStrength = partial.RepulsionStrength
	}
	if partial.SpringStrength != 0 {
		c.cfg.SpringStrength = partial.SpringStrength
	}
	if partial.SpringLength != 0 {
		c.cfg.SpringLength = partial.SpringLength
	}
	if partial.AlphaDecay != 0 {
		c.cfg.AlphaDecay = partial.AlphaDecay
	}
	if partial.AlphaMin != 0 {
		c.cfg.AlphaMin = partial.AlphaMin
	}
	if partial.TickInterval != 0 {
		c.cfg.TickInterval = partial.TickInterval
	}
}

// PinNode fixes node i at (x, y); the integrator skips it during
// force accumulation.
func (c *Controller) PinNode(i int, x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.nodes) {
		return
	}
	c.pinned[i] = true
	c.nodes[i].X, c.nodes[i].Y = x, y
}

// UnpinNode releases a previously pinned node back into the simulation.
func (c *Controller) UnpinNode(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.pinned) {
		return
	}
	c.pinned[i] = false
}

// Subscribe registers a tick listener, invoked synchronously in
// registration order on every tick (spec.md §5: "Tick messages from
// the worker are processed in arrival order; the controller never
// coalesces them").
func (c *Controller) Subscribe(fn func(Tick)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Dispose permanently stops the controller; it cannot be restarted.
func (c *Controller) Dispose() {
	c.Stop()
	c.mu.Lock()
	c.state = StateDisposed
	c.mu.Unlock()
}

func (c *Controller) run(stopCh chan struct{}, interval time.Duration) {
	defer c.wg.Done()
	if interval <= 0 {
		interval = DefaultConfig().TickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			tick := c.step()
			c.mu.Lock()
			subs := append([]func(Tick){}, c.subscribers...)
			alpha := c.alpha
			c.mu.Unlock()
			for _, fn := range subs {
				fn(tick)
			}
			if alpha <= c.alphaMin() {
				c.mu.Lock()
				c.state = StatePaused
				c.mu.Unlock()
				return
			}
		}
	}
}

func (c *Controller) alphaMin() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.AlphaMin
}

// step advances the simulation by one tick using a pairwise-repulsion
// + spring integrator (spec.md §4.10 fallback path) and writes
// positions back into the Node records.
func (c *Controller) step() Tick {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.nodes)
	if n == 0 {
		return Tick{Alpha: c.alpha}
	}

	fx := make([]float64, n)
	fy := make([]float64, n)

	for i := 0; i < n; i++ {
		if c.pinned[i] {
			continue
		}
		for j := i + 1; j < n; j++ {
			if c.pinned[j] {
				continue
			}
			dx := c.nodes[i].X - c.nodes[j].X
			dy := c.nodes[i].Y - c.nodes[j].Y
			distSq := dx*dx + dy*dy
			if distSq < 0.01 {
				distSq = 0.01
			}
			force := c.cfg.RepulsionStrength / distSq
			dist := math.Sqrt(distSq)
			fx[i] += force * dx / dist
			fy[i] += force * dy / dist
			fx[j] -= force * dx / dist
			fy[j] -= force * dy / dist
		}
	}

	for _, e := range c.edges {
		if e.Source < 0 || e.Source >= n || e.Target < 0 || e.Target >= n {
			continue
		}
		dx := c.nodes[e.Target].X - c.nodes[e.Source].X
		dy := c.nodes[e.Target].Y - c.nodes[e.Source].Y
		dist := math.Sqrt(dx*dx + dy*dy)
		if dist < 0.01 {
			dist = 0.01
		}
		delta := dist - c.cfg.SpringLength
		force := c.cfg.SpringStrength * delta
		ux, uy := dx/dist, dy/dist
		if !c.pinned[e.Source] {
			fx[e.Source] += force * ux
			fy[e.Source] += force * uy
		}
		if !c.pinned[e.Target] {
			fx[e.Target] -= force * ux
			fy[e.Target] -= force * uy
		}
	}

	positions := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		if !c.pinned[i] {
			c.vx[i] = (c.vx[i] + fx[i]*c.alpha) * 0.6
			c.vy[i] = (c.vy[i] + fy[i]*c.alpha) * 0.6
			c.nodes[i].X += c.vx[i]
			c.nodes[i].Y += c.vy[i]
		}
		positions[2*i] = c.nodes[i].X
		positions[2*i+1] = c.nodes[i].Y
	}

	c.alpha -= c.alpha * c.cfg.AlphaDecay
	if c.alpha < 0 {
		c.alpha = 0
	}

	return Tick{Positions: positions, Alpha: c.alpha}
}
