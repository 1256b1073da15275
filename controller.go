package canopy

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// FrameStats describes the most recent tick.
type FrameStats struct {
	Tick       uint64
	FrameDelta int64
	Elapsed    int64
	Dispatched int
	Commands   int
	Changed    bool
	Phase      Phase
}

// Controller owns the per-engine state the frame pipeline runs on: the
// monotonic frame clock, the pending-event queue, the pools, the node tree,
// the two command chains and the render handoff between the logic and
// presentation goroutines.
//
// Tick, the tree, and everything reachable from hooks belong to the logic
// goroutine. NewEvent, posting, input injection and the surface callbacks are
// safe from any goroutine.
type Controller struct {
	ID    uuid.UUID
	cfg   Config
	log   *slog.Logger
	clock Clock

	root   *Node
	logic  *Node
	render *Node

	events    *Pool[*Event]
	sequences *Pool[*Node]
	delayed   *Pool[*delayedPost]
	pending   mailbox

	// Logic goroutine state
	totalElapsed atomic.Int64
	frameDelta   int64
	last         time.Duration
	phase        Phase
	tick         uint64
	chains       [2]*CommandChain

	handoff       *renderHandoff
	gate          pauseGate
	resetBaseline atomic.Bool
	stopped       atomic.Bool
	presenter     atomic.Pointer[Presenter]

	statsMu sync.Mutex
	stats   FrameStats

	surfaceMu      sync.Mutex
	surfaceCreated bool
	surfaceDC      any
	surfaceResized bool
	surfaceW       int
	surfaceH       int

	inputTarget atomic.Pointer[Node]
	debug       bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The controller adds an "engine" attribute.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithClock replaces the system clock, typically with a ManualClock in tests.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// NewController creates a controller with a root node holding a "logic" and a
// "render" subtree. Pools are warmed per cfg. Panics if cfg is invalid; use
// Config.Validate first for user-supplied settings.
func NewController(cfg Config, opts ...Option) *Controller {
	if err := cfg.Validate(); err != nil {
		panic(err.Error())
	}
	c := &Controller{
		ID:        uuid.New(),
		cfg:       cfg,
		log:       slog.Default(),
		events:    newEventPool(),
		delayed:   newDelayedPool(),
		handoff:   newRenderHandoff(),
		sequences: newSequencePool(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = NewSystemClock()
	}
	c.log = c.log.With("engine", c.ID.String())

	c.events.Warm(cfg.EventPoolWarm)
	c.sequences.Warm(cfg.SequencePoolWarm)

	for i := range c.chains {
		c.chains[i] = NewCommandChain(Phase(i), cfg.CommandCapacity)
		c.chains[i].owner = c.handoff
	}

	c.root = NewNode("root")
	c.root.ctrl = c
	c.logic = NewNode("logic")
	c.render = NewNode("render")
	c.root.AddNode(c.logic)
	c.root.AddNode(c.render)
	c.inputTarget.Store(c.logic)

	c.last = c.clock.Now()
	c.SetDebugMode(cfg.Debug)
	return c
}

// Root returns the tree root. Its children are LogicRoot and RenderRoot.
func (c *Controller) Root() *Node { return c.root }

// LogicRoot returns the subtree updated every tick.
func (c *Controller) LogicRoot() *Node { return c.logic }

// RenderRoot returns the subtree traversed to build command chains.
func (c *Controller) RenderRoot() *Node { return c.render }

// Config returns the controller's configuration.
func (c *Controller) Config() Config { return c.cfg }

// Logger returns the controller's logger.
func (c *Controller) Logger() *slog.Logger { return c.log }

// Clock returns the controller's clock.
func (c *Controller) Clock() Clock { return c.clock }

// TotalElapsed returns engine time in milliseconds. It only advances by tick
// deltas, so time spent paused is not counted.
func (c *Controller) TotalElapsed() int64 { return c.totalElapsed.Load() }

// FrameDelta returns the delta of the current or most recent tick.
func (c *Controller) FrameDelta() int64 { return c.frameDelta }

// Phase returns the phase the next chain will be built in.
func (c *Controller) Phase() Phase { return c.phase }

// Stats returns a snapshot of the most recent tick.
func (c *Controller) Stats() FrameStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// Pending returns the number of queued events.
func (c *Controller) Pending() int { return c.pending.Len() }

// Events returns the controller's event pool.
func (c *Controller) Events() *Pool[*Event] { return c.events }

// Sequences returns the controller's sequence node pool.
func (c *Controller) Sequences() *Pool[*Node] { return c.sequences }

// SetDebugMode enables or disables debug mode. When enabled, disposed-node
// use panics, tree depth and child count warnings are logged, and per-tick
// timing stats are logged at debug level.
func (c *Controller) SetDebugMode(enabled bool) {
	c.debug = enabled
	setDebug(enabled, c.log)
}

// NewEvent obtains a cleared event of type typ from the pool.
func (c *Controller) NewEvent(typ EventType) *Event {
	ev := c.events.Obtain()
	ev.Type = typ
	return ev
}

// ObtainSequence returns a pooled one-shot sequence node. It is recycled
// automatically on the tick after it ends and is detached, so it must not be
// referenced after that.
func (c *Controller) ObtainSequence(name string, duration int64) *Node {
	n := c.sequences.Obtain()
	n.ID = nextNodeID()
	n.Name = name
	n.Seq.Duration = duration
	n.Seq.OneShot = true
	n.Seq.pooled = true
	return n
}

func newSequencePool() *Pool[*Node] {
	return NewPool(func() *Node { return NewSequence("", 0) }, resetSequenceNode)
}

func resetSequenceNode(n *Node) {
	n.RemoveChildren()
	n.clearHooks()
	n.Name = ""
	n.UserData = nil
	n.Visible = true
	n.ZIndex = 0
	n.ctrl = nil
	n.disposed = false
	*n.Seq = Sequence{node: n}
	n.Seq.clearTimes()
}

// --- Host lifecycle ---

// SurfaceCreated records a new device context. Every node receives
// OnSurfaceCreated at the start of the next tick, followed by an
// EventSurfaceReady posted down from the root.
func (c *Controller) SurfaceCreated(dc any) {
	c.surfaceMu.Lock()
	c.surfaceCreated = true
	c.surfaceDC = dc
	c.surfaceMu.Unlock()
}

// SurfaceChanged records a new surface size, broadcast at the start of the
// next tick. Repeated calls before that tick coalesce.
func (c *Controller) SurfaceChanged(width, height int) {
	c.surfaceMu.Lock()
	c.surfaceResized = true
	c.surfaceW, c.surfaceH = width, height
	c.surfaceMu.Unlock()
}

func (c *Controller) applySurface() {
	c.surfaceMu.Lock()
	created, dc := c.surfaceCreated, c.surfaceDC
	resized, w, h := c.surfaceResized, c.surfaceW, c.surfaceH
	c.surfaceCreated, c.surfaceDC, c.surfaceResized = false, nil, false
	c.surfaceMu.Unlock()

	if created {
		c.log.Info("surface created")
		c.root.Visit(func(n *Node) {
			if n.OnSurfaceCreated != nil {
				n.OnSurfaceCreated(dc)
			}
		}, PreOrder)
		c.root.SendDown(EventSurfaceReady)
	}
	if resized {
		c.log.Info("surface changed", "width", w, "height", h)
		c.root.Visit(func(n *Node) {
			if n.OnSurfaceChanged != nil {
				n.OnSurfaceChanged(w, h)
			}
		}, PreOrder)
	}
}

func (c *Controller) broadcastResume() {
	c.root.Visit(func(n *Node) {
		if n.OnResume != nil {
			n.OnResume()
		}
	}, PreOrder)
}

func (c *Controller) broadcastPause() {
	c.root.Visit(func(n *Node) {
		if n.OnPause != nil {
			n.OnPause()
		}
	}, PostOrder)
}

// --- Tick ---

// Tick advances the engine by one frame: it throttles to the target interval,
// dispatches queued events, updates the logic subtree, builds the current
// phase's chain from the render subtree, and hands the chain to the
// presenter. The handoff blocks while the presenter is still executing the
// previous chain. Returns ctx.Err() if ctx ends during the handoff; the
// built chain is then discarded.
func (c *Controller) Tick(ctx context.Context) error {
	chain := c.buildFrame(ctx)
	if err := c.handoff.submit(ctx, chain); err != nil {
		return err
	}
	c.phase = c.phase.Other()
	c.tick++
	return nil
}

// buildFrame runs the first four tick stages and returns the sealed chain.
func (c *Controller) buildFrame(ctx context.Context) *CommandChain {
	c.applySurface()
	c.advanceClock(ctx)

	var stats debugStats
	var t0 time.Time
	if c.debug {
		t0 = time.Now()
	}

	dispatched := c.dispatchPending()

	if c.debug {
		stats.dispatchTime = time.Since(t0)
		t0 = time.Now()
	}

	changed := c.logic.update(c, c.frameDelta)

	if c.debug {
		stats.updateTime = time.Since(t0)
		t0 = time.Now()
	}

	chain := c.chains[c.phase]
	chain.begin(c.phase, c.tick)
	c.traverse(c.render, chain)
	chain.seal()

	if c.debug {
		stats.buildTime = time.Since(t0)
		stats.commandCount = chain.Len()
		stats.eventCount = dispatched
		c.debugLog(stats)
	}

	c.statsMu.Lock()
	c.stats = FrameStats{
		Tick:       c.tick,
		FrameDelta: c.frameDelta,
		Elapsed:    c.totalElapsed.Load(),
		Dispatched: dispatched,
		Commands:   chain.Len(),
		Changed:    changed,
		Phase:      c.phase,
	}
	c.statsMu.Unlock()
	return chain
}

// advanceClock computes the frame delta, sleeping away the rest of the target
// interval when the tick is early.
func (c *Controller) advanceClock(ctx context.Context) {
	now := c.clock.Now()
	if c.resetBaseline.Swap(false) {
		c.last = now
	}
	elapsed := now - c.last
	if target := c.cfg.frameInterval(); elapsed < target {
		c.clock.Sleep(ctx, target-elapsed)
		elapsed = target
	}
	delta := elapsed.Milliseconds()
	if maxDelta := c.cfg.MaxFrameDeltaMs; maxDelta > 0 && delta > maxDelta {
		delta = maxDelta
		c.last = c.clock.Now()
	} else {
		c.last += time.Duration(delta) * time.Millisecond
	}
	c.frameDelta = delta
	c.totalElapsed.Add(delta)
}
