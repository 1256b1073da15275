package canopy

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrRunning is returned by Start on an engine that is already running.
	ErrRunning = errors.New("canopy: engine already running")
	// ErrStopped is returned by operations that need a running engine.
	ErrStopped = errors.New("canopy: engine not running")
)

// Engine runs a Controller on two long-lived goroutines: the logic goroutine
// calls Tick in a loop and the presentation goroutine executes the chains it
// hands off. The two are coupled only through the render handoff, which keeps
// the logic goroutine at most one frame ahead.
type Engine struct {
	ctrl *Controller
	pres *Presenter

	hostPresents bool
	onCrash      CrashHandler

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithHostPresenter leaves presentation to the host: no presentation goroutine
// is started and the host calls Presenter().Present from its own render loop.
func WithHostPresenter() EngineOption {
	return func(e *Engine) { e.hostPresents = true }
}

// WithCrashHandler installs a handler for panics on engine goroutines. A
// crash stops the engine. Without a handler the panic is re-raised.
func WithCrashHandler(fn CrashHandler) EngineOption {
	return func(e *Engine) { e.onCrash = fn }
}

// NewEngine creates an engine presenting to dev.
func NewEngine(ctrl *Controller, dev Device, opts ...EngineOption) *Engine {
	e := &Engine{ctrl: ctrl}
	for _, opt := range opts {
		opt(e)
	}
	e.pres = ctrl.NewPresenter(dev)
	return e
}

// Controller returns the engine's controller.
func (e *Engine) Controller() *Controller { return e.ctrl }

// Presenter returns the engine's presenter.
func (e *Engine) Presenter() *Presenter { return e.pres }

// Running reports whether the engine goroutines are running.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start broadcasts OnResume to the tree and launches the goroutines. The
// engine runs until Stop or until ctx ends.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrRunning
	}
	c := e.ctrl
	c.stopped.Store(false)
	c.resetBaseline.Store(true)
	c.broadcastResume()
	c.log.Info("engine starting",
		"frame_interval_ms", c.cfg.FrameIntervalMs, "host_presenter", e.hostPresents)

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true

	crash := func(r any, stack []byte) {
		cancel()
		if e.onCrash != nil {
			e.onCrash(r, stack)
		}
	}
	var handler CrashHandler
	if e.onCrash != nil {
		handler = crash
	}

	goSafe(&e.wg, c.log, "logic", handler, func() { e.logicLoop(runCtx) })
	if !e.hostPresents {
		goSafe(&e.wg, c.log, "present", handler, func() { e.pres.Run(runCtx) })
	}
	return nil
}

// Stop cancels both goroutines, waits for them, and broadcasts OnPause.
// Pending delayed posts are dropped. A chain submitted but not yet presented
// is presented after the next Start.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return ErrStopped
	}
	e.cancel()
	e.wg.Wait()
	e.running = false
	c := e.ctrl
	c.stopped.Store(true)
	c.broadcastPause()
	c.log.Info("engine stopped", "ticks", c.tick, "elapsed_ms", c.TotalElapsed())
	return nil
}

// Pause stops the logic goroutine at the next tick boundary. An in-flight tick
// completes first. Engine time does not advance while paused.
func (e *Engine) Pause() {
	if e.ctrl.gate.pause() {
		e.ctrl.log.Info("engine pause requested")
	}
}

// Resume reopens the pause gate. The frame clock baseline is reset before the
// gate opens so the paused interval does not show up as a frame delta.
func (e *Engine) Resume() {
	c := e.ctrl
	c.resetBaseline.Store(true)
	if c.gate.release() {
		c.log.Info("engine resumed")
	}
}

// Paused reports whether a pause is in effect.
func (e *Engine) Paused() bool {
	return e.ctrl.gate.isPaused()
}

func (e *Engine) logicLoop(ctx context.Context) {
	c := e.ctrl
	for ctx.Err() == nil {
		if c.gate.isPaused() {
			c.broadcastPause()
			c.log.Info("engine paused", "elapsed_ms", c.TotalElapsed())
			if err := c.gate.wait(ctx); err != nil {
				return
			}
			c.broadcastResume()
		}
		if err := c.Tick(ctx); err != nil {
			return
		}
	}
}
