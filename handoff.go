package canopy

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// renderHandoff moves sealed chains from the logic goroutine to the
// presentation goroutine. A single token bounds the pipeline: the logic
// goroutine takes it to submit a chain and the presenter returns it only after
// executing that chain, so the logic goroutine is never more than one frame
// ahead.
type renderHandoff struct {
	tokens chan struct{}
	frames chan *CommandChain

	// busy[p] is set from submit until the presenter releases the phase p
	// chain.
	busy [2]atomic.Bool

	submitted atomic.Uint64
	presented atomic.Uint64
}

func newRenderHandoff() *renderHandoff {
	h := &renderHandoff{
		tokens: make(chan struct{}, 1),
		frames: make(chan *CommandChain, 1),
	}
	h.tokens <- struct{}{}
	return h
}

// submit blocks until the previous chain has been executed, then hands chain
// over. Returns ctx.Err() if ctx ends first.
func (h *renderHandoff) submit(ctx context.Context, chain *CommandChain) error {
	select {
	case <-h.tokens:
	case <-ctx.Done():
		return ctx.Err()
	}
	h.busy[chain.phase].Store(true)
	h.frames <- chain
	h.submitted.Add(1)
	return nil
}

// take waits up to wait for a chain. timer is reused between calls and must be
// stopped and drained.
func (h *renderHandoff) take(wait time.Duration, timer *time.Timer) *CommandChain {
	select {
	case chain := <-h.frames:
		return chain
	default:
	}
	if wait <= 0 {
		return nil
	}
	timer.Reset(wait)
	select {
	case chain := <-h.frames:
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		return chain
	case <-timer.C:
		return nil
	}
}

// release returns ownership of chain's phase and the pipeline token.
func (h *renderHandoff) release(chain *CommandChain) {
	h.busy[chain.phase].Store(false)
	h.presented.Add(1)
	h.tokens <- struct{}{}
}

// inFlight reports whether a chain has been submitted and not yet released.
func (h *renderHandoff) inFlight() bool {
	return h.busy[PhaseA].Load() || h.busy[PhaseB].Load()
}

// --- Pause gate ---

// pauseGate blocks the logic goroutine between ticks while paused.
type pauseGate struct {
	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

// pause closes the gate. Reports whether the state changed.
func (g *pauseGate) pause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		return false
	}
	g.paused = true
	g.resume = make(chan struct{})
	return true
}

// release opens the gate. Reports whether the state changed.
func (g *pauseGate) release() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		return false
	}
	g.paused = false
	close(g.resume)
	return true
}

func (g *pauseGate) isPaused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// wait blocks while the gate is closed. Returns ctx.Err() if ctx ends first.
func (g *pauseGate) wait(ctx context.Context) error {
	g.mu.Lock()
	if !g.paused {
		g.mu.Unlock()
		return nil
	}
	ch := g.resume
	g.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
