package canopy

import (
	"context"
	"sync/atomic"
	"time"
)

// Presenter is the consuming end of the render handoff. It takes each sealed
// chain, executes it against its Device, and releases it so the logic
// goroutine may submit the next one. A controller has at most one presenter.
type Presenter struct {
	ctrl   *Controller
	dev    Device
	wait   time.Duration
	timer  *time.Timer
	frames atomic.Uint64
	idle   atomic.Uint64
}

// NewPresenter binds dev to the controller's handoff. Panics if the
// controller already has a presenter.
func (c *Controller) NewPresenter(dev Device) *Presenter {
	if dev == nil {
		panic("canopy: presenter requires a device")
	}
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	p := &Presenter{ctrl: c, dev: dev, wait: c.cfg.presentWait(), timer: t}
	if !c.presenter.CompareAndSwap(nil, p) {
		panic("canopy: controller already has a presenter")
	}
	return p
}

// Device returns the presenter's device.
func (p *Presenter) Device() Device { return p.dev }

// Present waits up to wait for a chain, executes it, and releases it. It
// reports whether a frame was presented. Hosts that own the render loop call
// Present from their draw callback with a short or zero wait.
func (p *Presenter) Present(wait time.Duration) bool {
	h := p.ctrl.handoff
	chain := h.take(wait, p.timer)
	if chain == nil {
		p.idle.Add(1)
		return false
	}
	chain.execute(p.dev)
	h.release(chain)
	p.frames.Add(1)
	return true
}

// Run presents frames until ctx ends. Each wait is bounded by the configured
// present wait so cancellation is noticed promptly.
func (p *Presenter) Run(ctx context.Context) {
	wait := p.wait
	if wait <= 0 {
		wait = time.Millisecond
	}
	for ctx.Err() == nil {
		p.Present(wait)
	}
}

// Frames returns the number of chains presented.
func (p *Presenter) Frames() uint64 { return p.frames.Load() }

// IdleWaits returns the number of waits that timed out without a chain.
func (p *Presenter) IdleWaits() uint64 { return p.idle.Load() }
