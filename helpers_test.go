package canopy

import (
	"io"
	"log/slog"
	"testing"
)

// newTestController returns a controller on a manual clock with a 10ms frame
// interval and a discarding logger.
func newTestController(t *testing.T) (*Controller, *ManualClock) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.FrameIntervalMs = 10
	clock := NewManualClock(0)
	c := NewController(cfg,
		WithClock(clock),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return c, clock
}

// runAt performs the dispatch and update stages of a tick with engine time
// fixed at now.
func runAt(c *Controller, now int64) {
	c.totalElapsed.Store(now)
	c.dispatchPending()
	c.logic.update(c, c.frameDelta)
}

// recordDevice counts frames and remembers the tick of the frame in progress.
type recordDevice struct {
	begun  int
	ended  int
	tick   uint64
	frames []uint64
}

func (d *recordDevice) BeginFrame(tick uint64) {
	d.begun++
	d.tick = tick
	d.frames = append(d.frames, tick)
}

func (d *recordDevice) EndFrame() { d.ended++ }

func expectPanic(t *testing.T, what string, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic for %s, got none", what)
		}
	}()
	fn()
}
