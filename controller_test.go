package canopy

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewControllerTree(t *testing.T) {
	c, _ := newTestController(t)
	if c.Root().NumChildren() != 2 {
		t.Fatalf("root children = %d, want 2", c.Root().NumChildren())
	}
	if c.LogicRoot().Parent() != c.Root() || c.RenderRoot().Parent() != c.Root() {
		t.Error("logic and render subtrees should hang off the root")
	}
	if !c.LogicRoot().Attached() || !c.RenderRoot().Attached() {
		t.Error("subtrees should be attached")
	}
	if c.Events().Free() != c.Config().EventPoolWarm {
		t.Errorf("event pool Free = %d, want %d", c.Events().Free(), c.Config().EventPoolWarm)
	}
	if c.InputTarget() != c.LogicRoot() {
		t.Error("input target should default to the logic root")
	}
}

func TestNewControllerInvalidConfigPanics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrameIntervalMs = -1
	expectPanic(t, "invalid config", func() { NewController(cfg) })
}

func TestTickStageOrder(t *testing.T) {
	c, _ := newTestController(t)
	dev := &recordDevice{}
	p := c.NewPresenter(dev)

	var stages []string
	n := NewNode("n")
	n.OnEvent = func(*Event) bool { stages = append(stages, "dispatch"); return true }
	n.OnUpdate = func(int64) bool { stages = append(stages, "update"); return false }
	c.LogicRoot().AddNode(n)
	c.RenderRoot().OnRender = func(chain *CommandChain) {
		stages = append(stages, "render")
		chain.Append(CommandFunc(func(Device) { stages = append(stages, "execute") }))
	}

	n.SendUp(EventUser)
	if err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !p.Present(time.Second) {
		t.Fatal("expected a frame")
	}
	want := "dispatch,update,render,execute"
	if got := strings.Join(stages, ","); got != want {
		t.Errorf("stages = %q, want %q", got, want)
	}
}

func TestTickFlipsPhase(t *testing.T) {
	c, _ := newTestController(t)
	dev := &recordDevice{}
	p := c.NewPresenter(dev)
	var phases []Phase
	c.RenderRoot().OnRender = func(chain *CommandChain) { phases = append(phases, chain.Phase()) }

	for i := 0; i < 4; i++ {
		if err := c.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
		p.Present(time.Second)
	}
	want := []Phase{PhaseA, PhaseB, PhaseA, PhaseB}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phases = %v, want %v", phases, want)
		}
	}
	if len(dev.frames) != 4 || dev.frames[3] != 3 {
		t.Errorf("device frames = %v, want ticks 0..3", dev.frames)
	}
}

func TestTickThrottlesToFrameInterval(t *testing.T) {
	c, clock := newTestController(t)
	p := c.NewPresenter(&recordDevice{})

	for i := 0; i < 5; i++ {
		if err := c.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
		p.Present(time.Second)
		if c.FrameDelta() != 10 {
			t.Errorf("tick %d: FrameDelta = %d, want 10", i, c.FrameDelta())
		}
	}
	if c.TotalElapsed() != 50 {
		t.Errorf("TotalElapsed = %d, want 50", c.TotalElapsed())
	}
	if clock.Now() != 50*time.Millisecond {
		t.Errorf("clock = %v, want 50ms slept", clock.Now())
	}
}

func TestTickSlowFrameUsesRealDelta(t *testing.T) {
	c, clock := newTestController(t)
	p := c.NewPresenter(&recordDevice{})

	var deltas []int64
	n := NewNode("n")
	n.OnUpdate = func(dt int64) bool {
		deltas = append(deltas, dt)
		clock.Advance(25 * time.Millisecond)
		return false
	}
	c.LogicRoot().AddNode(n)

	for i := 0; i < 3; i++ {
		c.Tick(context.Background())
		p.Present(time.Second)
	}
	if deltas[0] != 10 || deltas[1] != 25 || deltas[2] != 25 {
		t.Errorf("deltas = %v, want [10 25 25]", deltas)
	}
}

func TestTickClampsLongStall(t *testing.T) {
	c, clock := newTestController(t)
	p := c.NewPresenter(&recordDevice{})
	c.Tick(context.Background())
	p.Present(time.Second)

	clock.Advance(5 * time.Second)
	c.Tick(context.Background())
	p.Present(time.Second)
	if c.FrameDelta() != c.Config().MaxFrameDeltaMs {
		t.Errorf("FrameDelta = %d, want clamp %d", c.FrameDelta(), c.Config().MaxFrameDeltaMs)
	}

	c.Tick(context.Background())
	p.Present(time.Second)
	if c.FrameDelta() != 10 {
		t.Errorf("FrameDelta after clamp = %d, want 10", c.FrameDelta())
	}
}

func TestTickBlocksUntilPresented(t *testing.T) {
	c, _ := newTestController(t)
	p := c.NewPresenter(&recordDevice{})
	if err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !c.handoff.inFlight() {
		t.Fatal("first chain should be in flight")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Tick(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Tick err = %v, want deadline exceeded while the presenter lags", err)
	}
	if c.Phase() != PhaseB {
		t.Error("phase should not flip when the handoff fails")
	}

	p.Present(time.Second)
	if err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !p.Present(time.Second) || p.Frames() != 2 {
		t.Errorf("Frames = %d, want 2", p.Frames())
	}
}

func TestSurfaceBroadcast(t *testing.T) {
	c, _ := newTestController(t)
	p := c.NewPresenter(&recordDevice{})

	var calls []string
	n := NewNode("n")
	n.OnSurfaceCreated = func(dc any) { calls = append(calls, "created:"+dc.(string)) }
	n.OnSurfaceChanged = func(w, h int) {
		if w != 640 || h != 480 {
			t.Errorf("size = %dx%d, want 640x480", w, h)
		}
		calls = append(calls, "changed")
	}
	n.OnEvent = func(ev *Event) bool {
		if ev.Type == EventSurfaceReady {
			calls = append(calls, "ready")
		}
		return false
	}
	c.LogicRoot().AddNode(n)

	c.SurfaceCreated("gl")
	c.SurfaceChanged(320, 240)
	c.SurfaceChanged(640, 480)
	c.Tick(context.Background())
	p.Present(time.Second)
	c.Tick(context.Background())
	p.Present(time.Second)

	want := "created:gl,changed,ready"
	if got := strings.Join(calls, ","); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
}

func TestPauseResumeBroadcastOrder(t *testing.T) {
	c, _ := newTestController(t)
	var calls []string
	parent := NewNode("p")
	child := NewNode("c")
	parent.AddNode(child)
	parent.OnResume = func() { calls = append(calls, "resume:p") }
	child.OnResume = func() { calls = append(calls, "resume:c") }
	parent.OnPause = func() { calls = append(calls, "pause:p") }
	child.OnPause = func() { calls = append(calls, "pause:c") }
	c.LogicRoot().AddNode(parent)

	c.broadcastResume()
	c.broadcastPause()
	want := "resume:p,resume:c,pause:c,pause:p"
	if got := strings.Join(calls, ","); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
}

func TestStatsReflectLastTick(t *testing.T) {
	c, _ := newTestController(t)
	p := c.NewPresenter(&recordDevice{})
	c.RenderRoot().OnRender = func(chain *CommandChain) {
		chain.Append(nameCmd("a"))
		chain.Append(nameCmd("b"))
	}
	n := NewNode("n")
	n.OnUpdate = func(int64) bool { return true }
	c.LogicRoot().AddNode(n)
	n.SendUp(EventUser)

	c.Tick(context.Background())
	p.Present(time.Second)

	s := c.Stats()
	if s.Tick != 0 || s.Dispatched != 1 || s.Commands != 2 || !s.Changed || s.Phase != PhaseA {
		t.Errorf("stats = %+v", s)
	}
	if s.FrameDelta != 10 || s.Elapsed != 10 {
		t.Errorf("delta/elapsed = %d/%d, want 10/10", s.FrameDelta, s.Elapsed)
	}
}

func TestSecondPresenterPanics(t *testing.T) {
	c, _ := newTestController(t)
	c.NewPresenter(&recordDevice{})
	expectPanic(t, "second presenter", func() { c.NewPresenter(&recordDevice{}) })
	expectPanic(t, "nil device", func() { c.NewPresenter(nil) })
}

func TestPresentIdleWait(t *testing.T) {
	c, _ := newTestController(t)
	p := c.NewPresenter(&recordDevice{})
	if p.Present(0) {
		t.Error("Present with nothing queued should report no frame")
	}
	if p.Present(5 * time.Millisecond) {
		t.Error("bounded wait should time out")
	}
	if p.IdleWaits() != 2 {
		t.Errorf("IdleWaits = %d, want 2", p.IdleWaits())
	}
}
