package demo

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/phanxgames/canopy"
	"github.com/phanxgames/canopy/termhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nullDevice struct{ frames int }

func (d *nullDevice) BeginFrame(uint64) {}
func (d *nullDevice) EndFrame()         { d.frames++ }

func testOptions() Options {
	return Options{Width: 100, Height: 30, Boxes: 2, BoxSize: 10, PeriodMs: 100, PulseMs: 50}
}

func newRig(t *testing.T, dev canopy.Device) (*canopy.Controller, *canopy.Presenter) {
	t.Helper()
	cfg := canopy.DefaultConfig()
	cfg.FrameIntervalMs = 10
	ctrl := canopy.NewController(cfg,
		canopy.WithClock(canopy.NewManualClock(0)),
		canopy.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	engine := canopy.NewEngine(ctrl, dev, canopy.WithHostPresenter())
	return ctrl, engine.Presenter()
}

// runUntil ticks and presents until the controller clock reaches ms, calling
// each after every frame.
func runUntil(t *testing.T, ctrl *canopy.Controller, p *canopy.Presenter, ms int64, each func()) {
	t.Helper()
	for ctrl.TotalElapsed() < ms {
		require.NoError(t, ctrl.Tick(context.Background()))
		require.True(t, p.Present(time.Second))
		if each != nil {
			each()
		}
	}
}

func TestBuildAddsSubtrees(t *testing.T) {
	ctrl, _ := newRig(t, &nullDevice{})
	s := Build(ctrl, Null{}, testOptions())

	assert.Same(t, ctrl.LogicRoot(), s.Logic.Parent())
	assert.Same(t, ctrl.RenderRoot(), s.Render.Parent())
	assert.Equal(t, 3, s.Logic.NumChildren(), "two boxes and the pulse")
	assert.Equal(t, 5, s.Render.NumChildren(), "clear, two boxes, pulse, label")
	assert.Equal(t, canopy.NodeTypeSeries, s.Boxes[0].Motion.Type)
	assert.Equal(t, int64(50), s.Boxes[1].Motion.Seq.StartTime())
}

func TestBuildRejectsEmptyScene(t *testing.T) {
	ctrl, _ := newRig(t, &nullDevice{})
	opts := testOptions()
	opts.Boxes = 0
	assert.Panics(t, func() { Build(ctrl, Null{}, opts) })
}

func TestBoxesBounceAndLoop(t *testing.T) {
	dev := &nullDevice{}
	ctrl, p := newRig(t, dev)
	opts := testOptions()
	s := Build(ctrl, Null{}, opts)
	right := opts.Width - opts.BoxSize

	reachedRight := false
	runUntil(t, ctrl, p, 1000, func() {
		for _, b := range s.Boxes {
			require.GreaterOrEqual(t, b.Rect.X, 0.0)
			require.LessOrEqual(t, b.Rect.X, right)
		}
		if s.Boxes[0].Rect.X == right {
			reachedRight = true
		}
	})

	assert.True(t, reachedRight)
	assert.GreaterOrEqual(t, s.Bounces, 6, "each box loops roughly every 200ms")
	assert.Contains(t, s.Status(), "bounces")
	assert.Equal(t, int(ctrl.Stats().Tick), dev.frames)
}

func TestBounceEndsWithStartingValues(t *testing.T) {
	ctrl, p := newRig(t, &nullDevice{})
	s := Build(ctrl, Null{}, testOptions())
	b := s.Boxes[0]

	for s.Bounces == 0 {
		runUntil(t, ctrl, p, ctrl.TotalElapsed()+10, nil)
		require.Less(t, ctrl.TotalElapsed(), int64(1000))
	}
	assert.Equal(t, 0.0, b.Rect.X)
	assert.InDelta(t, cool.R, b.Color.R, 1e-6)
	assert.InDelta(t, cool.B, b.Color.B, 1e-6)
}

func TestPulseSteps(t *testing.T) {
	ctrl, p := newRig(t, &nullDevice{})
	s := Build(ctrl, Null{}, testOptions())

	var colors []canopy.Color
	runUntil(t, ctrl, p, 300, func() {
		if n := len(colors); n == 0 || colors[n-1] != s.PulseColor() {
			colors = append(colors, s.PulseColor())
		}
	})
	assert.GreaterOrEqual(t, s.Pulses, 4)
	require.GreaterOrEqual(t, len(colors), 3)
	assert.Equal(t, dim, colors[0])
	assert.Equal(t, lit, colors[1])
	assert.Equal(t, dim, colors[2])
}

func TestInputCounts(t *testing.T) {
	ctrl, p := newRig(t, &nullDevice{})
	s := Build(ctrl, Null{}, testOptions())

	ctrl.InjectKey(0, 'x')
	ctrl.InjectClick(5, 5, 0)
	runUntil(t, ctrl, p, 20, nil)

	assert.Equal(t, 1, s.Keys)
	assert.Equal(t, 1, s.Clicks)
	assert.Contains(t, s.Status(), "keys 1")
	assert.Contains(t, s.Status(), "clicks 1")
}

func TestRestartKey(t *testing.T) {
	ctrl, p := newRig(t, &nullDevice{})
	s := Build(ctrl, Null{}, testOptions())
	b := s.Boxes[0]

	runUntil(t, ctrl, p, 60, nil)
	out := b.Motion.ChildAt(0).Seq
	require.True(t, out.Started())
	first := out.StartTime()

	ctrl.InjectKey(0, 'r')
	runUntil(t, ctrl, p, ctrl.TotalElapsed()+10, nil)
	assert.True(t, out.Started())
	assert.Greater(t, out.StartTime(), first)
	assert.GreaterOrEqual(t, out.StartTime(), int64(60))
	assert.Equal(t, 1, s.Keys)
}

func TestTerminalPaletteDraws(t *testing.T) {
	screen := tcell.NewSimulationScreen("")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)
	screen.SetSize(100, 30)

	ctrl, p := newRig(t, termhost.NewDevice(screen))
	s := Build(ctrl, Terminal{}, testOptions())
	runUntil(t, ctrl, p, 10, nil)

	b := s.Boxes[1]
	_, _, st, _ := screen.GetContent(int(b.Rect.X), int(b.Rect.Y))
	_, bg, _ := st.Decompose()
	assert.Equal(t, tcell.NewRGBColor(26, 140, 255), bg)

	r, _, _, _ := screen.GetContent(0, 0)
	assert.Equal(t, 'b', r, "status label")
}
