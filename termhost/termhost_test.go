package termhost

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/phanxgames/canopy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("")
	require.NoError(t, s.Init())
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func newHost(t *testing.T) (*Host, *canopy.Controller, tcell.SimulationScreen) {
	t.Helper()
	s := newScreen(t, 20, 10)
	cfg := canopy.DefaultConfig()
	cfg.FrameIntervalMs = 10
	ctrl := canopy.NewController(cfg,
		canopy.WithClock(canopy.NewManualClock(0)),
		canopy.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	engine := canopy.NewEngine(ctrl, NewDevice(s), canopy.WithHostPresenter())
	return NewHost(engine), ctrl, s
}

func frame(t *testing.T, h *Host) {
	t.Helper()
	require.NoError(t, h.ctrl.Tick(context.Background()))
	require.True(t, h.engine.Presenter().Present(time.Second))
}

func runeAt(s tcell.Screen, x, y int) rune {
	r, _, _, _ := s.GetContent(x, y)
	return r
}

func bgAt(s tcell.Screen, x, y int) tcell.Color {
	_, _, st, _ := s.GetContent(x, y)
	_, bg, _ := st.Decompose()
	return bg
}

func TestBoxFillsTouchedCells(t *testing.T) {
	h, ctrl, s := newHost(t)
	rect := canopy.Rect{X: 1.5, Y: 1, Width: 2, Height: 2}
	col := canopy.Color{R: 1, A: 1}
	ctrl.RenderRoot().AddNode(ClearNode("bg", canopy.Color{}))
	ctrl.RenderRoot().AddNode(BoxNode("box", &rect, &col))

	frame(t, h)

	red := tcell.NewRGBColor(255, 0, 0)
	for x := 1; x <= 3; x++ {
		assert.Equal(t, red, bgAt(s, x, 1), "x=%d", x)
		assert.Equal(t, red, bgAt(s, x, 2), "x=%d", x)
	}
	assert.NotEqual(t, red, bgAt(s, 0, 1))
	assert.NotEqual(t, red, bgAt(s, 4, 1))
	assert.NotEqual(t, red, bgAt(s, 1, 3))
	assert.Equal(t, 6, h.dev.Cells())
	assert.Equal(t, uint64(1), h.dev.Frames())
}

func TestBoxWithRuneUsesForeground(t *testing.T) {
	s := newScreen(t, 6, 3)
	dev := NewDevice(s)
	dev.BeginFrame(1)
	(&Box{Rect: canopy.Rect{X: 1, Y: 1, Width: 2, Height: 1}, Rune: '#', Color: canopy.Color{G: 1, A: 1}}).Execute(dev)
	dev.EndFrame()

	green := tcell.NewRGBColor(0, 255, 0)
	for x := 1; x <= 2; x++ {
		r, _, st, _ := s.GetContent(x, 1)
		fg, bg, _ := st.Decompose()
		assert.Equal(t, '#', r, "x=%d", x)
		assert.Equal(t, green, fg, "x=%d", x)
		assert.Equal(t, tcell.ColorDefault, bg, "x=%d", x)
	}
	assert.NotEqual(t, '#', runeAt(s, 3, 1))
	assert.Equal(t, 2, dev.Cells())
}

func TestBoxFollowsAnimatedRect(t *testing.T) {
	h, ctrl, s := newHost(t)
	rect := canopy.Rect{Width: 1, Height: 1}
	col := canopy.Color{B: 1, A: 1}
	ctrl.RenderRoot().AddNode(ClearNode("bg", canopy.Color{}))
	ctrl.RenderRoot().AddNode(BoxNode("box", &rect, &col))

	frame(t, h)
	rect.X = 5
	frame(t, h)

	blue := tcell.NewRGBColor(0, 0, 255)
	assert.Equal(t, blue, bgAt(s, 5, 0))
	assert.NotEqual(t, blue, bgAt(s, 0, 0), "cleared between frames")
}

func TestTextAndCellClipToScreen(t *testing.T) {
	s := newScreen(t, 5, 2)
	dev := NewDevice(s)
	dev.BeginFrame(7)
	(&Text{X: 2, Y: 0, Text: "hello"}).Execute(dev)
	(&Cell{X: -1, Y: 0, Rune: 'x'}).Execute(dev)
	(&Cell{X: 0, Y: 1, Rune: '#'}).Execute(dev)
	dev.EndFrame()

	assert.Equal(t, 'h', runeAt(s, 2, 0))
	assert.Equal(t, 'l', runeAt(s, 4, 0))
	assert.Equal(t, '#', runeAt(s, 0, 1))
	assert.Equal(t, 4, dev.Cells())
	assert.Equal(t, uint64(7), dev.Tick())
}

func TestTextNodeReadsCurrentText(t *testing.T) {
	h, ctrl, s := newHost(t)
	text := "one"
	ctrl.RenderRoot().AddNode(TextNode("label", 0, 0, &text, canopy.Color{G: 1, A: 1}))

	frame(t, h)
	assert.Equal(t, 'o', runeAt(s, 0, 0))
	text = "two"
	frame(t, h)
	assert.Equal(t, 't', runeAt(s, 0, 0))
}

func TestHandleForwardsInput(t *testing.T) {
	h, ctrl, _ := newHost(t)
	type got struct {
		typ  canopy.EventType
		x, y float64
		i    int64
	}
	var events []got
	ctrl.LogicRoot().OnEvent = func(ev *canopy.Event) bool {
		events = append(events, got{ev.Type, ev.X, ev.Y, ev.Int})
		return true
	}

	assert.True(t, h.handle(tcell.NewEventMouse(3, 4, tcell.Button1, tcell.ModNone)))
	assert.True(t, h.handle(tcell.NewEventMouse(5, 4, tcell.Button1, tcell.ModNone)))
	assert.True(t, h.handle(tcell.NewEventMouse(5, 6, tcell.ButtonNone, tcell.ModNone)))
	assert.True(t, h.handle(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)))
	assert.True(t, h.handle(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)))
	frame(t, h)

	assert.Equal(t, []got{
		{canopy.EventPointerDown, 3, 4, 0},
		{canopy.EventPointerMove, 5, 4, 0},
		{canopy.EventPointerUp, 5, 6, 0},
		{canopy.EventKey, 0, 0, int64(tcell.KeyRune)},
		{canopy.EventKey, 0, 0, int64(tcell.KeyEnter)},
	}, events)
}

func TestHandleRuneInObject(t *testing.T) {
	h, ctrl, _ := newHost(t)
	var r any
	ctrl.LogicRoot().OnEvent = func(ev *canopy.Event) bool {
		r = ev.Object
		return true
	}
	h.handle(tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone))
	frame(t, h)
	assert.Equal(t, 'z', r)
}

func TestHandleQuitKeys(t *testing.T) {
	h, _, _ := newHost(t)
	assert.False(t, h.handle(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	assert.False(t, h.handle(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModNone)))

	h.quit = func(ev *tcell.EventKey) bool { return ev.Rune() == 'x' }
	assert.True(t, h.handle(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	assert.False(t, h.handle(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)))
}

func TestHandleResize(t *testing.T) {
	h, ctrl, _ := newHost(t)
	var sizes [][2]int
	n := canopy.NewNode("listener")
	n.OnSurfaceChanged = func(w, hgt int) { sizes = append(sizes, [2]int{w, hgt}) }
	ctrl.LogicRoot().AddNode(n)

	h.handle(tcell.NewEventResize(40, 12))
	frame(t, h)
	assert.Equal(t, [][2]int{{40, 12}}, sizes)
}

func TestRunStopsOnQuitKey(t *testing.T) {
	h, ctrl, s := newHost(t)
	var created any
	var size [2]int
	var reported atomic.Bool
	n := canopy.NewNode("listener")
	n.OnSurfaceCreated = func(dc any) { created = dc }
	n.OnSurfaceChanged = func(w, hgt int) {
		size = [2]int{w, hgt}
		reported.Store(true)
	}
	ctrl.LogicRoot().AddNode(n)

	done := make(chan error, 1)
	go func() { done <- h.Run(context.Background()) }()
	require.Eventually(t, reported.Load, time.Second, time.Millisecond)
	s.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.False(t, h.engine.Running())
	assert.Same(t, s, created)
	assert.Equal(t, [2]int{20, 10}, size)
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	h, _, _ := newHost(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	require.Eventually(t, h.engine.Running, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

type otherDevice struct{}

func (otherDevice) BeginFrame(uint64) {}
func (otherDevice) EndFrame()         {}

func TestForeignDevicePanics(t *testing.T) {
	assert.Panics(t, func() { ClearScreen{}.Execute(otherDevice{}) })
	ctrl := canopy.NewController(canopy.DefaultConfig(),
		canopy.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	engine := canopy.NewEngine(ctrl, otherDevice{}, canopy.WithHostPresenter())
	assert.Panics(t, func() { NewHost(engine) })
}

func TestToColor(t *testing.T) {
	assert.Equal(t, tcell.ColorDefault, toColor(canopy.Color{}))
	assert.Equal(t, tcell.NewRGBColor(255, 128, 0), toColor(canopy.Color{R: 1, G: 0.5, A: 1}))
	assert.Equal(t, tcell.NewRGBColor(255, 0, 0), toColor(canopy.Color{R: 3, G: -1, A: 1}))
}
