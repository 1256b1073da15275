package termhost

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/phanxgames/canopy"
)

// Host forwards terminal events to a canopy engine. Key presses become
// EventKey with the tcell key code in Int and the rune in Object, mouse
// buttons become pointer events in cell coordinates, and resizes become
// surface changes.
type Host struct {
	engine *canopy.Engine
	ctrl   *canopy.Controller
	dev    *Device
	screen tcell.Screen

	buttons tcell.ButtonMask
	lastX   int
	lastY   int
	quit    func(*tcell.EventKey) bool
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithQuitKey sets the predicate that ends Run. The default quits on Escape
// and Ctrl-C.
func WithQuitKey(fn func(*tcell.EventKey) bool) HostOption {
	return func(h *Host) { h.quit = fn }
}

func defaultQuit(ev *tcell.EventKey) bool {
	return ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC
}

// NewHost wraps engine, which must present to a *Device.
func NewHost(engine *canopy.Engine, opts ...HostOption) *Host {
	dev, ok := engine.Presenter().Device().(*Device)
	if !ok {
		panic("termhost: engine must present to a *termhost.Device")
	}
	h := &Host{
		engine: engine,
		ctrl:   engine.Controller(),
		dev:    dev,
		screen: dev.Screen(),
		quit:   defaultQuit,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewScreen creates and initializes a terminal screen with mouse reporting
// enabled.
func NewScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("termhost: create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("termhost: init screen: %w", err)
	}
	screen.EnableMouse()
	screen.HideCursor()
	return screen, nil
}

// Run reports the surface, starts the engine and forwards events until the
// quit key is pressed or ctx ends. The engine is stopped before Run returns.
func (h *Host) Run(ctx context.Context) error {
	h.ctrl.SurfaceCreated(h.screen)
	w, hgt := h.screen.Size()
	h.ctrl.SurfaceChanged(w, hgt)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := h.engine.Start(runCtx); err != nil {
		return err
	}
	defer h.engine.Stop()

	go func() {
		<-runCtx.Done()
		_ = h.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	for {
		ev := h.screen.PollEvent()
		if ev == nil || runCtx.Err() != nil {
			return ctx.Err()
		}
		if !h.handle(ev) {
			return nil
		}
	}
}

// handle forwards one event and reports whether polling should continue.
func (h *Host) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if h.quit(ev) {
			return false
		}
		var r rune
		if ev.Key() == tcell.KeyRune {
			r = ev.Rune()
		}
		h.ctrl.InjectKey(int(ev.Key()), r)
	case *tcell.EventMouse:
		h.mouse(ev)
	case *tcell.EventResize:
		w, hgt := ev.Size()
		h.ctrl.SurfaceChanged(w, hgt)
	}
	return true
}

var mouseButtons = [...]tcell.ButtonMask{tcell.Button1, tcell.Button2, tcell.Button3}

func (h *Host) mouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	fx, fy := float64(x), float64(y)
	now := ev.Buttons()
	held := -1
	for i, b := range mouseButtons {
		was, is := h.buttons&b != 0, now&b != 0
		switch {
		case is && !was:
			h.ctrl.InjectPress(fx, fy, i)
		case was && !is:
			h.ctrl.InjectRelease(fx, fy, i)
		case is && held < 0:
			held = i
		}
	}
	if held >= 0 && (x != h.lastX || y != h.lastY) {
		h.ctrl.InjectMove(fx, fy, held)
	}
	h.buttons = now & (tcell.Button1 | tcell.Button2 | tcell.Button3)
	h.lastX, h.lastY = x, y
}
