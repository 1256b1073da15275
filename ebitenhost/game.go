package ebitenhost

import (
	"context"
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/phanxgames/canopy"
)

// CharKey is the key code injected with text input runes.
const CharKey = -1

// DefaultPresentWait bounds how long Draw waits for a new chain.
const DefaultPresentWait = 4 * time.Millisecond

// inputSource is the slice of Ebitengine's input state Game polls.
type inputSource interface {
	CursorPosition() (int, int)
	IsMouseButtonPressed(b ebiten.MouseButton) bool
	IsMouseButtonJustPressed(b ebiten.MouseButton) bool
	IsMouseButtonJustReleased(b ebiten.MouseButton) bool
	AppendJustPressedKeys(keys []ebiten.Key) []ebiten.Key
	AppendInputChars(runes []rune) []rune
}

type ebitenInput struct{}

func (ebitenInput) CursorPosition() (int, int) { return ebiten.CursorPosition() }
func (ebitenInput) IsMouseButtonPressed(b ebiten.MouseButton) bool {
	return ebiten.IsMouseButtonPressed(b)
}
func (ebitenInput) IsMouseButtonJustPressed(b ebiten.MouseButton) bool {
	return inpututil.IsMouseButtonJustPressed(b)
}
func (ebitenInput) IsMouseButtonJustReleased(b ebiten.MouseButton) bool {
	return inpututil.IsMouseButtonJustReleased(b)
}
func (ebitenInput) AppendJustPressedKeys(keys []ebiten.Key) []ebiten.Key {
	return inpututil.AppendJustPressedKeys(keys)
}
func (ebitenInput) AppendInputChars(runes []rune) []rune {
	return ebiten.AppendInputChars(runes)
}

var buttons = [...]ebiten.MouseButton{
	ebiten.MouseButtonLeft,
	ebiten.MouseButtonRight,
	ebiten.MouseButtonMiddle,
}

// Game implements ebiten.Game on top of a running canopy engine. Update
// forwards input, Layout forwards surface size changes, and Draw presents the
// next chain onto the screen.
type Game struct {
	ctx    context.Context
	engine *canopy.Engine
	ctrl   *canopy.Controller
	dev    *Device
	in     inputSource
	wait   time.Duration

	created       bool
	width, height int
	lastX, lastY  int
	keys          []ebiten.Key
	chars         []rune
}

// GameOption configures a Game.
type GameOption func(*Game)

// WithPresentWait sets how long Draw waits for a chain.
func WithPresentWait(d time.Duration) GameOption {
	return func(g *Game) { g.wait = d }
}

// NewGame wraps engine, which must present to a *Device. Update reports
// ebiten.Termination once ctx ends.
func NewGame(ctx context.Context, engine *canopy.Engine, opts ...GameOption) *Game {
	dev, ok := engine.Presenter().Device().(*Device)
	if !ok {
		panic("ebitenhost: engine must present to an *ebitenhost.Device")
	}
	g := &Game{
		ctx:    ctx,
		engine: engine,
		ctrl:   engine.Controller(),
		dev:    dev,
		in:     ebitenInput{},
		wait:   DefaultPresentWait,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Update implements ebiten.Game.
func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	g.pollInput()
	return nil
}

func (g *Game) pollInput() {
	x, y := g.in.CursorPosition()
	fx, fy := float64(x), float64(y)
	held := -1
	for _, b := range buttons {
		switch {
		case g.in.IsMouseButtonJustPressed(b):
			g.ctrl.InjectPress(fx, fy, int(b))
		case g.in.IsMouseButtonJustReleased(b):
			g.ctrl.InjectRelease(fx, fy, int(b))
		case g.in.IsMouseButtonPressed(b) && held < 0:
			held = int(b)
		}
	}
	if held >= 0 && (x != g.lastX || y != g.lastY) {
		g.ctrl.InjectMove(fx, fy, held)
	}
	g.lastX, g.lastY = x, y

	g.keys = g.in.AppendJustPressedKeys(g.keys[:0])
	for _, k := range g.keys {
		g.ctrl.InjectKey(int(k), 0)
	}
	g.chars = g.in.AppendInputChars(g.chars[:0])
	for _, r := range g.chars {
		g.ctrl.InjectKey(CharKey, r)
	}
}

// Draw implements ebiten.Game. The first call reports the surface as created
// with the Device as its context.
func (g *Game) Draw(screen *ebiten.Image) {
	g.dev.SetTarget(screen)
	if !g.created {
		g.created = true
		g.ctrl.SurfaceCreated(g.dev)
	}
	g.engine.Presenter().Present(g.wait)
}

// Layout implements ebiten.Game. Size changes are forwarded to the engine.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		g.ctrl.SurfaceChanged(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}

// RunOptions configures the window opened by Run.
type RunOptions struct {
	Title         string
	Width, Height int
	PresentWait   time.Duration
}

// Run starts engine, opens a window and blocks until the window closes or
// ctx ends. The engine must have been created with canopy.WithHostPresenter
// and a *Device.
func Run(ctx context.Context, engine *canopy.Engine, opts RunOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("ebitenhost: invalid window size %dx%d", opts.Width, opts.Height)
	}
	ebiten.SetWindowTitle(opts.Title)
	ebiten.SetWindowSize(opts.Width, opts.Height)
	ebiten.SetScreenClearedEveryFrame(false)

	var gopts []GameOption
	if opts.PresentWait > 0 {
		gopts = append(gopts, WithPresentWait(opts.PresentWait))
	}
	g := NewGame(ctx, engine, gopts...)

	if err := engine.Start(ctx); err != nil {
		return err
	}
	defer engine.Stop()
	return ebiten.RunGame(g)
}
