package ebitenhost

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/phanxgames/canopy"
)

// FillRect draws a solid rectangle. It holds per-frame state, so nodes keep
// one per phase in a canopy.Buffered and fill the instance for the chain
// being built.
type FillRect struct {
	Rect  canopy.Rect
	Color canopy.Color
}

// Execute implements canopy.Command.
func (f *FillRect) Execute(dev canopy.Device) {
	device(dev).fill(f.Rect, f.Color)
}

// DrawImage draws Image at (X, Y), scaled and rotated about its top-left
// corner. Zero scales mean 1. Like FillRect it is double-buffered.
type DrawImage struct {
	Image          *ebiten.Image
	X, Y           float64
	ScaleX, ScaleY float64
	Rotation       float64
	Color          canopy.Color
}

// GeoM returns the command's transform.
func (c *DrawImage) GeoM() ebiten.GeoM {
	var g ebiten.GeoM
	sx, sy := c.ScaleX, c.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	g.Scale(sx, sy)
	if c.Rotation != 0 {
		g.Rotate(c.Rotation)
	}
	g.Translate(c.X, c.Y)
	return g
}

// Execute implements canopy.Command.
func (c *DrawImage) Execute(dev canopy.Device) {
	device(dev).draw(c.Image, c.GeoM(), c.Color)
}

// Clear fills the whole target. It carries no per-frame state and may be
// shared by both phases.
type Clear struct {
	Color canopy.Color
}

// Execute implements canopy.Command.
func (c Clear) Execute(dev canopy.Device) {
	device(dev).clear(c.Color)
}

// DebugText prints Text at (X, Y) with Ebitengine's debug font.
type DebugText struct {
	Text string
	X, Y int
}

// Execute implements canopy.Command.
func (t *DebugText) Execute(dev canopy.Device) {
	d := device(dev)
	if d.target == nil {
		return
	}
	ebitenutil.DebugPrintAt(d.target, t.Text, t.X, t.Y)
	d.draws++
}

// RectNode returns a render node that draws a double-buffered rectangle.
// rect and col are read on every render traversal, so the caller may animate
// the values they point at from the logic subtree.
func RectNode(name string, rect *canopy.Rect, col *canopy.Color) *canopy.Node {
	n := canopy.NewNode(name)
	var buf canopy.Buffered[FillRect]
	n.OnRender = func(chain *canopy.CommandChain) {
		cmd := buf.For(chain)
		cmd.Rect = *rect
		cmd.Color = *col
		chain.Append(cmd)
	}
	return n
}

// ClearNode returns a render node that clears the target to col each frame.
func ClearNode(name string, col canopy.Color) *canopy.Node {
	n := canopy.NewNode(name)
	var cmd canopy.Command = Clear{Color: col}
	n.OnRender = func(chain *canopy.CommandChain) { chain.Append(cmd) }
	return n
}

// TextNode returns a render node that prints *text at (x, y).
func TextNode(name string, x, y int, text *string) *canopy.Node {
	n := canopy.NewNode(name)
	var buf canopy.Buffered[DebugText]
	n.OnRender = func(chain *canopy.CommandChain) {
		cmd := buf.For(chain)
		cmd.Text = *text
		cmd.X, cmd.Y = x, y
		chain.Append(cmd)
	}
	return n
}
