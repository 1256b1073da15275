package termhost

import (
	"github.com/phanxgames/canopy"
)

// Cell writes a single rune.
type Cell struct {
	X, Y   int
	Rune   rune
	Fg, Bg canopy.Color
}

// Execute implements canopy.Command.
func (c *Cell) Execute(dev canopy.Device) {
	device(dev).set(c.X, c.Y, c.Rune, style(c.Fg, c.Bg))
}

// Box fills every cell the rectangle touches. A zero Rune fills with spaces,
// so only the background color shows.
type Box struct {
	Rect  canopy.Rect
	Rune  rune
	Color canopy.Color
}

// Execute implements canopy.Command.
func (b *Box) Execute(dev canopy.Device) {
	if b.Rune == 0 {
		device(dev).fill(b.Rect, ' ', style(canopy.Color{}, b.Color))
		return
	}
	device(dev).fill(b.Rect, b.Rune, style(b.Color, canopy.Color{}))
}

// Text writes a string left to right from (X, Y), one cell per rune.
type Text struct {
	X, Y   int
	Text   string
	Fg, Bg canopy.Color
}

// Execute implements canopy.Command.
func (t *Text) Execute(dev canopy.Device) {
	device(dev).text(t.X, t.Y, t.Text, style(t.Fg, t.Bg))
}

// ClearScreen clears the screen to Color. It carries no per-frame state and
// may be shared by both phases.
type ClearScreen struct {
	Color canopy.Color
}

// Execute implements canopy.Command.
func (c ClearScreen) Execute(dev canopy.Device) {
	device(dev).clear(style(canopy.Color{}, c.Color))
}

// BoxNode returns a render node that draws a double-buffered box. rect and
// col are read on every render traversal.
func BoxNode(name string, rect *canopy.Rect, col *canopy.Color) *canopy.Node {
	n := canopy.NewNode(name)
	var buf canopy.Buffered[Box]
	n.OnRender = func(chain *canopy.CommandChain) {
		cmd := buf.For(chain)
		cmd.Rect = *rect
		cmd.Color = *col
		chain.Append(cmd)
	}
	return n
}

// TextNode returns a render node that draws *text at (x, y) in fg.
func TextNode(name string, x, y int, text *string, fg canopy.Color) *canopy.Node {
	n := canopy.NewNode(name)
	var buf canopy.Buffered[Text]
	n.OnRender = func(chain *canopy.CommandChain) {
		cmd := buf.For(chain)
		cmd.X, cmd.Y = x, y
		cmd.Text = *text
		cmd.Fg = fg
		chain.Append(cmd)
	}
	return n
}

// ClearNode returns a render node that clears the screen each frame.
func ClearNode(name string, col canopy.Color) *canopy.Node {
	n := canopy.NewNode(name)
	var cmd canopy.Command = ClearScreen{Color: col}
	n.OnRender = func(chain *canopy.CommandChain) { chain.Append(cmd) }
	return n
}
