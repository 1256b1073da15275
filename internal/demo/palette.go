package demo

import (
	"github.com/phanxgames/canopy"
	"github.com/phanxgames/canopy/ebitenhost"
	"github.com/phanxgames/canopy/termhost"
)

// Palette builds the render nodes the scene draws with. Each host supplies
// one over its own command set.
type Palette interface {
	Clear(name string) *canopy.Node
	Box(name string, rect *canopy.Rect, col *canopy.Color) *canopy.Node
	Label(name string, x, y float64, text *string) *canopy.Node
}

// Ebiten draws with ebitenhost commands. Coordinates are pixels.
type Ebiten struct {
	Background canopy.Color
}

func (p Ebiten) Clear(name string) *canopy.Node {
	return ebitenhost.ClearNode(name, p.Background)
}

func (Ebiten) Box(name string, rect *canopy.Rect, col *canopy.Color) *canopy.Node {
	return ebitenhost.RectNode(name, rect, col)
}

func (Ebiten) Label(name string, x, y float64, text *string) *canopy.Node {
	return ebitenhost.TextNode(name, int(x), int(y), text)
}

// Terminal draws with termhost commands. Coordinates are cells.
type Terminal struct {
	Background canopy.Color
	Foreground canopy.Color
}

func (p Terminal) Clear(name string) *canopy.Node {
	return termhost.ClearNode(name, p.Background)
}

func (Terminal) Box(name string, rect *canopy.Rect, col *canopy.Color) *canopy.Node {
	return termhost.BoxNode(name, rect, col)
}

func (p Terminal) Label(name string, x, y float64, text *string) *canopy.Node {
	return termhost.TextNode(name, int(x), int(y), text, p.Foreground)
}

// Null draws nothing. Its nodes still append one command each per frame, so
// headless runs exercise the full pipeline against any device.
type Null struct{}

var nop canopy.Command = canopy.CommandFunc(func(canopy.Device) {})

func (Null) Clear(name string) *canopy.Node { return nullNode(name) }

func (Null) Box(name string, _ *canopy.Rect, _ *canopy.Color) *canopy.Node {
	return nullNode(name)
}

func (Null) Label(name string, _, _ float64, _ *string) *canopy.Node { return nullNode(name) }

func nullNode(name string) *canopy.Node {
	n := canopy.NewNode(name)
	n.OnRender = func(chain *canopy.CommandChain) { chain.Append(nop) }
	return n
}
