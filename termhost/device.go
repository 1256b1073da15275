// Package termhost presents canopy command chains on a terminal with tcell.
//
// Coordinates are character cells. The presentation goroutine owns the
// screen while a chain executes; the host's poll loop only reads events from
// it, which tcell allows concurrently.
package termhost

import (
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/phanxgames/canopy"
)

// Device executes draw commands onto a tcell screen. EndFrame shows the
// frame, so a chain is flushed to the terminal in one piece.
type Device struct {
	screen tcell.Screen
	tick   uint64
	frames uint64
	cells  int
}

// NewDevice creates a device drawing onto screen. The caller initializes the
// screen and finalizes it when done.
func NewDevice(screen tcell.Screen) *Device {
	if screen == nil {
		panic("termhost: device requires a screen")
	}
	return &Device{screen: screen}
}

// Screen returns the device's screen.
func (d *Device) Screen() tcell.Screen { return d.screen }

// BeginFrame implements canopy.Device.
func (d *Device) BeginFrame(tick uint64) {
	d.tick = tick
	d.cells = 0
}

// EndFrame implements canopy.Device.
func (d *Device) EndFrame() {
	d.screen.Show()
	d.frames++
}

// Tick returns the tick of the frame most recently begun.
func (d *Device) Tick() uint64 { return d.tick }

// Frames returns the number of completed frames.
func (d *Device) Frames() uint64 { return d.frames }

// Cells returns the number of cells written in the current or last frame.
func (d *Device) Cells() int { return d.cells }

func (d *Device) set(x, y int, r rune, style tcell.Style) {
	w, h := d.screen.Size()
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	d.screen.SetContent(x, y, r, nil, style)
	d.cells++
}

func (d *Device) fill(r canopy.Rect, ch rune, style tcell.Style) {
	x0, y0 := int(math.Floor(r.X)), int(math.Floor(r.Y))
	x1, y1 := int(math.Ceil(r.X+r.Width)), int(math.Ceil(r.Y+r.Height))
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			d.set(x, y, ch, style)
		}
	}
}

func (d *Device) text(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		d.set(x, y, r, style)
		x++
	}
}

func (d *Device) clear(style tcell.Style) {
	d.screen.SetStyle(style)
	d.screen.Clear()
}

// toColor converts c to a terminal color. The zero color maps to the
// terminal's default so unstyled commands leave the user's theme alone.
func toColor(c canopy.Color) tcell.Color {
	if c == (canopy.Color{}) {
		return tcell.ColorDefault
	}
	return tcell.NewRGBColor(channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) int32 {
	return int32(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

func style(fg, bg canopy.Color) tcell.Style {
	return tcell.StyleDefault.Foreground(toColor(fg)).Background(toColor(bg))
}

// device asserts that dev is a *Device. Commands from this package only run
// against it.
func device(dev canopy.Device) *Device {
	d, ok := dev.(*Device)
	if !ok {
		panic("termhost: command executed on a foreign device")
	}
	return d
}
