// Package ebitenhost presents canopy command chains with Ebitengine.
//
// Ebitengine owns the render loop, so the engine is built with
// canopy.WithHostPresenter and Game.Draw presents at most one chain per
// frame. The screen is not cleared between frames, so a frame without a new
// chain keeps showing the previous one.
package ebitenhost

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/phanxgames/canopy"
)

// Device executes draw commands onto the screen image handed to Game.Draw.
// It is only touched from Ebitengine's draw callback.
type Device struct {
	target *ebiten.Image
	op     ebiten.DrawImageOptions
	tick   uint64
	frames uint64
	draws  int
}

// NewDevice creates a device with no target.
func NewDevice() *Device {
	return &Device{}
}

// SetTarget sets the image commands draw onto.
func (d *Device) SetTarget(img *ebiten.Image) { d.target = img }

// Target returns the current target image.
func (d *Device) Target() *ebiten.Image { return d.target }

// BeginFrame implements canopy.Device.
func (d *Device) BeginFrame(tick uint64) {
	d.tick = tick
	d.draws = 0
}

// EndFrame implements canopy.Device.
func (d *Device) EndFrame() { d.frames++ }

// Tick returns the tick of the frame most recently begun.
func (d *Device) Tick() uint64 { return d.tick }

// Frames returns the number of completed frames.
func (d *Device) Frames() uint64 { return d.frames }

// Draws returns the number of draw calls issued in the current or last frame.
func (d *Device) Draws() int { return d.draws }

// --- White pixel singleton ---

var whitePixelImage *ebiten.Image

// ensureWhitePixel returns a lazily-initialized 1x1 white pixel image used to
// draw solid rectangles. Only called from the draw callback.
func ensureWhitePixel() *ebiten.Image {
	if whitePixelImage == nil {
		whitePixelImage = ebiten.NewImage(1, 1)
		whitePixelImage.Fill(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	}
	return whitePixelImage
}

// applyColor sets a premultiplied color scale. The zero Color means white.
func applyColor(cs *ebiten.ColorScale, c canopy.Color) {
	cs.Reset()
	if c == (canopy.Color{}) {
		return
	}
	a := float32(c.A)
	cs.Scale(float32(c.R)*a, float32(c.G)*a, float32(c.B)*a, a)
}

// toRGBA converts a canopy color to an 8-bit premultiplied color.
func toRGBA(c canopy.Color) color.RGBA {
	clamp := func(v float64) uint8 {
		switch {
		case v <= 0:
			return 0
		case v >= 1:
			return 255
		}
		return uint8(v*255 + 0.5)
	}
	return color.RGBA{
		R: clamp(c.R * c.A),
		G: clamp(c.G * c.A),
		B: clamp(c.B * c.A),
		A: clamp(c.A),
	}
}

func (d *Device) fill(r canopy.Rect, c canopy.Color) {
	if d.target == nil || r.Width <= 0 || r.Height <= 0 {
		return
	}
	op := &d.op
	op.GeoM.Reset()
	op.GeoM.Scale(r.Width, r.Height)
	op.GeoM.Translate(r.X, r.Y)
	applyColor(&op.ColorScale, c)
	d.target.DrawImage(ensureWhitePixel(), op)
	d.draws++
}

func (d *Device) draw(img *ebiten.Image, geo ebiten.GeoM, c canopy.Color) {
	if d.target == nil || img == nil {
		return
	}
	op := &d.op
	op.GeoM = geo
	applyColor(&op.ColorScale, c)
	d.target.DrawImage(img, op)
	d.draws++
}

func (d *Device) clear(c canopy.Color) {
	if d.target == nil {
		return
	}
	d.target.Fill(toRGBA(c))
	d.draws++
}

func device(dev canopy.Device) *Device {
	d, ok := dev.(*Device)
	if !ok {
		panic("ebitenhost: command executed against a foreign device")
	}
	return d
}
