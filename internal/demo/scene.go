// Package demo builds a small animated scene used by the canopy command and
// the example programs: boxes bouncing across the surface on looping series
// of tweens, and a pulse driven by a stepping sequence.
package demo

import (
	"fmt"

	"github.com/phanxgames/canopy"
	"github.com/tanema/gween/ease"
)

// Event codes posted by the scene's sequences.
const (
	EventBounced canopy.EventType = canopy.EventUser + iota
	EventPulsed
)

// Options sizes the scene.
type Options struct {
	Width, Height float64
	Boxes         int
	BoxSize       float64
	// PeriodMs is the time for one leg of a bounce.
	PeriodMs int64
	// PulseMs is the pulse step interval.
	PulseMs int64
}

// TerminalOptions fits the scene to an 80x24 terminal.
func TerminalOptions() Options {
	return Options{Width: 80, Height: 24, Boxes: 3, BoxSize: 4, PeriodMs: 1500, PulseMs: 250}
}

// WindowOptions fits the scene to a 640x480 window.
func WindowOptions() Options {
	return Options{Width: 640, Height: 480, Boxes: 4, BoxSize: 48, PeriodMs: 1200, PulseMs: 250}
}

// Box is one bouncing box. Rect and Color are animated by Motion and read by
// Render on every frame.
type Box struct {
	Rect   canopy.Rect
	Color  canopy.Color
	Motion *canopy.Node
	Render *canopy.Node
}

// Scene is the built demo.
type Scene struct {
	Boxes   []*Box
	Pulse   *canopy.Node
	Logic   *canopy.Node
	Render  *canopy.Node
	Bounces int
	Pulses  int
	Keys    int
	Clicks  int

	pulseRect  canopy.Rect
	pulseColor canopy.Color
	status     string
}

var (
	warm = canopy.Color{R: 1, G: 0.45, B: 0.1, A: 1}
	cool = canopy.Color{R: 0.1, G: 0.55, B: 1, A: 1}
	dim  = canopy.Color{R: 0.25, G: 0.25, B: 0.25, A: 1}
	lit  = canopy.Color{R: 0.95, G: 0.95, B: 0.3, A: 1}
)

// Build adds the scene to ctrl's logic and render subtrees. The key code
// 'r' restarts every box.
func Build(ctrl *canopy.Controller, p Palette, opts Options) *Scene {
	if opts.Boxes <= 0 || opts.PeriodMs <= 0 {
		panic("demo: scene needs at least one box and a positive period")
	}
	s := &Scene{
		Logic:  canopy.NewNode("demo"),
		Render: canopy.NewNode("demo-render"),
	}
	s.Logic.OnEvent = s.handle
	s.Render.AddNode(p.Clear("clear"))

	lane := opts.Height / float64(opts.Boxes+1)
	right := opts.Width - opts.BoxSize
	for i := 0; i < opts.Boxes; i++ {
		b := &Box{
			Rect:  canopy.Rect{Y: lane * float64(i+1), Width: opts.BoxSize, Height: opts.BoxSize / 2},
			Color: cool,
		}
		name := fmt.Sprintf("box%d", i)
		fn := ease.InOutQuad
		if i%2 == 1 {
			fn = ease.OutBounce
		}
		out := canopy.NewParallel(name+"-out",
			canopy.TweenPosition(name+"-out-pos", &b.Rect.X, &b.Rect.Y, right, b.Rect.Y, opts.PeriodMs, fn).Node(),
			canopy.TweenColor(name+"-out-color", &b.Color, warm, opts.PeriodMs, ease.Linear).Node(),
		)
		back := canopy.NewParallel(name+"-back",
			canopy.TweenPosition(name+"-back-pos", &b.Rect.X, &b.Rect.Y, 0, b.Rect.Y, opts.PeriodMs, fn).Node(),
			canopy.TweenColor(name+"-back-color", &b.Color, cool, opts.PeriodMs, ease.Linear).Node(),
		)
		b.Motion = canopy.NewSeries(name, out, back)
		b.Motion.Seq.SetStartTime(int64(i) * opts.PeriodMs / int64(opts.Boxes))
		b.Motion.Seq.EndEvent = EventBounced
		b.Render = p.Box(name, &b.Rect, &b.Color)

		s.Boxes = append(s.Boxes, b)
		s.Logic.AddNode(b.Motion)
		s.Render.AddNode(b.Render)
	}

	s.pulseRect = canopy.Rect{X: opts.Width - opts.BoxSize, Width: opts.BoxSize, Height: opts.BoxSize / 2}
	s.pulseColor = dim
	s.Pulse = canopy.NewSequence("pulse", 0)
	s.Pulse.Seq.StepInterval = opts.PulseMs
	s.Pulse.Seq.StepEvent = EventPulsed
	s.Pulse.Seq.OnStep = func(*canopy.Sequence) {
		if s.pulseColor == dim {
			s.pulseColor = lit
		} else {
			s.pulseColor = dim
		}
	}
	s.Logic.AddNode(s.Pulse)
	pulse := p.Box("pulse", &s.pulseRect, &s.pulseColor)
	pulse.SetZIndex(1)
	s.Render.AddNode(pulse)

	s.updateStatus()
	s.Render.AddNode(p.Label("status", 0, 0, &s.status))

	ctrl.LogicRoot().AddNode(s.Logic)
	ctrl.RenderRoot().AddNode(s.Render)
	return s
}

// Status returns the line the scene's label shows.
func (s *Scene) Status() string { return s.status }

// PulseColor returns the pulse's current color.
func (s *Scene) PulseColor() canopy.Color { return s.pulseColor }

// Restart resets every box to the start of its bounce.
func (s *Scene) Restart() {
	for _, b := range s.Boxes {
		b.Motion.Seq.Reset()
	}
}

func (s *Scene) handle(ev *canopy.Event) bool {
	switch ev.Type {
	case EventBounced:
		s.Bounces++
		if seq, ok := ev.Object.(*canopy.Sequence); ok {
			seq.Reset()
		}
	case EventPulsed:
		s.Pulses++
	case canopy.EventKey:
		s.Keys++
		if r, ok := ev.Object.(rune); ok && r == 'r' {
			s.Restart()
		}
	case canopy.EventPointerDown:
		s.Clicks++
	default:
		return false
	}
	s.updateStatus()
	return true
}

func (s *Scene) updateStatus() {
	s.status = fmt.Sprintf("bounces %d  pulses %d  keys %d  clicks %d", s.Bounces, s.Pulses, s.Keys, s.Clicks)
}
