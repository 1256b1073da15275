package canopy

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to 4 float64 fields simultaneously, driven by an
// interpolated sequence node. Attach Node() anywhere in the logic tree (or
// inside a Series/Parallel); the starting values are captured when the
// sequence starts and the fields are written every tick until it ends, when
// they are set exactly to their targets.
//
// If a target node is set and gets disposed, the group stops writing and
// reports Done.
type TweenGroup struct {
	node   *Node
	fn     ease.TweenFunc
	tweens [4]*gween.Tween
	fields [4]*float64
	to     [4]float64
	count  int
	target *Node
	last   int64
	Done   bool
}

// NewTweenGroup creates an empty group running for duration milliseconds.
// A nil fn means linear easing.
func NewTweenGroup(name string, duration int64, fn ease.TweenFunc) *TweenGroup {
	if fn == nil {
		fn = ease.Linear
	}
	g := &TweenGroup{fn: fn}
	g.node = NewInterpolated(name, duration, fn)
	g.node.Seq.OnStart = g.start
	g.node.Seq.OnProgress = g.progress
	g.node.Seq.OnEnd = g.end
	return g
}

// Add registers field to be tweened to the value to. Panics past four fields.
func (g *TweenGroup) Add(field *float64, to float64) *TweenGroup {
	if g.count == len(g.fields) {
		panic("canopy: tween group holds at most 4 fields")
	}
	g.fields[g.count] = field
	g.to[g.count] = to
	g.count++
	return g
}

// SetTarget ties the group to n: once n is disposed the group stops.
func (g *TweenGroup) SetTarget(n *Node) *TweenGroup {
	g.target = n
	return g
}

// Node returns the sequence node driving the group.
func (g *TweenGroup) Node() *Node { return g.node }

// Sequence returns the driving sequence.
func (g *TweenGroup) Sequence() *Sequence { return g.node.Seq }

func (g *TweenGroup) targetGone() bool {
	if g.target != nil && g.target.IsDisposed() {
		g.Done = true
		return true
	}
	return false
}

func (g *TweenGroup) start(s *Sequence) {
	g.Done = false
	g.last = 0
	d := float32(s.Duration)
	for i := 0; i < g.count; i++ {
		g.tweens[i] = gween.New(float32(*g.fields[i]), float32(g.to[i]), d, g.fn)
	}
}

func (g *TweenGroup) progress(s *Sequence, _ float64) {
	if g.Done || g.targetGone() {
		return
	}
	dt := s.Elapsed() - g.last
	g.last = s.Elapsed()
	for i := 0; i < g.count; i++ {
		val, _ := g.tweens[i].Update(float32(dt))
		*g.fields[i] = float64(val)
	}
}

func (g *TweenGroup) end(*Sequence) {
	if g.targetGone() {
		return
	}
	for i := 0; i < g.count; i++ {
		*g.fields[i] = g.to[i]
	}
	g.Done = true
}

// TweenValue creates a group animating a single field.
func TweenValue(name string, field *float64, to float64, duration int64, fn ease.TweenFunc) *TweenGroup {
	return NewTweenGroup(name, duration, fn).Add(field, to)
}

// TweenPosition creates a group animating an x/y pair.
func TweenPosition(name string, x, y *float64, toX, toY float64, duration int64, fn ease.TweenFunc) *TweenGroup {
	return NewTweenGroup(name, duration, fn).Add(x, toX).Add(y, toY)
}

// TweenColor creates a group animating all four components of c toward to.
func TweenColor(name string, c *Color, to Color, duration int64, fn ease.TweenFunc) *TweenGroup {
	return NewTweenGroup(name, duration, fn).
		Add(&c.R, to.R).
		Add(&c.G, to.G).
		Add(&c.B, to.B).
		Add(&c.A, to.A)
}
