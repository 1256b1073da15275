package canopy

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Host devices premultiply at execution time.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default tint (no color modification).
var ColorWhite = Color{1, 1, 1, 1}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// NodeType distinguishes the update behavior of a Node.
type NodeType uint8

const (
	NodeTypeContainer NodeType = iota // plain tree element, hooks only
	NodeTypeSequence                  // time-driven start/step/end state machine
	NodeTypeSeries                    // sequence running its children one after another
	NodeTypeParallel                  // sequence running its children together
)

// String returns the lower-case name of the node type.
func (t NodeType) String() string {
	switch t {
	case NodeTypeContainer:
		return "container"
	case NodeTypeSequence:
		return "sequence"
	case NodeTypeSeries:
		return "series"
	case NodeTypeParallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// EventType is an application-defined event code. Codes below EventUser are
// reserved for the engine's own producers (input injection, lifecycle).
type EventType int32

const (
	EventNone         EventType = iota // zero value; never dispatched
	EventPointerDown                   // pointer button pressed
	EventPointerUp                     // pointer button released
	EventPointerMove                   // pointer moved with the button held
	EventKey                           // key press; Int carries the key code
	EventSurfaceReady                  // posted down from the root after onSurfaceCreated
)

// EventUser is the first code available to applications.
const EventUser EventType = 1000

// Direction selects how an event travels through the tree.
type Direction uint8

const (
	DirUp   Direction = iota // origin, then ancestors, reflecting sideways into siblings
	DirDown                  // pre-order descent from the origin
)

// String returns "up" or "down".
func (d Direction) String() string {
	if d == DirDown {
		return "down"
	}
	return "up"
}

// Phase identifies a double-buffer slot. The logic goroutine writes into the
// phase that is not in flight on the presentation goroutine.
type Phase uint8

const (
	PhaseA Phase = iota
	PhaseB
)

// Other returns the opposite phase.
func (p Phase) Other() Phase {
	return p ^ 1
}

// String returns "A" or "B".
func (p Phase) String() string {
	if p == PhaseB {
		return "B"
	}
	return "A"
}

// VisitOrder selects pre-order or post-order traversal for Node.Visit.
type VisitOrder uint8

const (
	PreOrder  VisitOrder = iota // parent before children
	PostOrder                   // children before parent
)
