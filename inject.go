package canopy

// SetInputTarget sets the node injected input events are posted down from.
// Defaults to LogicRoot. Passing nil restores the default.
func (c *Controller) SetInputTarget(n *Node) {
	if n == nil {
		n = c.logic
	}
	c.inputTarget.Store(n)
}

// InputTarget returns the node injected input is posted down from.
func (c *Controller) InputTarget() *Node {
	return c.inputTarget.Load()
}

func (c *Controller) injectPointer(typ EventType, x, y float64, button int) {
	ev := c.NewEvent(typ)
	ev.X, ev.Y = x, y
	ev.Int = int64(button)
	c.InputTarget().PostDown(ev)
}

// InjectPress queues a pointer press at (x, y) with the given button. Safe
// from any goroutine; the event is dispatched on the next tick.
func (c *Controller) InjectPress(x, y float64, button int) {
	c.injectPointer(EventPointerDown, x, y, button)
}

// InjectMove queues a pointer move at (x, y) with the button held down.
// Use this between InjectPress and InjectRelease to simulate a drag.
func (c *Controller) InjectMove(x, y float64, button int) {
	c.injectPointer(EventPointerMove, x, y, button)
}

// InjectRelease queues a pointer release at (x, y).
func (c *Controller) InjectRelease(x, y float64, button int) {
	c.injectPointer(EventPointerUp, x, y, button)
}

// InjectClick is a convenience that queues a press followed by a release
// at the same coordinates.
func (c *Controller) InjectClick(x, y float64, button int) {
	c.InjectPress(x, y, button)
	c.InjectRelease(x, y, button)
}

// InjectDrag queues a full drag sequence: press at (fromX, fromY), steps
// linearly interpolated moves, and release at (toX, toY).
func (c *Controller) InjectDrag(fromX, fromY, toX, toY float64, steps int) {
	c.InjectPress(fromX, fromY, 0)
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		x := fromX + (toX-fromX)*t
		y := fromY + (toY-fromY)*t
		c.InjectMove(x, y, 0)
	}
	c.InjectRelease(toX, toY, 0)
}

// InjectKey queues a key press. Int carries code; Object carries r when it is
// a printable rune, else nil.
func (c *Controller) InjectKey(code int, r rune) {
	ev := c.NewEvent(EventKey)
	ev.Int = int64(code)
	if r != 0 {
		ev.Object = r
	}
	c.InputTarget().PostDown(ev)
}
