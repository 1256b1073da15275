package canopy

import (
	"fmt"
	"time"
)

// --- Posting ---

// PostUp queues ev for upward dispatch from this node. Safe from any
// goroutine. Panics if the node is nil or has no controller.
func (n *Node) PostUp(ev *Event) {
	n.post(ev, DirUp, false)
}

// PostDown queues ev for downward dispatch into this node's subtree.
func (n *Node) PostDown(ev *Event) {
	n.post(ev, DirDown, false)
}

// SendUp obtains an event of type typ and posts it up.
func (n *Node) SendUp(typ EventType) {
	n.PostUp(n.mustController().NewEvent(typ))
}

// SendDown obtains an event of type typ and posts it down.
func (n *Node) SendDown(typ EventType) {
	n.PostDown(n.mustController().NewEvent(typ))
}

// PostUpAfter posts ev up once delay milliseconds of wall time have passed.
// The post is dropped if this node has been detached, disposed or recycled
// by the time it is dispatched, or if the engine has stopped when the timer
// fires.
func (n *Node) PostUpAfter(ev *Event, delay int64) {
	n.postAfter(ev, DirUp, delay)
}

// PostDownAfter is the delayed form of PostDown.
func (n *Node) PostDownAfter(ev *Event, delay int64) {
	n.postAfter(ev, DirDown, delay)
}

func (n *Node) post(ev *Event, dir Direction, delayed bool) {
	if n == nil {
		panic("canopy: post from nil node")
	}
	if ev == nil {
		panic("canopy: post of nil event")
	}
	c := n.mustController()
	ev.Origin = n
	ev.Dir = dir
	ev.delayed = delayed
	ev.originID = n.ID
	c.pending.push(ev)
}

// delayedPost carries an event from a timer callback back into the pending
// queue. Records are pooled per controller.
type delayedPost struct {
	PoolEntry
	ctrl     *Controller
	ev       *Event
	origin   *Node
	originID uint32
	dir      Direction
	fireFn   func()
}

func newDelayedPool() *Pool[*delayedPost] {
	return NewPool(func() *delayedPost {
		d := &delayedPost{}
		d.fireFn = d.fire
		return d
	}, func(d *delayedPost) {
		d.ctrl, d.ev, d.origin = nil, nil, nil
	})
}

func (n *Node) postAfter(ev *Event, dir Direction, delay int64) {
	if n == nil {
		panic("canopy: post from nil node")
	}
	if ev == nil {
		panic("canopy: post of nil event")
	}
	c := n.mustController()
	if delay <= 0 {
		n.post(ev, dir, true)
		return
	}
	d := c.delayed.Obtain()
	d.ctrl, d.ev, d.origin, d.originID, d.dir = c, ev, n, n.ID, dir
	c.clock.AfterFunc(time.Duration(delay)*time.Millisecond, d.fireFn)
}

// fire runs on the clock's timer goroutine and must not touch the origin.
// Liveness is checked on the logic goroutine at dispatch.
func (d *delayedPost) fire() {
	c, ev := d.ctrl, d.ev
	ev.Origin, ev.originID, ev.Dir, ev.delayed = d.origin, d.originID, d.dir, true
	c.delayed.Recycle(d)
	if c.stopped.Load() {
		c.log.Debug("delayed post dropped: engine stopped", "type", ev.Type)
		c.events.Recycle(ev)
		return
	}
	c.pending.push(ev)
}

// --- Dispatch ---

// dispatchPending swaps out the pending list and delivers each event once,
// recycling it afterwards. Events posted by handlers land in the fresh list.
// Handler panics are not recovered.
func (c *Controller) dispatchPending() int {
	ev, n := c.pending.takeAll()
	for ev != nil {
		next := ev.next
		ev.next = nil
		c.dispatch(ev)
		c.events.Recycle(ev)
		ev = next
	}
	return n
}

func (c *Controller) dispatch(ev *Event) {
	if ev.Origin == nil {
		panic("canopy: dispatch of event with no origin")
	}
	if !c.liveOrigin(ev) {
		if !ev.delayed {
			panic(fmt.Sprintf("canopy: dispatch of event type %d from detached node %q",
				ev.Type, ev.Origin.Name))
		}
		c.log.Debug("delayed post dropped: origin detached",
			"type", ev.Type, "origin", ev.Origin.Name)
		return
	}
	if ev.Dir == DirDown {
		dispatchDown(ev.Origin, ev)
		return
	}
	dispatchUp(ev)
}

// liveOrigin reports whether ev's origin is still the node that posted it and
// is reachable from this controller's root. Disposal and pool reuse both
// change the node's ID.
func (c *Controller) liveOrigin(ev *Event) bool {
	o := ev.Origin
	return o.ID == ev.originID && o.ctrl == c && o.Attached()
}

func (n *Node) handle(ev *Event) bool {
	return n.OnEvent != nil && n.OnEvent(ev)
}

// dispatchUp offers ev to the origin and then each ancestor. Before climbing
// past an ancestor that did not consume it, the event is reflected sideways
// into that ancestor's other child subtrees. Delivery stops at the first
// consumer.
func dispatchUp(ev *Event) bool {
	ev.lastUp = nil
	for node := ev.Origin; node != nil; node = node.parent {
		if node.handle(ev) {
			return true
		}
		if node != ev.Origin && dispatchSideways(node, ev) {
			return true
		}
		ev.lastUp = node
	}
	return false
}

// dispatchSideways walks node's child subtrees pre-order, skipping the branch
// the event just climbed out of.
func dispatchSideways(node *Node, ev *Event) bool {
	for i := 0; ; i++ {
		ch := node.child(i)
		if ch == nil {
			return false
		}
		if ch == ev.lastUp {
			continue
		}
		if dispatchFirst(ch, ev) {
			return true
		}
	}
}

// dispatchFirst delivers pre-order and stops at the first consumer.
func dispatchFirst(node *Node, ev *Event) bool {
	if node.handle(ev) {
		return true
	}
	for i := 0; ; i++ {
		ch := node.child(i)
		if ch == nil {
			return false
		}
		if dispatchFirst(ch, ev) {
			return true
		}
	}
}

// dispatchDown delivers pre-order from node. A consumer stops descent into its
// own subtree only; its siblings still receive the event. Reports whether any
// handler consumed it.
func dispatchDown(node *Node, ev *Event) bool {
	if node.handle(ev) {
		return true
	}
	consumed := false
	for i := 0; ; i++ {
		ch := node.child(i)
		if ch == nil {
			return consumed
		}
		if dispatchDown(ch, ev) {
			consumed = true
		}
	}
}
