package canopy

import (
	"fmt"
	"sync"
)

// Event is a pooled, typed message delivered through the node tree. Obtain
// one from Controller.NewEvent, set its payload, and post it from a node.
// Each event is dispatched exactly once and then recycled, so it must not be
// retained or read after its handler returns.
type Event struct {
	PoolEntry

	Type EventType

	// Payload. Producers set whichever fields their event type documents.
	Object any
	Int    int64
	Float  float64
	Bool   bool

	// X and Y carry pointer coordinates for input events.
	X, Y float64

	// Origin is the node that posted the event.
	Origin *Node
	Dir    Direction

	// lastUp is the branch most recently climbed out of on an upward
	// dispatch; sideways reflection skips it.
	lastUp   *Node
	next     *Event
	delayed  bool
	originID uint32
}

// String returns a short description for logs.
func (e *Event) String() string {
	name := "<nil>"
	if e.Origin != nil {
		name = e.Origin.Name
	}
	return fmt.Sprintf("event(type=%d dir=%s origin=%q)", e.Type, e.Dir, name)
}

func resetEvent(e *Event) {
	entry := e.PoolEntry
	*e = Event{PoolEntry: entry}
}

func newEventPool() *Pool[*Event] {
	return NewPool(func() *Event { return &Event{} }, resetEvent)
}

// mailbox is the pending-event queue: a singly linked list guarded by its own
// lock. Producers on any goroutine push; the logic goroutine swaps the whole
// list out in one step, so events posted while it dispatches wait for the
// next cycle.
type mailbox struct {
	mu   sync.Mutex
	head *Event
	tail *Event
	size int
}

func (m *mailbox) push(e *Event) {
	m.mu.Lock()
	e.next = nil
	if m.tail == nil {
		m.head = e
	} else {
		m.tail.next = e
	}
	m.tail = e
	m.size++
	m.mu.Unlock()
}

// takeAll detaches and returns the pending list in posting order.
func (m *mailbox) takeAll() (*Event, int) {
	m.mu.Lock()
	head, n := m.head, m.size
	m.head, m.tail, m.size = nil, nil, 0
	m.mu.Unlock()
	return head, n
}

// Len returns the number of pending events.
func (m *mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}
