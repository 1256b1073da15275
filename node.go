package canopy

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// --- ID counter ---

var nodeIDCounter atomic.Uint32

func nextNodeID() uint32 {
	return nodeIDCounter.Add(1)
}

// --- Node ---

// Node is the fundamental scene graph element. A single flat struct is used for
// all node variants: behavior is selected per instance by the hook fields that
// are set and, for time-driven nodes, by Seq.
//
// The parent pointer is a non-owning back reference; children are owned by the
// parent in index order. Structural mutation of a node's children happens under
// that node's lock.
type Node struct {
	PoolEntry

	// Identity
	ID   uint32
	Name string
	Type NodeType

	// Hierarchy
	mu       sync.Mutex
	parent   *Node
	children []*Node
	ctrl     *Controller

	// Rendering
	Visible bool
	ZIndex  int

	// Metadata
	UserData any

	// Seq is non-nil for sequence, series and parallel nodes.
	Seq *Sequence

	// Lifecycle hooks (nil by default; zero cost when unused)
	OnSetup          func(c *Controller)
	OnAdded          func(parent *Node)
	OnRemoved        func(parent *Node)
	OnSurfaceCreated func(dc any)
	OnSurfaceChanged func(width, height int)
	OnResume         func()
	OnPause          func()

	// Per-tick hooks. Update hooks return true when they changed state; the
	// result is advisory and never used to skip work.
	OnPreUpdate func(dt int64) bool
	OnUpdate    func(dt int64) bool
	OnEvent     func(ev *Event) bool
	OnRender    func(chain *CommandChain)

	// Internal
	disposed       bool
	childrenSorted bool
	sortedChildren []*Node // reused buffer for ZIndex-sorted render order
}

// nodeDefaults sets the common default field values shared by all constructors.
func nodeDefaults(n *Node) {
	n.ID = nextNodeID()
	n.Visible = true
	n.childrenSorted = true
}

// NewNode creates a detached container node.
func NewNode(name string) *Node {
	n := &Node{Name: name, Type: NodeTypeContainer}
	nodeDefaults(n)
	return n
}

// Parent returns the node's parent, or nil when detached.
func (n *Node) Parent() *Node {
	return n.parent
}

// Controller returns the controller this node was set up against, or nil.
func (n *Node) Controller() *Controller {
	return n.ctrl
}

// Attached reports whether the node is reachable from its controller's root.
func (n *Node) Attached() bool {
	if n.ctrl == nil {
		return false
	}
	top := n
	for top.parent != nil {
		top = top.parent
	}
	return top == n.ctrl.root
}

func (n *Node) mustController() *Controller {
	if n.ctrl == nil {
		panic(fmt.Sprintf("canopy: node %q has no controller", n.Name))
	}
	return n.ctrl
}

// --- Tree manipulation ---

// AddNode appends child to this node's children.
// If child already has a parent, it is removed from that parent first.
// When this node is attached to a controller, child and its whole subtree
// receive OnSetup before child receives OnAdded.
// Panics if child is nil or child is an ancestor of this node (cycle).
func (n *Node) AddNode(child *Node) {
	n.attach(child, -1)
}

// InsertNode inserts child at the given index.
// Same reparenting, setup and cycle-check behavior as AddNode.
func (n *Node) InsertNode(child *Node, index int) {
	if index < 0 {
		panic("canopy: child index out of range")
	}
	n.attach(child, index)
}

func (n *Node) attach(child *Node, index int) {
	if child == nil {
		panic("canopy: cannot add nil child")
	}
	if debugEnabled() {
		debugCheckDisposed(n, "AddNode (parent)")
		debugCheckDisposed(child, "AddNode (child)")
	}
	if isAncestor(child, n) {
		panic("canopy: adding child would create a cycle")
	}
	if old := child.parent; old != nil {
		old.RemoveNode(child)
	}

	n.mu.Lock()
	if index > len(n.children) {
		n.mu.Unlock()
		panic("canopy: child index out of range")
	}
	child.parent = n
	if index < 0 {
		n.children = append(n.children, child)
	} else {
		n.children = append(n.children, nil)
		copy(n.children[index+1:], n.children[index:])
		n.children[index] = child
	}
	n.childrenSorted = false
	n.mu.Unlock()

	if n.Seq != nil {
		n.Seq.childAdded(child)
	}
	if n.Attached() {
		setupSubtree(child, n.ctrl)
	}
	if child.OnAdded != nil {
		child.OnAdded(n)
	}
	if debugEnabled() {
		debugCheckTreeDepth(child)
		debugCheckChildCount(n)
	}
}

// setupSubtree binds node and its descendants to c and invokes OnSetup
// pre-order.
func setupSubtree(node *Node, c *Controller) {
	node.Visit(func(v *Node) {
		v.ctrl = c
		if v.OnSetup != nil {
			v.OnSetup(c)
		}
	}, PreOrder)
}

// RemoveNode detaches child from this node and invokes child.OnRemoved.
// Descendants of child are left in place.
// Panics if child's parent is not this node.
func (n *Node) RemoveNode(child *Node) {
	if child == nil || child.parent != n {
		panic("canopy: child's parent is not this node")
	}
	if debugEnabled() {
		debugCheckDisposed(n, "RemoveNode (parent)")
	}
	n.removeChildByPtr(child)
	if child.OnRemoved != nil {
		child.OnRemoved(n)
	}
}

// RemoveNodeAt removes and returns the child at the given index.
func (n *Node) RemoveNodeAt(index int) *Node {
	child := n.child(index)
	if child == nil {
		panic("canopy: child index out of range")
	}
	n.RemoveNode(child)
	return child
}

// Remove detaches this node from its parent.
// No-op if this node has no parent.
func (n *Node) Remove() {
	if p := n.parent; p != nil {
		p.RemoveNode(n)
	}
}

// RemoveChildren detaches all children from this node, notifying each.
// Children are NOT disposed.
func (n *Node) RemoveChildren() {
	n.mu.Lock()
	removed := make([]*Node, len(n.children))
	copy(removed, n.children)
	for i, child := range n.children {
		child.parent = nil
		n.children[i] = nil
	}
	n.children = n.children[:0]
	n.childrenSorted = true
	n.mu.Unlock()

	for _, child := range removed {
		if child.OnRemoved != nil {
			child.OnRemoved(n)
		}
	}
}

// Children returns the child list. The returned slice MUST NOT be mutated by
// the caller and is only stable on the goroutine that mutates the tree.
func (n *Node) Children() []*Node {
	return n.children
}

// NumChildren returns the number of children.
func (n *Node) NumChildren() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.children)
}

// ChildAt returns the child at the given index.
func (n *Node) ChildAt(index int) *Node {
	c := n.child(index)
	if c == nil {
		panic("canopy: child index out of range")
	}
	return c
}

// child returns the child at index under the node lock, or nil when index is
// out of range. Traversals walk children through it so that appends made by
// callbacks during the walk are picked up.
func (n *Node) child(index int) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	if index < 0 || index >= len(n.children) {
		return nil
	}
	return n.children[index]
}

// SetChildIndex moves child to a new index among its siblings.
func (n *Node) SetChildIndex(child *Node, index int) {
	if child.parent != n {
		panic("canopy: child's parent is not this node")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	nc := len(n.children)
	if index < 0 || index >= nc {
		panic("canopy: child index out of range")
	}
	oldIndex := -1
	for i, c := range n.children {
		if c == child {
			oldIndex = i
			break
		}
	}
	if oldIndex == index {
		return
	}
	// Shift elements to fill the gap and open the target slot.
	if oldIndex < index {
		copy(n.children[oldIndex:], n.children[oldIndex+1:index+1])
	} else {
		copy(n.children[index+1:], n.children[index:oldIndex])
	}
	n.children[index] = child
	n.childrenSorted = false
}

// SetZIndex sets the node's ZIndex and marks the parent's children as unsorted.
func (n *Node) SetZIndex(z int) {
	if n.ZIndex == z {
		return
	}
	n.ZIndex = z
	if n.parent != nil {
		n.parent.childrenSorted = false
	}
}

// --- Traversal ---

// Update runs one update pass over this subtree: the node's own sequence and
// OnPreUpdate, then every child in index order, then OnUpdate. It reports
// whether any hook changed state. The node must have a controller.
func (n *Node) Update(dt int64) bool {
	return n.update(n.mustController(), dt)
}

func (n *Node) update(c *Controller, dt int64) bool {
	changed := false
	if n.Seq != nil {
		adv, detached := n.Seq.advance(n, c.TotalElapsed())
		changed = adv
		if detached {
			return changed
		}
	}
	if n.OnPreUpdate != nil && n.OnPreUpdate(dt) {
		changed = true
	}
	for i := 0; ; {
		ch := n.child(i)
		if ch == nil {
			break
		}
		if ch.update(c, dt) {
			changed = true
		}
		// A child that detached itself shifts its siblings down one slot.
		if n.child(i) == ch {
			i++
		}
	}
	if n.OnUpdate != nil && n.OnUpdate(dt) {
		changed = true
	}
	return changed
}

// Visit walks this subtree depth-first, calling fn on every node either
// before (PreOrder) or after (PostOrder) its children. Children are read one
// index at a time, so fn may add or remove children of nodes that have not
// been visited yet.
func (n *Node) Visit(fn func(*Node), order VisitOrder) {
	if order == PreOrder {
		fn(n)
	}
	for i := 0; ; i++ {
		ch := n.child(i)
		if ch == nil {
			break
		}
		ch.Visit(fn, order)
	}
	if order == PostOrder {
		fn(n)
	}
}

// --- Lookup ---

// defaultFindDepth bounds FindNode when the node has no controller.
const defaultFindDepth = 32

// FindNode resolves a dotted name path such as "hud.score". It searches
// breadth-first below this node first, then walks outward through the parent
// chain, searching each ancestor's other subtrees while skipping the branch
// already searched. Intended for one-time wiring during setup.
func (n *Node) FindNode(path string) *Node {
	if path == "" {
		return nil
	}
	segs := strings.Split(path, ".")
	depth := defaultFindDepth
	if n.ctrl != nil && n.ctrl.cfg.FindDepth > 0 {
		depth = n.ctrl.cfg.FindDepth
	}
	if r := findPath(n, segs, nil, depth); r != nil {
		return r
	}
	skip := n
	for p := n.parent; p != nil; p = p.parent {
		if p.Name == segs[0] {
			if len(segs) == 1 {
				return p
			}
			if r := findPath(p, segs[1:], skip, depth); r != nil {
				return r
			}
		}
		if r := findPath(p, segs, skip, depth); r != nil {
			return r
		}
		skip = p
	}
	return nil
}

// findPath searches below root, at most depth levels, for segs[0] and then
// resolves the remaining segments below each match in breadth-first order.
// The subtree rooted at skip is not entered.
func findPath(root *Node, segs []string, skip *Node, depth int) *Node {
	type entry struct {
		node  *Node
		level int
	}
	queue := []entry{{root, 0}}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if e.level >= depth {
			continue
		}
		for i := 0; ; i++ {
			ch := e.node.child(i)
			if ch == nil {
				break
			}
			if ch == skip {
				continue
			}
			if ch.Name == segs[0] {
				if len(segs) == 1 {
					return ch
				}
				if r := findPath(ch, segs[1:], nil, depth); r != nil {
					return r
				}
			}
			queue = append(queue, entry{ch, e.level + 1})
		}
	}
	return nil
}

// --- Disposal ---

// Dispose removes this node from its parent, marks it as disposed,
// and recursively disposes all descendants.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.Remove()
	n.dispose()
}

func (n *Node) dispose() {
	n.disposed = true
	n.ID = 0
	n.mu.Lock()
	children := n.children
	n.children = nil
	n.mu.Unlock()
	for _, child := range children {
		child.parent = nil
		child.dispose()
	}
	n.sortedChildren = nil
	n.parent = nil
	n.ctrl = nil
	n.Seq = nil
	n.UserData = nil
	n.clearHooks()
}

func (n *Node) clearHooks() {
	n.OnSetup = nil
	n.OnAdded = nil
	n.OnRemoved = nil
	n.OnSurfaceCreated = nil
	n.OnSurfaceChanged = nil
	n.OnResume = nil
	n.OnPause = nil
	n.OnPreUpdate = nil
	n.OnUpdate = nil
	n.OnEvent = nil
	n.OnRender = nil
}

// IsDisposed returns true if this node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// --- Helpers ---

// isAncestor reports whether candidate is an ancestor of node.
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children and clears child.parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (n *Node) removeChildByPtr(child *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			break
		}
	}
	child.parent = nil
	n.childrenSorted = false
}
