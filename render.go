package canopy

// traverse walks the render subtree depth-first, letting each visible node
// append its commands to chain. Invisible nodes hide their whole subtree.
// Siblings are visited in ZIndex order, ties broken by child index.
func (c *Controller) traverse(n *Node, chain *CommandChain) {
	if !n.Visible {
		return
	}
	if n.OnRender != nil {
		n.OnRender(chain)
	}

	n.mu.Lock()
	if len(n.children) == 0 {
		n.mu.Unlock()
		return
	}
	if !n.childrenSorted {
		rebuildSortedChildren(n)
	}
	children := n.sortedChildren
	n.mu.Unlock()

	for _, child := range children {
		c.traverse(child, chain)
	}
}

// BuildChain runs the render traversal of n into chain without touching the
// pipeline. Useful for tools that inspect what a subtree would draw.
func (c *Controller) BuildChain(n *Node, chain *CommandChain) {
	c.traverse(n, chain)
}

// rebuildSortedChildren rebuilds the ZIndex-sorted traversal order for a node.
// Uses insertion sort: zero allocations, stable, and optimal for the typical
// case of few children that are nearly sorted (O(n) when already sorted).
// Caller holds n.mu.
func rebuildSortedChildren(n *Node) {
	nc := len(n.children)
	if cap(n.sortedChildren) < nc {
		n.sortedChildren = make([]*Node, nc)
	}
	n.sortedChildren = n.sortedChildren[:nc]
	copy(n.sortedChildren, n.children)
	for i := 1; i < nc; i++ {
		key := n.sortedChildren[i]
		j := i - 1
		for j >= 0 && n.sortedChildren[j].ZIndex > key.ZIndex {
			n.sortedChildren[j+1] = n.sortedChildren[j]
			j--
		}
		n.sortedChildren[j+1] = key
	}
	n.childrenSorted = true
}
