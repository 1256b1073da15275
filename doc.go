// Package canopy is a real-time scene-graph engine core.
//
// Canopy provides the node tree, pooled event dispatch, time-driven
// sequences and the double-buffered render pipeline that sit between a host
// platform and the code that draws. It does no drawing itself: render nodes
// append opaque [Command] values that a host [Device] executes.
//
// # Quick start
//
// A [Controller] owns the tree and the per-tick pipeline. An [Engine] runs it
// on a logic goroutine and a presentation goroutine:
//
//	ctrl := canopy.NewController(canopy.DefaultConfig())
//	ctrl.LogicRoot().AddNode(logicNode)
//	ctrl.RenderRoot().AddNode(renderNode)
//
//	engine := canopy.NewEngine(ctrl, device)
//	if err := engine.Start(ctx); err != nil {
//		return err
//	}
//	defer engine.Stop()
//
// Hosts that own their render loop, such as Ebitengine, pass
// [WithHostPresenter] and call [Presenter.Present] from their draw callback.
// See the ebitenhost and termhost packages.
//
// # Tree
//
// Every element is a [Node]. The root has two children: the logic subtree,
// updated once per tick, and the render subtree, traversed once per tick to
// build a [CommandChain]. A node has at most one parent, and nodes added to
// a live tree get their OnSetup hook before anything else sees them.
//
// # Events
//
// Events come from a per-controller pool and are queued until the start of
// the next tick. [Node.PostUp] delivers to the origin and its ancestors and
// reflects into each ancestor's other subtrees; [Node.PostDown] descends from
// the origin. A handler returning true consumes the event. Input can be
// injected from any goroutine with [Controller.InjectPress] and friends.
//
// # Sequences
//
// [NewSequence], [NewSeries], [NewParallel] and [NewInterpolated] build nodes
// that start, step and end on the controller clock, which stops while the
// engine is paused. [TweenGroup] drives up to four fields through easing
// curves from [gween].
//
// # Render handoff
//
// Chains alternate between two phases. The logic goroutine never runs more
// than one frame ahead of presentation, and stateful commands keep one
// instance per phase through [Buffered] so the chain in flight is never
// mutated.
//
// [gween]: https://github.com/tanema/gween
package canopy
