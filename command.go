package canopy

import "fmt"

// Device is the graphics device the presentation goroutine executes commands
// against. BeginFrame and EndFrame bracket one chain.
type Device interface {
	BeginFrame(tick uint64)
	EndFrame()
}

// Command is a single draw instruction. Its contents are opaque to the
// pipeline, which only queues it during a tick and executes it later.
type Command interface {
	Execute(dev Device)
}

// CommandFunc adapts a stateless function to Command.
type CommandFunc func(dev Device)

// Execute calls f(dev).
func (f CommandFunc) Execute(dev Device) { f(dev) }

// CommandChain is the ordered list of commands built during one logic tick.
// The logic goroutine appends to the current chain during the render
// traversal, seals it, and hands it to the presentation goroutine, which owns
// it until it has executed every command. The backing slice is reused across
// ticks, so a steady-state chain does not allocate.
type CommandChain struct {
	cmds   []Command
	phase  Phase
	tick   uint64
	sealed bool
	owner  *renderHandoff
}

// NewCommandChain creates an empty, unsealed chain for standalone use.
func NewCommandChain(phase Phase, capacity int) *CommandChain {
	return &CommandChain{cmds: make([]Command, 0, capacity), phase: phase}
}

// Append adds cmd to the end of the chain. Panics if cmd is nil or the chain
// is sealed.
func (ch *CommandChain) Append(cmd Command) {
	if cmd == nil {
		panic("canopy: append of nil command")
	}
	if ch.sealed {
		panic("canopy: append to sealed command chain")
	}
	ch.cmds = append(ch.cmds, cmd)
}

// Phase returns the double-buffer phase this chain was built in.
func (ch *CommandChain) Phase() Phase { return ch.phase }

// Tick returns the tick number this chain was built in.
func (ch *CommandChain) Tick() uint64 { return ch.tick }

// Len returns the number of commands.
func (ch *CommandChain) Len() int { return len(ch.cmds) }

// Sealed reports whether the chain has been terminated for handoff.
func (ch *CommandChain) Sealed() bool { return ch.sealed }

// Commands returns the command list. The returned slice MUST NOT be mutated.
func (ch *CommandChain) Commands() []Command { return ch.cmds }

// begin clears the chain for a new tick in the given phase.
func (ch *CommandChain) begin(phase Phase, tick uint64) {
	if ch.owner != nil && ch.owner.busy[phase].Load() {
		panic(fmt.Sprintf("canopy: building phase %s while it is in flight", phase))
	}
	clear(ch.cmds)
	ch.cmds = ch.cmds[:0]
	ch.phase = phase
	ch.tick = tick
	ch.sealed = false
}

// seal terminates the chain; no more commands may be appended.
func (ch *CommandChain) seal() {
	ch.sealed = true
}

// execute runs every command against dev. An empty chain is a valid frame.
func (ch *CommandChain) execute(dev Device) {
	dev.BeginFrame(ch.tick)
	for _, cmd := range ch.cmds {
		cmd.Execute(dev)
	}
	dev.EndFrame()
}

// --- Double buffering ---

// Buffered holds one instance of a stateful command per phase. The logic
// goroutine fills the instance for the chain it is building while the other
// instance may still be executing on the presentation goroutine, so neither
// is written concurrently and neither is reallocated per frame.
type Buffered[T any] struct {
	slots [2]T
}

// For returns the instance that belongs to chain's phase, for filling and
// appending to chain. Panics if that phase is still in flight.
func (b *Buffered[T]) For(chain *CommandChain) *T {
	if chain.sealed {
		panic("canopy: write into sealed command chain")
	}
	if chain.owner != nil && chain.owner.busy[chain.phase].Load() {
		panic(fmt.Sprintf("canopy: phase %s command written while in flight", chain.phase))
	}
	return &b.slots[chain.phase]
}

// Slot returns the instance for phase without ownership checks.
func (b *Buffered[T]) Slot(phase Phase) *T {
	return &b.slots[phase]
}
