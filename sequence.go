package canopy

import "github.com/tanema/gween/ease"

// TimeUnset marks a sequence time field that has not been fixed yet. All
// sequence times are integer milliseconds on the controller clock, where 0 is
// a valid instant.
const TimeUnset int64 = -1

// Sequence is the time-driven state attached to a sequence, series or
// parallel Node. Once per tick, while its node is attached, it moves through
// Held, Waiting, Started, Stepping, Ended and, for one-shot sequences, Removed.
// Exactly one transition is taken per tick, in that priority order.
//
// Sequences never consult wall-clock time: they read the controller's total
// elapsed time, which does not advance while the engine is paused.
type Sequence struct {
	node *Node

	// Duration is the run length in milliseconds. Zero means the end is
	// decided by stepping, or, with no steps, that the sequence ends on the
	// tick after it starts. For a series or parallel it is a minimum.
	Duration int64

	// StepInterval schedules a step every StepInterval milliseconds after
	// start until the end time. Step, when set, overrides the schedule: it is
	// called on every due step and returns the next step time, or 0 for no
	// more steps.
	StepInterval int64
	Step         func(s *Sequence, now int64) int64

	// OneShot detaches the node on the tick after it ends.
	OneShot bool

	// Ease remaps normalized progress. Nil means linear.
	Ease ease.TweenFunc

	// Notification codes posted up from the node; EventNone disables.
	StartEvent EventType
	StepEvent  EventType
	EndEvent   EventType

	// Notification hooks, invoked synchronously on the transition.
	OnStart    func(s *Sequence)
	OnStep     func(s *Sequence)
	OnEnd      func(s *Sequence)
	OnProgress func(s *Sequence, progress float64)

	startTime int64
	endTime   int64
	stepTime  int64
	elapsed   int64
	progress  float64

	explicitStart bool
	explicitEnd   bool

	hold    bool
	started bool
	ended   bool
	pooled  bool
}

func newSequenceNode(name string, typ NodeType, duration int64) *Node {
	n := &Node{Name: name, Type: typ}
	nodeDefaults(n)
	n.Seq = &Sequence{node: n, Duration: duration}
	n.Seq.clearTimes()
	return n
}

// NewSequence creates a detached sequence node that runs for duration
// milliseconds once started.
func NewSequence(name string, duration int64) *Node {
	return newSequenceNode(name, NodeTypeSequence, duration)
}

// NewInterpolated creates a sequence whose Progress follows fn over duration.
func NewInterpolated(name string, duration int64, fn ease.TweenFunc) *Node {
	n := newSequenceNode(name, NodeTypeSequence, duration)
	n.Seq.Ease = fn
	return n
}

// NewSeries creates a series node. Every child added to it is held; the
// series releases them one at a time, starting the next when the previous
// one ends.
func NewSeries(name string, children ...*Node) *Node {
	n := newSequenceNode(name, NodeTypeSeries, 0)
	for _, c := range children {
		n.AddNode(c)
	}
	return n
}

// NewParallel creates a parallel node whose children start together when it
// starts.
func NewParallel(name string, children ...*Node) *Node {
	n := newSequenceNode(name, NodeTypeParallel, 0)
	for _, c := range children {
		n.AddNode(c)
	}
	return n
}

func (s *Sequence) clearTimes() {
	if !s.explicitStart {
		s.startTime = TimeUnset
	}
	if !s.explicitEnd {
		s.endTime = TimeUnset
	}
	s.stepTime = TimeUnset
	s.elapsed = 0
	s.progress = 0
}

// --- Accessors ---

// Node returns the node this sequence drives.
func (s *Sequence) Node() *Node { return s.node }

// StartTime returns the start time, or TimeUnset.
func (s *Sequence) StartTime() int64 { return s.startTime }

// EndTime returns the end time, or TimeUnset.
func (s *Sequence) EndTime() int64 { return s.endTime }

// StepTime returns the next due step, or TimeUnset when none is scheduled.
func (s *Sequence) StepTime() int64 { return s.stepTime }

// Elapsed returns milliseconds since start, as of the last tick.
func (s *Sequence) Elapsed() int64 { return s.elapsed }

// Progress returns normalized, eased progress in [0, 1].
func (s *Sequence) Progress() float64 { return s.progress }

// Started reports whether the sequence has started.
func (s *Sequence) Started() bool { return s.started }

// Ended reports whether the sequence has ended.
func (s *Sequence) Ended() bool { return s.ended }

// Held reports whether the sequence is held.
func (s *Sequence) Held() bool { return s.hold }

// Hold stops the sequence from starting until Release.
func (s *Sequence) Hold() { s.hold = true }

// Release clears a hold.
func (s *Sequence) Release() { s.hold = false }

// SetStartTime fixes the start time. It survives Reset.
func (s *Sequence) SetStartTime(t int64) {
	s.startTime = t
	s.explicitStart = t != TimeUnset
}

// SetEndTime fixes the end time. It survives Reset.
func (s *Sequence) SetEndTime(t int64) {
	s.endTime = t
	s.explicitEnd = t != TimeUnset
}

// Reset returns the sequence, and for composites every child sequence, to the
// unstarted state. Series children are held again.
func (s *Sequence) Reset() {
	s.started = false
	s.ended = false
	s.clearTimes()
	if !s.composite() {
		return
	}
	for i := 0; ; i++ {
		ch := s.node.child(i)
		if ch == nil {
			break
		}
		if ch.Seq == nil {
			continue
		}
		ch.Seq.Reset()
		if s.node.Type == NodeTypeSeries {
			ch.Seq.hold = true
		}
	}
}

// --- Transition predicates ---

// ShouldStart reports whether the sequence would start at now.
func (s *Sequence) ShouldStart(now int64) bool {
	if s.started || s.hold {
		return false
	}
	return s.startTime == TimeUnset || now >= s.startTime
}

// ShouldEnd reports whether the sequence would end at now. A series or
// parallel additionally requires every child sequence to have ended or to be
// ready to end.
//
// A composite advances before its children, so it can end in the same tick
// as its last running child and ahead of it: the composite's OnEnd and end
// notification come first, while that child still reports Ended false. The
// child ends later in the same update pass.
func (s *Sequence) ShouldEnd(now int64) bool {
	if !s.started || s.ended || s.endTime == TimeUnset || now < s.endTime {
		return false
	}
	if !s.composite() {
		return true
	}
	for i := 0; ; i++ {
		ch := s.node.child(i)
		if ch == nil {
			return true
		}
		if ch.Seq != nil && !ch.Seq.ended && !ch.Seq.ShouldEnd(now) {
			return false
		}
	}
}

func (s *Sequence) composite() bool {
	return s.node.Type == NodeTypeSeries || s.node.Type == NodeTypeParallel
}

func (s *Sequence) stepping() bool {
	return s.StepInterval > 0 || s.Step != nil
}

// waitingOnParent reports whether a composite parent that has not started
// yet owns the decision to start this sequence.
func (s *Sequence) waitingOnParent() bool {
	p := s.node.parent
	return p != nil && p.Seq != nil && p.Seq.composite() && !p.Seq.started
}

// --- State machine ---

// advance evaluates one transition at now. It reports whether state changed
// and whether the node detached itself.
func (s *Sequence) advance(n *Node, now int64) (changed, detached bool) {
	if s.hold {
		return false, false
	}
	if !s.started {
		if s.waitingOnParent() || !s.ShouldStart(now) {
			return false, false
		}
		s.start(now)
		return true, false
	}
	if !s.ended {
		s.track(now)
	}
	switch {
	case s.stepTime != TimeUnset && now >= s.stepTime && !s.ended:
		s.step(now)
		return true, false
	case s.ShouldEnd(now):
		s.end(now)
		return true, false
	case s.ended && s.OneShot:
		c := n.ctrl
		n.Remove()
		if s.pooled && c != nil {
			c.sequences.Recycle(n)
		}
		return true, true
	}
	return !s.ended && s.Duration > 0, false
}

// track updates elapsed time and progress, notifying OnProgress.
func (s *Sequence) track(now int64) {
	s.elapsed = now - s.startTime
	if s.elapsed < 0 {
		s.elapsed = 0
	}
	s.progress = s.computeProgress()
	if s.OnProgress != nil {
		s.OnProgress(s, s.progress)
	}
}

func (s *Sequence) computeProgress() float64 {
	d := s.Duration
	if d <= 0 && s.endTime != TimeUnset {
		d = s.endTime - s.startTime
	}
	if d <= 0 {
		if s.started && (s.ended || s.endTime != TimeUnset) {
			return 1
		}
		return 0
	}
	e := s.elapsed
	if e > d {
		e = d
	}
	if s.Ease != nil {
		p := float64(s.Ease(float32(e), 0, 1, float32(d)))
		if p < 0 {
			return 0
		}
		if p > 1 {
			return 1
		}
		return p
	}
	return float64(e) / float64(d)
}

func (s *Sequence) start(now int64) {
	s.started = true
	s.hold = false
	if s.startTime == TimeUnset {
		s.startTime = now
	}
	if s.endTime == TimeUnset && (s.Duration > 0 || s.composite() || !s.stepping()) {
		s.endTime = s.startTime + s.Duration
	}
	switch {
	case s.StepInterval > 0:
		s.stepTime = s.startTime + s.StepInterval
	case s.Step != nil:
		s.stepTime = s.startTime
	default:
		s.stepTime = TimeUnset
	}
	s.elapsed = 0
	s.progress = s.computeProgress()

	if s.OnStart != nil {
		s.OnStart(s)
	}
	s.notify(s.StartEvent, now)
	if p := s.node.parent; p != nil && p.Seq != nil && p.Seq.composite() {
		p.Seq.childStarted(s)
	}

	switch s.node.Type {
	case NodeTypeSeries:
		s.startNext(now)
	case NodeTypeParallel:
		for i := 0; ; i++ {
			ch := s.node.child(i)
			if ch == nil {
				break
			}
			if ch.Seq != nil && !ch.Seq.hold && !ch.Seq.started {
				ch.Seq.start(now)
			}
		}
	}
}

func (s *Sequence) step(now int64) {
	if s.OnStep != nil {
		s.OnStep(s)
	}
	s.notify(s.StepEvent, now)

	next := TimeUnset
	if s.Step != nil {
		if t := s.Step(s, now); t != 0 {
			next = t
		}
	} else if s.StepInterval > 0 {
		next = s.stepTime + s.StepInterval
		if s.endTime != TimeUnset && next > s.endTime {
			next = TimeUnset
		}
	}
	s.stepTime = next
	if next == TimeUnset && s.endTime == TimeUnset {
		s.endTime = now
	}
}

func (s *Sequence) end(now int64) {
	s.ended = true
	s.stepTime = TimeUnset
	s.track(now)
	if s.OnEnd != nil {
		s.OnEnd(s)
	}
	s.notify(s.EndEvent, now)
	if p := s.node.parent; p != nil && p.Seq != nil && p.Seq.composite() {
		p.Seq.childEnded(s, now)
	}
}

func (s *Sequence) notify(code EventType, now int64) {
	if code == EventNone || s.node.ctrl == nil {
		return
	}
	ev := s.node.ctrl.NewEvent(code)
	ev.Int = now
	ev.Object = s
	s.node.PostUp(ev)
}

// --- Composition ---

func (s *Sequence) childAdded(child *Node) {
	if s.node.Type == NodeTypeSeries && child.Seq != nil && !child.Seq.started {
		child.Seq.hold = true
	}
}

func (s *Sequence) childStarted(child *Sequence) {
	s.raiseEnd(child.endTime)
}

func (s *Sequence) childEnded(child *Sequence, now int64) {
	end := child.endTime
	if end == TimeUnset || end < now {
		end = now
	}
	s.raiseEnd(end)
	if s.node.Type == NodeTypeSeries && s.started && !s.ended {
		s.startNext(now)
	}
}

func (s *Sequence) raiseEnd(t int64) {
	if t == TimeUnset {
		return
	}
	if s.endTime == TimeUnset || t > s.endTime {
		s.endTime = t
	}
}

// startNext releases and starts the first held child that has not started.
func (s *Sequence) startNext(now int64) {
	for i := 0; ; i++ {
		ch := s.node.child(i)
		if ch == nil {
			return
		}
		if ch.Seq != nil && ch.Seq.hold && !ch.Seq.started {
			ch.Seq.start(now)
			return
		}
	}
}
