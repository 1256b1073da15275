package canopy

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Clock is the controller's monotonic time source. Now is measured from an
// arbitrary epoch and never goes backwards.
type Clock interface {
	Now() time.Duration
	// Sleep waits for d or until ctx ends, whichever is first. An early
	// return is treated by callers as if the wait completed.
	Sleep(ctx context.Context, d time.Duration)
	// AfterFunc calls f on its own goroutine after d.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc callback.
type Timer interface {
	Stop() bool
}

// systemClock reads the runtime's monotonic clock.
type systemClock struct {
	start time.Time
	timer *time.Timer // reused by Sleep; only the logic goroutine sleeps
}

// NewSystemClock returns a Clock backed by the monotonic reading of time.Now.
func NewSystemClock() Clock {
	return &systemClock{start: time.Now()}
}

func (c *systemClock) Now() time.Duration {
	return time.Since(c.start)
}

func (c *systemClock) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	if c.timer == nil {
		c.timer = time.NewTimer(d)
	} else {
		c.timer.Reset(d)
	}
	select {
	case <-c.timer.C:
	case <-ctx.Done():
		if !c.timer.Stop() {
			select {
			case <-c.timer.C:
			default:
			}
		}
	}
}

func (c *systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualClock is a Clock that only moves when told to. Sleep advances it by
// the requested duration and returns immediately, so throttled ticks run at
// full speed in tests while still observing the target interval.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	clock   *ManualClock
	due     time.Duration
	f       func()
	stopped bool
}

// NewManualClock creates a manual clock reading start.
func NewManualClock(start time.Duration) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (m *ManualClock) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Sleep advances the clock by d.
func (m *ManualClock) Sleep(_ context.Context, d time.Duration) {
	if d > 0 {
		m.Advance(d)
	}
}

// Advance moves the clock forward by d and runs every timer that became due,
// in due order, on the calling goroutine.
func (m *ManualClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	now := m.now
	var due []*manualTimer
	keep := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped && t.due <= now {
			due = append(due, t)
		} else if !t.stopped {
			keep = append(keep, t)
		}
	}
	for i := len(keep); i < len(m.timers); i++ {
		m.timers[i] = nil
	}
	m.timers = keep
	m.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].due < due[j].due })
	for _, t := range due {
		t.f()
	}
}

// AfterFunc registers f to run once the clock has advanced by d.
func (m *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{clock: m, due: m.now + d, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Pending returns the number of timers that have not fired or been stopped.
func (m *ManualClock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (t *manualTimer) Stop() bool {
	m := t.clock
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.stopped {
		return false
	}
	for i, o := range m.timers {
		if o == t {
			t.stopped = true
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}
