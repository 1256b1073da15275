package canopy

import (
	"log/slog"
	"runtime/debug"
	"sync"
)

// CrashHandler receives a panic recovered from an engine goroutine along with
// its stack trace.
type CrashHandler func(recovered any, stack []byte)

// goSafe runs fn on a new goroutine tracked by wg. A panic is logged with its
// stack and passed to onCrash; without a handler it is re-raised so host
// crash reporting sees the original failure.
func goSafe(wg *sync.WaitGroup, log *slog.Logger, name string, onCrash CrashHandler, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := debug.Stack()
			log.Error("engine goroutine crashed", "goroutine", name, "panic", r, "stack", string(stack))
			if onCrash == nil {
				panic(r)
			}
			onCrash(r, stack)
		}()
		fn()
	}()
}
