package canopy

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// debugStats holds per-tick timing metrics.
// Only populated when the controller is in debug mode.
type debugStats struct {
	dispatchTime time.Duration
	updateTime   time.Duration
	buildTime    time.Duration
	eventCount   int
	commandCount int
}

// debugLog logs timing and command stats at debug level.
func (c *Controller) debugLog(stats debugStats) {
	if !c.debug {
		return
	}
	total := stats.dispatchTime + stats.updateTime + stats.buildTime
	c.log.Debug("tick",
		"tick", c.tick,
		"phase", c.phase.String(),
		"delta_ms", c.frameDelta,
		"dispatch", stats.dispatchTime,
		"update", stats.updateTime,
		"build", stats.buildTime,
		"total", total,
		"events", stats.eventCount,
		"commands", stats.commandCount,
	)
}

// debugMode mirrors the most recently set controller debug flag so that node
// operations on detached nodes, which lack a controller, can check it cheaply.
// With several controllers it reflects whichever called SetDebugMode last.
var (
	debugMode   atomic.Bool
	debugLogger atomic.Pointer[slog.Logger]
)

func setDebug(enabled bool, log *slog.Logger) {
	debugMode.Store(enabled)
	if log != nil {
		debugLogger.Store(log)
	}
}

func debugEnabled() bool {
	return debugMode.Load()
}

func debugWarn(msg string, args ...any) {
	log := debugLogger.Load()
	if log == nil {
		log = slog.Default()
	}
	log.Warn(msg, args...)
}

// debugCheckDisposed panics with a descriptive message when a disposed node is
// used in a tree operation. Only called in debug mode.
func debugCheckDisposed(n *Node, op string) {
	if n.disposed {
		panic(fmt.Sprintf("canopy debug: %s on disposed node %q", op, n.Name))
	}
}

// debugCheckTreeDepth warns if tree depth exceeds the threshold.
const debugMaxTreeDepth = 32

func debugCheckTreeDepth(n *Node) {
	depth := 0
	for p := n; p != nil; p = p.parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		debugWarn("tree depth exceeds threshold", "depth", depth, "threshold", debugMaxTreeDepth, "node", n.Name)
	}
}

// debugCheckChildCount warns if a node has more than 1000 children.
const debugMaxChildCount = 1000

func debugCheckChildCount(n *Node) {
	if count := n.NumChildren(); count > debugMaxChildCount {
		debugWarn("child count exceeds threshold", "node", n.Name, "children", count, "threshold", debugMaxChildCount)
	}
}
