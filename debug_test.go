package canopy

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newDebugController(t *testing.T) (*Controller, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.FrameIntervalMs = 10
	c := NewController(cfg,
		WithClock(NewManualClock(0)),
		WithLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	)
	c.SetDebugMode(true)
	t.Cleanup(func() { c.SetDebugMode(false) })
	return c, &buf
}

// ---- Debug mode tests ------------------------------------------------------

func TestDebugMode_DisposedNodePanics(t *testing.T) {
	c, _ := newDebugController(t)
	parent := NewNode("parent")
	c.LogicRoot().AddNode(parent)

	child := NewNode("child")
	child.Dispose()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on AddNode with disposed node, got none")
		}
		if msg := fmt.Sprint(r); !strings.Contains(msg, "disposed") {
			t.Errorf("panic message should mention 'disposed', got: %s", msg)
		}
	}()
	parent.AddNode(child)
}

func TestDebugMode_DisposedParentPanics(t *testing.T) {
	newDebugController(t)
	parent := NewNode("parent")
	parent.Dispose()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on AddNode to disposed parent, got none")
		}
		if msg := fmt.Sprint(r); !strings.Contains(msg, "disposed") {
			t.Errorf("panic message should mention 'disposed', got: %s", msg)
		}
	}()
	parent.AddNode(NewNode("child"))
}

func TestReleaseMode_DisposedNodeNoPanic(t *testing.T) {
	c, _ := newTestController(t)
	child := NewNode("child")
	child.Dispose()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("release mode should not panic on disposed node, got: %v", r)
		}
	}()
	c.LogicRoot().AddNode(child)
}

func TestDebugMode_TreeDepthWarning(t *testing.T) {
	c, buf := newDebugController(t)
	current := c.LogicRoot()
	for i := 0; i < debugMaxTreeDepth+5; i++ {
		child := NewNode(fmt.Sprintf("depth_%d", i))
		current.AddNode(child)
		current = child
	}
	if !strings.Contains(buf.String(), "tree depth exceeds threshold") {
		t.Errorf("expected tree depth warning, got: %q", buf.String())
	}
}

func TestDebugMode_ChildCountWarning(t *testing.T) {
	c, buf := newDebugController(t)
	parent := NewNode("many_children")
	c.LogicRoot().AddNode(parent)
	for i := 0; i < debugMaxChildCount+1; i++ {
		parent.AddNode(NewNode(fmt.Sprintf("c_%d", i)))
	}
	out := buf.String()
	if !strings.Contains(out, "child count exceeds threshold") || !strings.Contains(out, "many_children") {
		t.Errorf("expected child count warning, got: %q", out)
	}
}

func TestDebugMode_TickStatsLogged(t *testing.T) {
	c, buf := newDebugController(t)
	p := c.NewPresenter(&recordDevice{})
	c.RenderRoot().OnRender = func(chain *CommandChain) { chain.Append(nameCmd("x")) }

	if err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.Present(time.Second)
	out := buf.String()
	if !strings.Contains(out, "msg=tick") || !strings.Contains(out, "commands=1") {
		t.Errorf("expected per-tick debug stats, got: %q", out)
	}
	if !strings.Contains(out, "engine="+c.ID.String()) {
		t.Error("log lines should carry the engine id")
	}
}

func TestReleaseMode_NoTickStats(t *testing.T) {
	c, buf := newDebugController(t)
	c.SetDebugMode(false)
	p := c.NewPresenter(&recordDevice{})
	c.Tick(context.Background())
	p.Present(time.Second)
	if strings.Contains(buf.String(), "msg=tick") {
		t.Error("tick stats should only be logged in debug mode")
	}
}
