package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/phanxgames/canopy"
	"github.com/phanxgames/canopy/internal/demo"
	"github.com/phanxgames/canopy/termhost"
	"github.com/spf13/cobra"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Ticks    int
	Terminal bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo scene",
		Long: `Run the demo scene on the engine's logic and presentation goroutines.

Headless runs present to a counting device and stop after --ticks ticks.
With --term the scene is drawn in the terminal until Escape or Ctrl-C.

Example:
  canopy run --ticks 600
  canopy run --term --config ./canopy.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Ticks, "ticks", "n", 300, "ticks to run headless (0 runs until interrupted)")
	cmd.Flags().BoolVar(&opts.Terminal, "term", false, "draw in the terminal")

	return cmd
}

// countingDevice is the headless device. It only counts frames.
type countingDevice struct {
	frames atomic.Uint64
}

func (d *countingDevice) BeginFrame(uint64) {}
func (d *countingDevice) EndFrame()         { d.frames.Add(1) }

func runDemo(cmd *cobra.Command, opts *RunOptions) error {
	if opts.Ticks < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--ticks must be >= 0, got %d", opts.Ticks))
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	log := opts.logger(cfg, cmd.ErrOrStderr())

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	ctrl := canopy.NewController(cfg, canopy.WithLogger(log))
	if opts.Terminal {
		return runTerminal(ctx, ctrl, log, cmd.OutOrStdout())
	}
	return runHeadless(ctx, cancel, ctrl, opts.Ticks, cmd.OutOrStdout())
}

func runHeadless(ctx context.Context, cancel context.CancelFunc, ctrl *canopy.Controller, ticks int, out io.Writer) error {
	dev := &countingDevice{}
	scene := demo.Build(ctrl, demo.Null{}, demo.TerminalOptions())

	if ticks > 0 {
		counter := canopy.NewNode("tick-limit")
		var n int
		counter.OnUpdate = func(int64) bool {
			n++
			if n >= ticks {
				cancel()
			}
			return false
		}
		ctrl.LogicRoot().AddNode(counter)
	}

	engine := canopy.NewEngine(ctrl, dev)
	if err := engine.Start(ctx); err != nil {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	<-ctx.Done()
	if err := engine.Stop(); err != nil && !errors.Is(err, canopy.ErrStopped) {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	stats := ctrl.Stats()
	fmt.Fprintf(out, "ticks %d  frames %d  elapsed %dms  bounces %d  pulses %d\n",
		stats.Tick, dev.frames.Load(), ctrl.TotalElapsed(), scene.Bounces, scene.Pulses)
	return nil
}

func runTerminal(ctx context.Context, ctrl *canopy.Controller, log *slog.Logger, out io.Writer) error {
	screen, err := termhost.NewScreen()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open terminal", err)
	}

	w, h := screen.Size()
	sceneOpts := demo.TerminalOptions()
	sceneOpts.Width, sceneOpts.Height = float64(w), float64(h)
	palette := demo.Terminal{Foreground: canopy.Color{R: 0.8, G: 0.8, B: 0.8, A: 1}}
	scene := demo.Build(ctrl, palette, sceneOpts)

	engine := canopy.NewEngine(ctrl, termhost.NewDevice(screen))
	err = termhost.NewHost(engine).Run(ctx)
	screen.Fini()
	if err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	log.Info("terminal run finished", "bounces", scene.Bounces)
	fmt.Fprintln(out, scene.Status())
	return nil
}
