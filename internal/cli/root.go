package cli

import (
	"io"
	"log/slog"

	"github.com/phanxgames/canopy"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Config  string // path to a YAML config file; empty uses defaults
}

// NewRootCommand creates the root command for the canopy CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "canopy",
		Short: "canopy - scene-graph engine core",
		Long: `Run the canopy demo scene headless or in a terminal, and inspect the
engine configuration.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "path to YAML config file")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// loadConfig returns the config named by --config, or the defaults.
func (o *RootOptions) loadConfig() (canopy.Config, error) {
	if o.Config == "" {
		return canopy.DefaultConfig(), nil
	}
	cfg, err := canopy.LoadConfigFile(o.Config)
	if err != nil {
		return canopy.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// logger builds a text logger at the config's level, or Debug with --verbose.
func (o *RootOptions) logger(cfg canopy.Config, w io.Writer) *slog.Logger {
	level, err := canopy.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
