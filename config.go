package canopy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every Config validation error.
var ErrInvalidConfig = errors.New("canopy: invalid config")

// Config tunes a Controller. Times are in milliseconds.
type Config struct {
	// FrameIntervalMs is the target tick interval. A tick that finishes
	// early sleeps the remainder and reports the full interval as its delta.
	FrameIntervalMs int64 `yaml:"frame_interval_ms"`
	// MaxFrameDeltaMs clamps the delta after a long stall. Zero disables.
	MaxFrameDeltaMs int64 `yaml:"max_frame_delta_ms"`
	// PresentWaitMs bounds how long the presenter waits for a chain before
	// running its idle checks.
	PresentWaitMs int64 `yaml:"present_wait_ms"`

	EventPoolWarm    int `yaml:"event_pool_warm"`
	SequencePoolWarm int `yaml:"sequence_pool_warm"`
	CommandCapacity  int `yaml:"command_capacity"`
	FindDepth        int `yaml:"find_depth"`

	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the settings used when none are supplied.
func DefaultConfig() Config {
	return Config{
		FrameIntervalMs:  16,
		MaxFrameDeltaMs:  250,
		PresentWaitMs:    100,
		EventPoolWarm:    64,
		SequencePoolWarm: 16,
		CommandCapacity:  1024,
		FindDepth:        defaultFindDepth,
		LogLevel:         "info",
	}
}

// LoadConfig parses YAML over DefaultConfig and validates the result.
// Unknown keys are rejected.
func LoadConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads and parses a YAML config file.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return LoadConfig(data)
}

// Marshal renders the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks ranges and the log level.
func (c Config) Validate() error {
	switch {
	case c.FrameIntervalMs < 0:
		return fmt.Errorf("%w: frame_interval_ms must be >= 0, got %d", ErrInvalidConfig, c.FrameIntervalMs)
	case c.MaxFrameDeltaMs < 0:
		return fmt.Errorf("%w: max_frame_delta_ms must be >= 0, got %d", ErrInvalidConfig, c.MaxFrameDeltaMs)
	case c.MaxFrameDeltaMs > 0 && c.MaxFrameDeltaMs < c.FrameIntervalMs:
		return fmt.Errorf("%w: max_frame_delta_ms (%d) is below frame_interval_ms (%d)",
			ErrInvalidConfig, c.MaxFrameDeltaMs, c.FrameIntervalMs)
	case c.PresentWaitMs < 0:
		return fmt.Errorf("%w: present_wait_ms must be >= 0, got %d", ErrInvalidConfig, c.PresentWaitMs)
	case c.EventPoolWarm < 0 || c.SequencePoolWarm < 0:
		return fmt.Errorf("%w: pool warm sizes must be >= 0", ErrInvalidConfig)
	case c.CommandCapacity < 0:
		return fmt.Errorf("%w: command_capacity must be >= 0, got %d", ErrInvalidConfig, c.CommandCapacity)
	case c.FindDepth < 0:
		return fmt.Errorf("%w: find_depth must be >= 0, got %d", ErrInvalidConfig, c.FindDepth)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps debug|info|warn|error (case-insensitive, empty = info)
// to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, s)
}

func (c Config) frameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMs) * time.Millisecond
}

func (c Config) presentWait() time.Duration {
	return time.Duration(c.PresentWaitMs) * time.Millisecond
}
