// Package config loads the kmspost settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/NeowayLabs/kmspost/gralloc"
)

// ModeEnv overrides the configured mode hint when set.
const ModeEnv = "KMSPOST_MODE"

// Config is the complete kmspost configuration
type Config struct {
	Card    int    `yaml:"card"`    // /dev/dri/card<n>
	Backend string `yaml:"backend"` // allocator backend: dumb
	Mode    string `yaml:"mode"`    // <w>x<h>[@<bpp>], empty for the preferred mode

	// Posting overrides, the backend decides when unset
	SwapMode     string `yaml:"swap_mode,omitempty"` // flip, copy, setcrtc, noop
	SwapInterval *int   `yaml:"swap_interval,omitempty"`

	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json, empty picks by terminal

	Frames int    `yaml:"frames"` // frames to post before exiting
	Image  string `yaml:"image,omitempty"`
}

func Default() *Config {
	return &Config{
		Card:     0,
		Backend:  "dumb",
		LogLevel: "info",
		Frames:   120,
	}
}

// Load reads and parses a YAML configuration file. Unset fields keep
// their default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func Validate(cfg *Config) error {
	var errs []error
	if cfg.Card < 0 {
		errs = append(errs, fmt.Errorf("card must be >= 0, got %d", cfg.Card))
	}
	if cfg.Backend != "dumb" {
		errs = append(errs, fmt.Errorf("unknown backend %q", cfg.Backend))
	}
	if cfg.SwapMode != "" {
		if _, err := gralloc.ParseSwapMode(cfg.SwapMode); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.SwapInterval != nil && *cfg.SwapInterval < 0 {
		errs = append(errs, fmt.Errorf("swap_interval must be >= 0, got %d", *cfg.SwapInterval))
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q", cfg.LogFormat))
	}
	if cfg.Frames < 0 {
		errs = append(errs, fmt.Errorf("frames must be >= 0, got %d", cfg.Frames))
	}
	return errors.Join(errs...)
}

// ModeHint returns the mode hint, KMSPOST_MODE taking precedence.
func (c *Config) ModeHint() string {
	if m := os.Getenv(ModeEnv); m != "" {
		return m
	}
	return c.Mode
}

// FeatureOverride returns the posting overrides to apply on top of the
// backend's choice, nil when there are none.
func (c *Config) FeatureOverride() func(*gralloc.Features) {
	if c.SwapMode == "" && c.SwapInterval == nil {
		return nil
	}

	swap, err := gralloc.ParseSwapMode(c.SwapMode)
	hasSwap := c.SwapMode != "" && err == nil
	return func(f *gralloc.Features) {
		if hasSwap {
			f.SwapMode = swap
		}
		if c.SwapInterval != nil {
			f.SwapInterval = *c.SwapInterval
		}
	}
}
