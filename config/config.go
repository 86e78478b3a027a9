// Package config loads runtime settings.
//
// Settings are resolved in order: built-in defaults, an optional TOML file,
// then ARPLACE_-prefixed environment variables. The result is validated
// before it is returned.
//
//	[log]
//	level = "debug"
//	format = "console"
//
//	[catalog]
//	path = "objects.toml"
//	watch = true
//
//	[placement]
//	max_placed = 1
//
// The same settings from the environment:
//
//	ARPLACE_LOG_LEVEL=debug ARPLACE_CATALOG_WATCH=true ARPLACE_PLACEMENT_MAX_PLACED=1
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/wippyai/ar-placement/errors"
	"github.com/wippyai/ar-placement/xr"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "ARPLACE_"

type Config struct {
	Log       LogConfig       `toml:"log" envPrefix:"LOG_"`
	Catalog   CatalogConfig   `toml:"catalog" envPrefix:"CATALOG_"`
	Session   SessionConfig   `toml:"session" envPrefix:"SESSION_"`
	Placement PlacementConfig `toml:"placement" envPrefix:"PLACEMENT_"`
	Sim       SimConfig       `toml:"sim" envPrefix:"SIM_"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
	// File receives log output; empty means stderr.
	File string `toml:"file" env:"FILE"`
}

type CatalogConfig struct {
	// Path to a .toml, .yaml or .json object table.
	Path string `toml:"path" env:"PATH"`
	// AssetRoot overrides the root declared inside the catalog file.
	AssetRoot string `toml:"asset_root" env:"ASSET_ROOT"`
	Watch     bool   `toml:"watch" env:"WATCH"`
}

type SessionConfig struct {
	OptionalFeatures []string `toml:"optional_features" env:"OPTIONAL_FEATURES"`
}

type PlacementConfig struct {
	// MaxPlaced caps simultaneously placed objects; 0 means unlimited.
	MaxPlaced int `toml:"max_placed" env:"MAX_PLACED"`
	// ReleaseOnEnd frees every loaded object when a session ends.
	ReleaseOnEnd bool `toml:"release_on_end" env:"RELEASE_ON_END"`
}

// SimConfig drives the simulated platform used by the CLI.
type SimConfig struct {
	FrameRate   int           `toml:"frame_rate" env:"FRAME_RATE"`
	LoadLatency time.Duration `toml:"load_latency" env:"LOAD_LATENCY"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Session: SessionConfig{
			OptionalFeatures: []string{string(xr.FeatureDOMOverlay)},
		},
		Sim: SimConfig{
			FrameRate:   30,
			LoadLatency: 400 * time.Millisecond,
		},
	}
}

// Load resolves settings from path (skipped when empty) and the process
// environment.
func Load(path string) (Config, error) {
	return load(path, nil)
}

func load(path string, environ map[string]string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read "+path)
		}
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "decode "+path)
		}
	}

	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse env")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var (
	levels   = []string{"debug", "info", "warn", "error"}
	formats  = []string{"console", "json"}
	features = []xr.Feature{xr.FeatureHitTest, xr.FeatureDOMOverlay, xr.FeatureLightEstimation}
)

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if !slices.Contains(levels, c.Log.Level) {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("log level %q", c.Log.Level))
	}
	if !slices.Contains(formats, c.Log.Format) {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("log format %q", c.Log.Format))
	}
	if c.Placement.MaxPlaced < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "max_placed must not be negative")
	}
	if c.Sim.FrameRate < 1 || c.Sim.FrameRate > 240 {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("frame rate %d outside 1..240", c.Sim.FrameRate))
	}
	if c.Sim.LoadLatency < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "load latency must not be negative")
	}
	for _, f := range c.Session.OptionalFeatures {
		if !slices.Contains(features, xr.Feature(f)) {
			return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown feature %q", f))
		}
	}
	return nil
}

// Features returns the optional session features as typed values.
func (c Config) Features() []xr.Feature {
	out := make([]xr.Feature, len(c.Session.OptionalFeatures))
	for i, f := range c.Session.OptionalFeatures {
		out[i] = xr.Feature(f)
	}
	return out
}

// FrameInterval is the simulated display period.
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Sim.FrameRate)
}
