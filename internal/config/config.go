// Package config holds the runtime configuration of the drawing engine.
package config

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"psoriasis-draw/internal/prefs"
	"psoriasis-draw/internal/retry"
	"psoriasis-draw/pkg/colorutil"
)

// Duration is a time.Duration written as a string such as "250ms".
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Body regions rendered for a full-body drawing, in baseline order.
var DefaultRegions = []string{
	"aboveTheWaistFront",
	"belowTheWaistFront",
	"aboveTheWaistBack",
	"belowTheWaistBack",
}

// Config holds runtime configuration. Fields may be loaded from a JSON or
// TOML file and overridden by command-line flags.
type Config struct {
	Debug bool `json:"debug" toml:"debug"`

	// Drawing
	LineWidth      float64 `json:"line_width" toml:"line_width"`
	SelectionColor string  `json:"selection_color" toml:"selection_color"`
	FillColor      string  `json:"fill_color" toml:"fill_color"`

	// Baseline cache
	CacheNamespace string   `json:"cache_namespace" toml:"cache_namespace"`
	PrefsBackend   string   `json:"prefs_backend" toml:"prefs_backend"`
	PrefsPath      string   `json:"prefs_path" toml:"prefs_path"`
	AppID          string   `json:"app_id" toml:"app_id"`
	Regions        []string `json:"regions" toml:"regions"`

	// Output
	OutputDir   string `json:"output_dir" toml:"output_dir"`
	JPEGQuality int    `json:"jpeg_quality" toml:"jpeg_quality"`

	// Image loading retry
	ImageLoadAttempts int      `json:"image_load_attempts" toml:"image_load_attempts"`
	ImageLoadDelay    Duration `json:"image_load_delay" toml:"image_load_delay"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	policy := retry.DefaultPolicy()
	return &Config{
		LineWidth:         5,
		SelectionColor:    "#FF0000",
		FillColor:         "#D1D1D1",
		CacheNamespace:    "psoriasisDrawFullCoverage",
		PrefsBackend:      prefs.BackendFile,
		AppID:             "org.psorcast.draw",
		Regions:           append([]string(nil), DefaultRegions...),
		OutputDir:         ".",
		JPEGQuality:       90,
		ImageLoadAttempts: policy.MaxAttempts,
		ImageLoadDelay:    Duration{policy.Delay},
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.LineWidth <= 0 {
		c.LineWidth = def.LineWidth
	}
	if _, err := colorutil.ParseHex(c.SelectionColor); err != nil {
		c.SelectionColor = def.SelectionColor
	}
	if _, err := colorutil.ParseHex(c.FillColor); err != nil {
		c.FillColor = def.FillColor
	}
	if c.CacheNamespace == "" {
		c.CacheNamespace = def.CacheNamespace
	}
	switch c.PrefsBackend {
	case "":
		c.PrefsBackend = def.PrefsBackend
	case prefs.BackendFile, prefs.BackendFyne:
	default:
		return fmt.Errorf("unknown prefs backend %q", c.PrefsBackend)
	}
	if c.AppID == "" {
		c.AppID = def.AppID
	}
	if len(c.Regions) == 0 {
		c.Regions = def.Regions
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		c.JPEGQuality = def.JPEGQuality
	}
	if c.ImageLoadAttempts < 1 {
		c.ImageLoadAttempts = def.ImageLoadAttempts
	}
	if c.ImageLoadDelay.Duration < 0 {
		c.ImageLoadDelay = def.ImageLoadDelay
	}
	return nil
}

// Selection returns the pen color.
func (c *Config) Selection() color.RGBA {
	if v, err := colorutil.ParseHex(c.SelectionColor); err == nil {
		return v
	}
	return colorutil.Selection
}

// Fill returns the color full-coverage passes are drawn with.
func (c *Config) Fill() color.RGBA {
	if v, err := colorutil.ParseHex(c.FillColor); err == nil {
		return v
	}
	return colorutil.BodyGray
}

// RetryPolicy returns the image loading retry policy.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: c.ImageLoadAttempts, Delay: c.ImageLoadDelay.Duration}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load attempts to read configuration from path, as TOML when the extension
// is .toml and JSON otherwise. If the file does not exist it returns
// DefaultConfig(). On decode error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if isTOML(path) {
		_, err = toml.Decode(string(data), cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return DefaultConfig(), fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path in the format its extension selects.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if isTOML(path) {
		return toml.NewEncoder(f).Encode(c)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
