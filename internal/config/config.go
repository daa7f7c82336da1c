// Package config holds the fixed settings of the circle-detect pipeline and
// the few ways to override them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/circle-detect/internal/annotate"
	"github.com/ironsheep/circle-detect/internal/detection"
)

// Environment variables read by FromEnv.
const (
	EnvConfigFile  = "CIRCLE_DETECT_CONFIG"
	EnvSamplesPath = "CIRCLE_DETECT_SAMPLES_PATH"
	EnvOutputDir   = "CIRCLE_DETECT_OUTPUT_DIR"
	EnvLogLevel    = "CIRCLE_DETECT_LOG_LEVEL"
)

// Config is everything the pipeline needs to run.
type Config struct {
	// Image is the file name to detect circles in, resolved through SearchPath.
	Image      string   `yaml:"image"`
	SearchPath []string `yaml:"search_path"`

	// BlurSize is the median window; it must be odd.
	BlurSize int `yaml:"blur_size"`

	Detector detection.Params `yaml:"detector"`
	Style    annotate.Style   `yaml:"style"`

	WindowTitle   string `yaml:"window_title"`
	DisplayWidth  int    `yaml:"display_width"`
	DisplayHeight int    `yaml:"display_height"`
	OutputDir     string `yaml:"output_dir"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Image:         "fang.JPG",
		SearchPath:    []string{"samples", filepath.Join("samples", "data")},
		BlurSize:      5,
		Detector:      detection.DefaultParams(),
		Style:         annotate.DefaultStyle(),
		WindowTitle:   "detected circles",
		DisplayWidth:  1280,
		DisplayHeight: 800,
		OutputDir:     ".",
		LogLevel:      "info",
	}
}

// Validate reports the first setting the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Image == "" {
		return errors.New("image must be set")
	}
	if c.BlurSize < 1 || c.BlurSize%2 == 0 {
		return fmt.Errorf("blur_size must be a positive odd number, got %d", c.BlurSize)
	}
	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	if err := c.Style.Validate(); err != nil {
		return fmt.Errorf("style: %w", err)
	}
	if c.DisplayWidth <= 0 || c.DisplayHeight <= 0 {
		return fmt.Errorf("display size must be positive, got %dx%d", c.DisplayWidth, c.DisplayHeight)
	}
	return nil
}

// Decode overlays the YAML document in r onto c. Keys absent from the
// document keep their current values; unknown keys are an error.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// LoadFile overlays the YAML file at path onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := c.Decode(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// FromEnv builds a Config from the defaults, then the YAML file named by
// CIRCLE_DETECT_CONFIG, then the remaining environment variables.
// lookup is normally os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path, ok := lookup(EnvConfigFile); ok && path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, err
		}
	}

	if v, ok := lookup(EnvSamplesPath); ok && v != "" {
		// Env directories are searched before the configured ones
		cfg.SearchPath = append(filepath.SplitList(v), cfg.SearchPath...)
	}
	if v, ok := lookup(EnvOutputDir); ok && v != "" {
		cfg.OutputDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}

	return cfg, cfg.Validate()
}
