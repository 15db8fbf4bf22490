// Package config loads the YAML configuration that overrides the CLI's
// built-in defaults for region bounds, iteration budget, tile geometry and
// the optional MQTT telemetry sink.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfigRead and ErrConfigParse are the sentinels Load wraps for a
// failing os.ReadFile and yaml.Unmarshal respectively, distinct from
// ErrInvalidConfig (validator.go), which covers a well-formed file with
// bad values.
var (
	ErrConfigRead  = errors.New("config: read failed")
	ErrConfigParse = errors.New("config: parse failed")
)

// Config is the complete configuration for a cmd/asynctiled run.
type Config struct {
	Bounds          BoundsConfig `yaml:"bounds"`
	MaxIterations   int          `yaml:"max_iterations"`
	TileWidth       uint16       `yaml:"tile_width"`
	TileHeight      uint16       `yaml:"tile_height"`
	CachelineLength int          `yaml:"cacheline_length"`
	MQTT            *MQTTConfig  `yaml:"mqtt,omitempty"`
}

// BoundsConfig is the initial complex-plane rectangle, matching
// mandelbrot.Bounds' field names.
type BoundsConfig struct {
	Left   float64 `yaml:"left"`
	Right  float64 `yaml:"right"`
	Top    float64 `yaml:"top"`
	Bottom float64 `yaml:"bottom"`
}

// MQTTConfig enables the optional generation-complete telemetry emitter.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

// Default returns the configuration the CLI uses when no -config flag is
// given: the fixed 2048x1536 offline rendering scenario.
func Default() *Config {
	return &Config{
		Bounds:          BoundsConfig{Left: -2, Right: 1, Top: 1.5001, Bottom: -1.4999},
		MaxIterations:   32,
		TileWidth:       32,
		TileHeight:      32,
		CachelineLength: 128,
	}
}

// Load reads and parses a YAML configuration file on top of Default, so
// any field the file omits keeps its default value, then validates the
// result. A field the file sets explicitly to zero stays zero.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigRead, path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigParse, path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}
