package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is the sentinel every Validate failure wraps, letting a
// caller distinguish a bad config from a read or parse failure in Load.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Validate checks that cfg describes a usable region, tile geometry and
// (if present) MQTT sink.
func Validate(cfg *Config) error {
	if cfg.Bounds.Right <= cfg.Bounds.Left {
		return fmt.Errorf("%w: bounds.right must be greater than bounds.left", ErrInvalidConfig)
	}
	if cfg.Bounds.Top <= cfg.Bounds.Bottom {
		return fmt.Errorf("%w: bounds.top must be greater than bounds.bottom", ErrInvalidConfig)
	}
	if cfg.MaxIterations <= 0 {
		return fmt.Errorf("%w: max_iterations must be > 0", ErrInvalidConfig)
	}
	if cfg.TileWidth == 0 || cfg.TileHeight == 0 {
		return fmt.Errorf("%w: tile_width and tile_height must be > 0", ErrInvalidConfig)
	}
	if cfg.CachelineLength < 0 {
		return fmt.Errorf("%w: cacheline_length must be >= 0", ErrInvalidConfig)
	}

	if cfg.MQTT != nil {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("%w: mqtt.broker is required when mqtt is configured", ErrInvalidConfig)
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "asynctiled"
		}
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = "asynctiled/generation"
		}
	}

	return nil
}
