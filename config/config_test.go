package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/fractaltile/asynctiled/config"
)

// TestLoadAppliesDefaultsAndValidates checks that a minimal YAML file is
// merged with Default and passes validation.
func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "asynctiled.yaml")
	if err := os.WriteFile(path, []byte("max_iterations: 64\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxIterations != 64 {
		t.Errorf("MaxIterations = %d, want 64 (from file)", cfg.MaxIterations)
	}
	if cfg.TileWidth != 32 || cfg.TileHeight != 32 {
		t.Errorf("tile dims = %dx%d, want defaults 32x32", cfg.TileWidth, cfg.TileHeight)
	}
}

// TestLoadRejectsInvertedBounds validates that Validate catches a malformed
// bounds rectangle before it reaches the kernel.
func TestLoadRejectsInvertedBounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	body := "bounds:\n  left: 1\n  right: -1\n  top: 1\n  bottom: -1\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := config.Load(path); err == nil {
		t.Fatal("Load accepted bounds.right <= bounds.left")
	}
}

// TestConfigRoundTrip checks that a config re-marshaled through YAML is
// field-for-field equal to the original (map/slice
// ordering aside, of which this config has none).
func TestConfigRoundTrip(t *testing.T) {
	original := config.Default()
	original.MQTT = &config.MQTTConfig{Broker: "localhost:1883", ClientID: "test", Topic: "asynctiled/generation"}

	out, err := yaml.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var roundTripped config.Config
	if err := yaml.Unmarshal(out, &roundTripped); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if roundTripped != *original {
		if roundTripped.MQTT == nil || original.MQTT == nil || *roundTripped.MQTT != *original.MQTT {
			t.Fatalf("round trip mismatch: got %+v, want %+v", roundTripped, *original)
		}
		roundTripped.MQTT, original.MQTT = nil, nil
		if roundTripped != *original {
			t.Fatalf("round trip mismatch: got %+v, want %+v", roundTripped, *original)
		}
	}
}
