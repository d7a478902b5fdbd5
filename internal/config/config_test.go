// ABOUTME: Tests for configuration loading and validation
// ABOUTME: Covers defaults, missing files, round trips and per-section validation
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults failed validation: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Playback.Volume != 100 || cfg.Audio.Backend != "malgo" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soundboard.yaml")
	data := `
audio:
  backend: memory
playback:
  volume: 40
  multi_play: false
  default_devices: ["CABLE Input", "Headphones"]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Audio.Backend != "memory" {
		t.Errorf("expected memory backend, got %s", cfg.Audio.Backend)
	}
	if cfg.Playback.Gain() != 0.4 {
		t.Errorf("expected gain 0.4, got %v", cfg.Playback.Gain())
	}
	if cfg.Playback.MultiPlay {
		t.Error("expected multi_play false")
	}
	if len(cfg.Playback.DefaultDevices) != 2 || cfg.Playback.DefaultDevices[0] != "CABLE Input" {
		t.Errorf("unexpected default devices: %v", cfg.Playback.DefaultDevices)
	}
	// Untouched sections keep their defaults
	if cfg.Audio.BlockFrames != 1024 || cfg.Logging.Level != "info" {
		t.Errorf("expected defaults for unset fields, got %+v", cfg)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "soundboard.yaml")

	cfg := Defaults()
	cfg.Playback.Volume = 75
	cfg.Playback.DefaultDevices = []string{"3", "5"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Playback.Volume != 75 || len(loaded.Playback.DefaultDevices) != 2 {
		t.Errorf("round trip lost settings: %+v", loaded.Playback)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "unknown backend", mutate: func(c *Config) { c.Audio.Backend = "jack" }, wantErr: "unknown backend"},
		{name: "tiny blocks", mutate: func(c *Config) { c.Audio.BlockFrames = 8 }, wantErr: "block_frames"},
		{name: "negative channel cap", mutate: func(c *Config) { c.Audio.MaxStreamChannels = -1 }, wantErr: "max_stream_channels"},
		{name: "volume too high", mutate: func(c *Config) { c.Playback.Volume = 101 }, wantErr: "volume"},
		{name: "bad port", mutate: func(c *Config) { c.Control.Enabled = true; c.Control.Port = 0 }, wantErr: "port"},
		{name: "bad metrics path", mutate: func(c *Config) { c.Metrics.Path = "metrics" }, wantErr: "path"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "log level"},
		{name: "disabled control ignores port", mutate: func(c *Config) { c.Control.Port = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestVolumeToGain(t *testing.T) {
	tests := []struct {
		volume int
		want   float64
	}{
		{0, 0}, {50, 0.5}, {100, 1}, {-5, 0}, {150, 1},
	}
	for _, tt := range tests {
		if got := VolumeToGain(tt.volume); got != tt.want {
			t.Errorf("VolumeToGain(%d) = %v, want %v", tt.volume, got, tt.want)
		}
	}
}
