// ABOUTME: YAML application configuration
// ABOUTME: Audio, playback, control, metrics and logging sections with defaults and validation
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/towerofbabel/soundboard-go/pkg/audio/output"
)

// Config represents the complete application configuration
type Config struct {
	Audio    AudioConfig    `yaml:"audio"`
	Playback PlaybackConfig `yaml:"playback"`
	Control  ControlConfig  `yaml:"control"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AudioConfig selects the output backend and how streams are opened
type AudioConfig struct {
	Backend           string   `yaml:"backend"`
	BlockFrames       int      `yaml:"block_frames"`
	BufferMs          int      `yaml:"buffer_ms"`
	Resample          bool     `yaml:"resample"`
	MaxStreamChannels int      `yaml:"max_stream_channels"` // 0: no cap
	WAVDir            string   `yaml:"wav_dir"`
	WAVDevices        []string `yaml:"wav_devices"`
}

// PlaybackConfig holds the soundboard's user settings
type PlaybackConfig struct {
	// Volume is the 0-100 slider value; gain is Volume/100
	Volume int `yaml:"volume"`

	// MultiPlay allows overlapping sounds; false stops the previous sound first
	MultiPlay bool `yaml:"multi_play"`

	// DefaultDevices are played to when a request names none, typically a
	// virtual microphone cable and the user's headset
	DefaultDevices []string `yaml:"default_devices"`

	// SoundsDir is where sounds are looked up by name
	SoundsDir string `yaml:"sounds_dir"`
}

// ControlConfig configures the remote control server
type ControlConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	MDNS    bool   `yaml:"mdns"`
	Name    string `yaml:"name"`
}

// MetricsConfig configures the Prometheus endpoint on the control server
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
	File   string `yaml:"file"`   // empty: stdout only
}

// Defaults returns the configuration used when no file exists
func Defaults() *Config {
	return &Config{
		Audio: AudioConfig{
			Backend:     output.DefaultBackend,
			BlockFrames: 1024,
			BufferMs:    200,
			WAVDir:      "recordings",
		},
		Playback: PlaybackConfig{
			Volume:    100,
			MultiPlay: true,
			SoundsDir: "sounds",
		},
		Control: ControlConfig{
			Address: "0.0.0.0",
			Port:    8928,
			MDNS:    true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   "soundboard.log",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Save writes the configuration to path, creating parent directories
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// Validate performs validation of every section
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Playback.Validate(); err != nil {
		return fmt.Errorf("playback config: %w", err)
	}
	if err := c.Control.Validate(); err != nil {
		return fmt.Errorf("control config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	known := false
	for _, name := range output.Backends() {
		if a.Backend == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown backend %q (available: %v)", a.Backend, output.Backends())
	}

	if a.BlockFrames < 64 || a.BlockFrames > 65536 {
		return fmt.Errorf("block_frames must be between 64 and 65536, got %d", a.BlockFrames)
	}

	if a.BufferMs < 10 {
		return fmt.Errorf("buffer_ms must be at least 10, got %d", a.BufferMs)
	}

	if a.MaxStreamChannels < 0 {
		return fmt.Errorf("max_stream_channels cannot be negative, got %d", a.MaxStreamChannels)
	}

	return nil
}

// BufferDuration returns BufferMs as a duration
func (a *AudioConfig) BufferDuration() time.Duration {
	return time.Duration(a.BufferMs) * time.Millisecond
}

// Validate validates playback configuration
func (p *PlaybackConfig) Validate() error {
	if p.Volume < 0 || p.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", p.Volume)
	}
	return nil
}

// Gain converts the volume slider to a linear gain
func (p *PlaybackConfig) Gain() float64 {
	return VolumeToGain(p.Volume)
}

// VolumeToGain maps a 0-100 volume to gain, clamping out-of-range values
func VolumeToGain(volume int) float64 {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return float64(volume) / 100.0
}

// Validate validates control server configuration
func (c *ControlConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Address == "" {
		return fmt.Errorf("address cannot be empty when control is enabled")
	}
	return nil
}

// Validate validates metrics configuration
func (m *MetricsConfig) Validate() error {
	if m.Enabled && (m.Path == "" || m.Path[0] != '/') {
		return fmt.Errorf("path must start with /, got %q", m.Path)
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (must be trace, debug, info, warn or error)", l.Level)
	}

	switch l.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q (must be console or json)", l.Format)
	}

	return nil
}
