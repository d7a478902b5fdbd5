// ABOUTME: Configuration package for the soundboard application
// ABOUTME: Loads, validates and saves the YAML settings file
// Package config loads the soundboard's YAML settings.
//
// A missing file is not an error: Load returns Defaults so a first run works
// without setup, and -save-config writes the result back out.
//
// Example:
//
//	cfg, err := config.Load("soundboard.yaml")
//	gain := cfg.Playback.Gain()
package config
