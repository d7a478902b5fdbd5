// ABOUTME: Logging setup package
// ABOUTME: Configures the global zerolog logger from application settings
// Package logging wires zerolog for the soundboard binaries.
//
// Example:
//
//	logger, closer, err := logging.Setup(logging.Options{Level: "info", File: "soundboard.log"})
//	defer closer.Close()
package logging
