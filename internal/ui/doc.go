// ABOUTME: Terminal UI package for the interactive soundboard
// ABOUTME: Bubbletea model and engine observer bridge
// Package ui provides a terminal soundboard: pick a sound with the arrow
// keys or a number, adjust volume and stop playback.
package ui
