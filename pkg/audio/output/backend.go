// ABOUTME: Backend factory and shared options
// ABOUTME: Builds an output backend by name from configuration
package output

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrBackendUnavailable is returned for unknown or not-compiled-in backends
var ErrBackendUnavailable = errors.New("output backend unavailable")

// DefaultBackend is used when no backend is named
const DefaultBackend = "malgo"

// Options configure backend construction
type Options struct {
	// BufferDuration is the queue depth for callback-driven backends (default 200ms)
	BufferDuration time.Duration

	// WAVDir is where the wav backend writes files (default "recordings")
	WAVDir string

	// WAVDevices names the wav backend's devices (default "recording")
	WAVDevices []string

	// WAVChannels is the channel limit of each wav device (default 2)
	WAVChannels int

	// MemoryDevices configures the memory backend (default DefaultMemoryDevices)
	MemoryDevices []MemoryDevice

	// Logger receives backend diagnostics (default: the global zerolog logger)
	Logger *zerolog.Logger
}

func (o Options) withDefaults() resolvedOptions {
	r := resolvedOptions{Options: o, Logger: log.Logger}
	if o.Logger != nil {
		r.Logger = *o.Logger
	}
	if r.BufferDuration <= 0 {
		r.BufferDuration = 200 * time.Millisecond
	}
	if r.WAVDir == "" {
		r.WAVDir = "recordings"
	}
	if len(r.WAVDevices) == 0 {
		r.WAVDevices = []string{"recording"}
	}
	if r.WAVChannels <= 0 {
		r.WAVChannels = 2
	}
	return r
}

type resolvedOptions struct {
	Options
	Logger zerolog.Logger
}

// Backends lists the names accepted by New
func Backends() []string {
	return []string{"malgo", "portaudio", "oto", "memory", "wav"}
}

// New creates the backend called name. An empty name selects DefaultBackend.
func New(name string, opts Options) (Backend, error) {
	switch name {
	case "", "malgo":
		m, err := NewMalgo(opts)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "portaudio":
		return newPortAudioBackend(opts)
	case "oto":
		return NewOto(opts), nil
	case "memory":
		return NewMemory(opts.MemoryDevices...), nil
	case "wav":
		w, err := NewWAVFile(opts)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrBackendUnavailable, name, Backends())
	}
}
