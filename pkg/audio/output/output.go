// ABOUTME: Audio output interface definitions
// ABOUTME: Devices, backends and blocking float32 streams shared by every playback backend
package output

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultDeviceID selects the backend's default output device in Lookup
const DefaultDeviceID = "default"

var (
	// ErrDeviceNotFound is returned when an identifier matches no device
	ErrDeviceNotFound = errors.New("device not found")

	// ErrStreamClosed is returned by Write after Close or Abort
	ErrStreamClosed = errors.New("stream closed")

	// ErrUnsupportedFormat is returned when a device rejects a stream format
	ErrUnsupportedFormat = errors.New("unsupported stream format")
)

// Device describes an addressable output endpoint
type Device struct {
	ID                string // opaque, stable for the life of the backend
	Index             int    // position in the backend's device list
	Name              string
	MaxOutputChannels int
	DefaultSampleRate int // 0 when unknown
	IsDefault         bool
}

// String returns "name (#index)"
func (d Device) String() string {
	return fmt.Sprintf("%s (#%d)", d.Name, d.Index)
}

// StreamFormat is the shape of samples written to a stream
type StreamFormat struct {
	SampleRate  int
	Channels    int
	BlockFrames int // hint for backends with fixed-size hardware buffers
}

// Validate checks that the format can be opened at all
func (f StreamFormat) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, f.Channels)
	}
	return nil
}

// Backend enumerates devices and opens streams on them
type Backend interface {
	// Name returns the backend identifier used in configuration
	Name() string

	// Devices queries the current output devices
	Devices() ([]Device, error)

	// Open starts a playback stream on device
	Open(device Device, format StreamFormat) (Stream, error)

	// Close releases backend resources
	Close() error
}

// Stream is an open playback stream owned by a single writer
type Stream interface {
	// Write queues interleaved samples, blocking until the device accepts them
	Write(block []float32) error

	// Close waits for queued samples to play, then releases the stream
	Close() error

	// Abort discards queued samples and releases the stream immediately
	Abort() error
}

// Lookup resolves id against a fresh device query. id may be a device ID,
// a numeric index, a case-insensitive device name or "default".
func Lookup(b Backend, id string) (Device, error) {
	devices, err := b.Devices()
	if err != nil {
		return Device{}, fmt.Errorf("failed to query devices: %w", err)
	}

	if strings.EqualFold(id, DefaultDeviceID) {
		for _, d := range devices {
			if d.IsDefault {
				return d, nil
			}
		}
		if len(devices) > 0 {
			return devices[0], nil
		}
		return Device{}, fmt.Errorf("%w: no default device", ErrDeviceNotFound)
	}

	for _, d := range devices {
		if d.ID == id {
			return d, nil
		}
	}

	if index, err := strconv.Atoi(id); err == nil {
		for _, d := range devices {
			if d.Index == index {
				return d, nil
			}
		}
	}

	for _, d := range devices {
		if strings.EqualFold(d.Name, id) {
			return d, nil
		}
	}

	return Device{}, fmt.Errorf("%w: %q", ErrDeviceNotFound, id)
}
