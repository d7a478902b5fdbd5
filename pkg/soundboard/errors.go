// ABOUTME: Playback error taxonomy
// ABOUTME: PlaybackError kinds plus the sentinel errors returned by the engine
package soundboard

import (
	"errors"
	"fmt"

	"github.com/towerofbabel/soundboard-go/pkg/audio/decode"
	"github.com/towerofbabel/soundboard-go/pkg/audio/remix"
)

var (
	// ErrDeviceUnavailable matches every KindDeviceUnavailable PlaybackError
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrWriteFailure matches every KindWriteFailure PlaybackError
	ErrWriteFailure = errors.New("write failure")

	// ErrNoDevices is returned when a request names no devices and no
	// defaults are configured
	ErrNoDevices = errors.New("no output devices")

	// ErrInvalidGain is returned for negative, NaN or infinite gain
	ErrInvalidGain = errors.New("invalid gain")

	// ErrClosed is returned by Play after Close
	ErrClosed = errors.New("engine closed")
)

// ErrorKind classifies a PlaybackError
type ErrorKind int

const (
	KindDecode ErrorKind = iota
	KindInvalidChannelCount
	KindDeviceUnavailable
	KindWriteFailure
)

// String returns the kind's wire name
func (k ErrorKind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindInvalidChannelCount:
		return "invalid_channel_count"
	case KindDeviceUnavailable:
		return "device_unavailable"
	case KindWriteFailure:
		return "write_failure"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// PlaybackError is a failure scoped to a session and, except for decode
// errors, to a single device
type PlaybackError struct {
	Kind    ErrorKind
	Session string
	Device  string // empty for decode errors
	Err     error
}

func (e *PlaybackError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("session %s: %s: %v", e.Session, e.Kind, e.Err)
	}
	return fmt.Sprintf("session %s: device %s: %s: %v", e.Session, e.Device, e.Kind, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the error's kind
func (e *PlaybackError) Is(target error) bool {
	switch target {
	case ErrDeviceUnavailable:
		return e.Kind == KindDeviceUnavailable
	case ErrWriteFailure:
		return e.Kind == KindWriteFailure
	case decode.ErrDecode:
		return e.Kind == KindDecode
	case remix.ErrInvalidChannelCount:
		return e.Kind == KindInvalidChannelCount
	}
	return false
}
