//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"fmt"
)

func newPortAudioBackend(opts Options) (Backend, error) {
	return nil, fmt.Errorf("%w: portaudio (build with -tags portaudio)", ErrBackendUnavailable)
}
