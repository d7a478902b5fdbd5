// ABOUTME: Device stream writer
// ABOUTME: Remixes a buffer for one device and writes it in blocks, polling the cancel token
package soundboard

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/towerofbabel/soundboard-go/pkg/audio"
	"github.com/towerofbabel/soundboard-go/pkg/audio/output"
	"github.com/towerofbabel/soundboard-go/pkg/audio/remix"
	"github.com/towerofbabel/soundboard-go/pkg/audio/resample"
)

// DefaultBlockFrames is the number of frames written per device call
const DefaultBlockFrames = 1024

// DeviceResult is the outcome of one worker
type DeviceResult struct {
	DeviceID      string        // identifier as requested
	Device        output.Device // resolved device; zero if lookup failed
	Format        audio.Format  // format actually streamed
	FramesWritten int
	Blocks        int
	Cancelled     bool
	Err           error // *PlaybackError, nil on success or cancellation
}

// StreamWriter plays buffers on devices of a single backend
type StreamWriter struct {
	Backend output.Backend

	// BlockFrames is the write granularity (default DefaultBlockFrames)
	BlockFrames int

	// MaxChannels caps the per-device channel count when > 0
	MaxChannels int

	// Resample converts to the device's default rate when it differs
	Resample bool

	// OnBlock is called after every block the device accepts
	OnBlock func(device output.Device, frames int)

	Logger zerolog.Logger
}

// Run streams buf to the device identified by deviceID until the buffer is
// exhausted or token is cancelled. Cancellation is not an error. The stream
// is closed on every return path.
func (w *StreamWriter) Run(buf *audio.SampleBuffer, deviceID string, token *CancelToken) (DeviceResult, error) {
	result := DeviceResult{DeviceID: deviceID}

	fail := func(kind ErrorKind, err error) (DeviceResult, error) {
		result.Err = &PlaybackError{Kind: kind, Device: deviceID, Err: err}
		return result, result.Err
	}

	dev, err := output.Lookup(w.Backend, deviceID)
	if err != nil {
		return fail(KindDeviceUnavailable, err)
	}
	result.Device = dev

	target := dev.MaxOutputChannels
	if w.MaxChannels > 0 && target > w.MaxChannels {
		target = w.MaxChannels
	}

	remixed, err := remix.Remix(buf, target)
	if err != nil {
		return fail(KindInvalidChannelCount, fmt.Errorf("device %s reports %d output channels: %w", dev, dev.MaxOutputChannels, err))
	}

	if w.Resample && dev.DefaultSampleRate > 0 && dev.DefaultSampleRate != remixed.SampleRate {
		remixed = resample.Buffer(remixed, dev.DefaultSampleRate)
	}
	result.Format = remixed.Format()

	blockFrames := w.BlockFrames
	if blockFrames <= 0 {
		blockFrames = DefaultBlockFrames
	}

	log := w.Logger.With().Str("device", dev.Name).Str("format", result.Format.String()).Logger()

	stream, err := w.Backend.Open(dev, output.StreamFormat{
		SampleRate:  remixed.SampleRate,
		Channels:    remixed.Channels,
		BlockFrames: blockFrames,
	})
	if err != nil {
		return fail(KindDeviceUnavailable, err)
	}

	log.Debug().Int("frames", remixed.Frames()).Msg("Streaming to device")

	frames := remixed.Frames()
	channels := remixed.Channels
	for start := 0; start < frames; start += blockFrames {
		if token.Cancelled() {
			result.Cancelled = true
			if err := stream.Abort(); err != nil {
				log.Debug().Err(err).Msg("Abort after cancellation failed")
			}
			log.Debug().Int("frames_written", result.FramesWritten).Msg("Playback cancelled")
			return result, nil
		}

		end := start + blockFrames
		if end > frames {
			end = frames
		}

		if err := stream.Write(remixed.Samples[start*channels : end*channels]); err != nil {
			if abortErr := stream.Abort(); abortErr != nil {
				log.Debug().Err(abortErr).Msg("Abort after write failure failed")
			}
			return fail(KindWriteFailure, err)
		}

		result.FramesWritten += end - start
		result.Blocks++
		if w.OnBlock != nil {
			w.OnBlock(dev, end-start)
		}
	}

	if err := stream.Close(); err != nil {
		if errors.Is(err, output.ErrStreamClosed) {
			return result, nil
		}
		return fail(KindWriteFailure, fmt.Errorf("failed to drain stream: %w", err))
	}

	log.Debug().Int("frames_written", result.FramesWritten).Msg("Playback finished")
	return result, nil
}
