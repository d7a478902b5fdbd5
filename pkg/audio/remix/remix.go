// ABOUTME: Channel remixer for adapting buffers to device channel counts
// ABOUTME: Applies mono-average, stereo-duplicate, zero-pad and truncate rules in priority order
package remix

import (
	"errors"
	"fmt"

	"github.com/towerofbabel/soundboard-go/pkg/audio"
)

// ErrInvalidChannelCount is returned for a target channel count below 1
var ErrInvalidChannelCount = errors.New("invalid channel count")

// Remix adapts buf to target channels. The first matching rule wins:
//
//  1. same count: buf is returned as-is
//  2. target 1: arithmetic mean of all source channels
//  3. target 2 (source not 2): mono mean duplicated into both channels
//  4. target > source: extra channels are zero
//  5. target < source: the first target channels are kept
//
// The input buffer is never modified.
func Remix(buf *audio.SampleBuffer, target int) (*audio.SampleBuffer, error) {
	if target < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannelCount, target)
	}
	if buf.Channels < 1 {
		return nil, fmt.Errorf("%w: source has %d channels", ErrInvalidChannelCount, buf.Channels)
	}

	source := buf.Channels
	frames := buf.Frames()

	switch {
	case source == target:
		return buf, nil

	case target == 1:
		out := audio.NewSampleBuffer(frames, 1, buf.SampleRate)
		for i := 0; i < frames; i++ {
			out.Samples[i] = mean(buf.Frame(i))
		}
		return out, nil

	case target == 2:
		out := audio.NewSampleBuffer(frames, 2, buf.SampleRate)
		for i := 0; i < frames; i++ {
			m := mean(buf.Frame(i))
			out.Samples[i*2] = m
			out.Samples[i*2+1] = m
		}
		return out, nil

	case target > source:
		out := audio.NewSampleBuffer(frames, target, buf.SampleRate)
		for i := 0; i < frames; i++ {
			copy(out.Samples[i*target:i*target+source], buf.Frame(i))
		}
		return out, nil

	default:
		out := audio.NewSampleBuffer(frames, target, buf.SampleRate)
		for i := 0; i < frames; i++ {
			copy(out.Samples[i*target:(i+1)*target], buf.Frame(i)[:target])
		}
		return out, nil
	}
}

// mean averages one frame in float64 so the result does not depend on
// channel order rounding
func mean(frame []float32) float32 {
	var sum float64
	for _, s := range frame {
		sum += float64(s)
	}
	return float32(sum / float64(len(frame)))
}
