// ABOUTME: Test tone generator
// ABOUTME: Builds sine wave buffers used to identify output devices
package audio

import (
	"math"
	"time"
)

// DefaultToneFrequency is the A4 note used by the device test tone
const DefaultToneFrequency = 440.0

// Tone generates a sine wave of the given frequency and duration.
// Every channel carries the same signal.
func Tone(frequency float64, duration time.Duration, sampleRate, channels int, amplitude float64) *SampleBuffer {
	frames := durationToFrames(duration, sampleRate)
	buf := NewSampleBuffer(frames, channels, sampleRate)

	for i := 0; i < frames; i++ {
		t := float64(i) / float64(sampleRate)
		sample := Clamp(float32(amplitude * math.Sin(2*math.Pi*frequency*t)))
		for ch := 0; ch < channels; ch++ {
			buf.Samples[i*channels+ch] = sample
		}
	}

	return buf
}
