// ABOUTME: Audio type definitions
// ABOUTME: Defines the interleaved float32 sample buffer and gain/clamp helpers
package audio

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

var (
	// ErrInvalidBuffer is wrapped by every SampleBuffer validation failure
	ErrInvalidBuffer = errors.New("invalid sample buffer")
)

// Format describes the shape of a sample stream
type Format struct {
	SampleRate int
	Channels   int
}

// String returns a short human-readable form like "44100Hz/2ch"
func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// SampleBuffer holds decoded audio as interleaved float32 samples.
//
// A buffer is treated as immutable once handed to the playback engine:
// operations that change samples (gain, remix, resample) return a new buffer.
type SampleBuffer struct {
	Samples    []float32 // interleaved, len = Frames() * Channels
	SampleRate int       // Hz
	Channels   int
}

// NewSampleBuffer allocates a silent buffer of the given shape
func NewSampleBuffer(frames, channels, sampleRate int) *SampleBuffer {
	return &SampleBuffer{
		Samples:    make([]float32, frames*channels),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// Format returns the buffer's sample rate and channel count
func (b *SampleBuffer) Format() Format {
	return Format{SampleRate: b.SampleRate, Channels: b.Channels}
}

// Frames returns the number of frames (one sample per channel) in the buffer
func (b *SampleBuffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback duration of the buffer
func (b *SampleBuffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Frame returns the samples of frame i (a view, not a copy)
func (b *SampleBuffer) Frame(i int) []float32 {
	return b.Samples[i*b.Channels : (i+1)*b.Channels]
}

// Clone returns a deep copy of the buffer
func (b *SampleBuffer) Clone() *SampleBuffer {
	samples := make([]float32, len(b.Samples))
	copy(samples, b.Samples)
	return &SampleBuffer{
		Samples:    samples,
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
	}
}

// Validate checks the buffer invariants
func (b *SampleBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidBuffer)
	}
	if b.Channels < 1 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidBuffer, b.Channels)
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidBuffer, b.SampleRate)
	}
	if len(b.Samples)%b.Channels != 0 {
		return fmt.Errorf("%w: %d samples is not a whole number of %d-channel frames",
			ErrInvalidBuffer, len(b.Samples), b.Channels)
	}
	return nil
}

// Slice returns the frames in [start, end). A zero end means "to the end of
// the buffer". Bounds are clamped to the buffer; the result shares storage
// with b.
func (b *SampleBuffer) Slice(start, end time.Duration) *SampleBuffer {
	frames := b.Frames()
	first := durationToFrames(start, b.SampleRate)
	last := frames
	if end > 0 {
		last = durationToFrames(end, b.SampleRate)
	}
	if first < 0 {
		first = 0
	}
	if last > frames {
		last = frames
	}
	if first > last {
		first = last
	}

	return &SampleBuffer{
		Samples:    b.Samples[first*b.Channels : last*b.Channels],
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
	}
}

func durationToFrames(d time.Duration, sampleRate int) int {
	return int(int64(d) * int64(sampleRate) / int64(time.Second))
}

// Clamp limits a sample to [-1.0, 1.0]. NaN becomes silence.
func Clamp(v float32) float32 {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

// ApplyGain returns a new buffer with every sample multiplied by gain and
// clamped to [-1.0, 1.0]
func ApplyGain(b *SampleBuffer, gain float64) *SampleBuffer {
	out := &SampleBuffer{
		Samples:    make([]float32, len(b.Samples)),
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
	}
	for i, s := range b.Samples {
		out.Samples[i] = Clamp(float32(float64(s) * gain))
	}
	return out
}

// Peak returns the largest absolute sample value in the buffer
func Peak(b *SampleBuffer) float32 {
	var peak float32
	for _, s := range b.Samples {
		a := float32(math.Abs(float64(s)))
		if a > peak {
			peak = a
		}
	}
	return peak
}

// SampleFromInt converts a signed integer sample of the given bit depth to
// a float in [-1.0, 1.0)
func SampleFromInt(v int, bitDepth int) float32 {
	scale := float64(int64(1) << uint(bitDepth-1))
	return float32(float64(v) / scale)
}

// SampleToInt converts a float sample to a signed integer of the given bit
// depth, clamping to the representable range
func SampleToInt(v float32, bitDepth int) int {
	max := int64(1)<<uint(bitDepth-1) - 1
	min := -(int64(1) << uint(bitDepth-1))
	scaled := int64(math.Round(float64(Clamp(v)) * float64(max+1)))
	if scaled > max {
		scaled = max
	} else if scaled < min {
		scaled = min
	}
	return int(scaled)
}

// SampleToInt16 converts a float sample to int16 (for 16-bit playback)
func SampleToInt16(v float32) int16 {
	return int16(SampleToInt(v, 16))
}

// SampleFromInt16 converts an int16 sample to float
func SampleFromInt16(v int16) float32 {
	return SampleFromInt(int(v), 16)
}
