// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Used to adapt decoded buffers to a device's native rate using linear interpolation
package resample

import (
	"github.com/towerofbabel/soundboard-go/pkg/audio"
)

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		position:   0.0,
	}
}

// Resample converts input samples to output sample rate using linear interpolation
// input: interleaved samples at inputRate
// output: interleaved samples at outputRate
// Returns the number of samples written to output.
func (r *Resampler) Resample(input []float32, output []float32) int {
	if len(input) == 0 {
		return 0
	}

	inputFrames := len(input) / r.channels
	outputFrames := len(output) / r.channels

	outIdx := 0

	for outIdx < outputFrames {
		// Calculate which input frame we need
		inputPos := r.position
		inputIdx := int(inputPos)

		// If we've consumed all input, stop
		if inputIdx >= inputFrames {
			break
		}

		// Linear interpolation factor
		frac := inputPos - float64(inputIdx)

		// The last frame has no right neighbour; hold it
		next := inputIdx + 1
		if next >= inputFrames {
			next = inputIdx
		}

		// Interpolate each channel
		for ch := 0; ch < r.channels; ch++ {
			sample1 := float64(input[inputIdx*r.channels+ch])
			sample2 := float64(input[next*r.channels+ch])
			output[outIdx*r.channels+ch] = float32(sample1*(1.0-frac) + sample2*frac)
		}

		outIdx++
		r.position += r.ratio
	}

	// Reset position for next chunk, keeping fractional part
	r.position -= float64(int(r.position))

	return outIdx * r.channels
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

// InputSamplesNeeded calculates how many input samples are needed to produce output samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames) * r.ratio)
	return inputFrames * r.channels
}

// Buffer returns buf converted to outputRate. A buffer already at that rate
// is returned unchanged.
func Buffer(buf *audio.SampleBuffer, outputRate int) *audio.SampleBuffer {
	if buf.SampleRate == outputRate || outputRate <= 0 || buf.Frames() == 0 {
		return buf
	}

	r := New(buf.SampleRate, outputRate, buf.Channels)
	out := make([]float32, r.OutputSamplesNeeded(len(buf.Samples)))
	n := r.Resample(buf.Samples, out)

	return &audio.SampleBuffer{
		Samples:    out[:n],
		SampleRate: outputRate,
		Channels:   buf.Channels,
	}
}
