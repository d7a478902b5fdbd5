// ABOUTME: PCM audio encoder
// ABOUTME: Encodes float32 samples to 16-bit, 24-bit or float32 PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/towerofbabel/soundboard-go/pkg/audio"
)

// PCMEncoder encodes integer PCM audio
type PCMEncoder struct {
	bitDepth int
}

// NewPCM creates a new PCM encoder
func NewPCM(bitDepth int) (Encoder, error) {
	if bitDepth != 16 && bitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", bitDepth)
	}

	return &PCMEncoder{
		bitDepth: bitDepth,
	}, nil
}

// Encode converts float samples to PCM bytes
func (e *PCMEncoder) Encode(samples []float32) ([]byte, error) {
	if e.bitDepth == 24 {
		// 24-bit PCM: 3 bytes per sample
		output := make([]byte, len(samples)*3)
		for i, sample := range samples {
			v := audio.SampleToInt(sample, 24)
			output[i*3] = byte(v)
			output[i*3+1] = byte(v >> 8)
			output[i*3+2] = byte(v >> 16)
		}
		return output, nil
	}

	// 16-bit PCM: 2 bytes per sample
	output := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(audio.SampleToInt16(sample)))
	}
	return output, nil
}

// BytesPerSample reports the encoded sample width
func (e *PCMEncoder) BytesPerSample() int {
	return e.bitDepth / 8
}

// Float32Encoder encodes samples as 32-bit float little-endian
type Float32Encoder struct{}

// NewFloat32 creates a float32 little-endian encoder
func NewFloat32() Encoder {
	return Float32Encoder{}
}

// Encode converts samples to float32 little-endian bytes, clamped to [-1, 1]
func (Float32Encoder) Encode(samples []float32) ([]byte, error) {
	output := make([]byte, len(samples)*4)
	for i, sample := range samples {
		binary.LittleEndian.PutUint32(output[i*4:], math.Float32bits(audio.Clamp(sample)))
	}
	return output, nil
}

// BytesPerSample reports the encoded sample width
func (Float32Encoder) BytesPerSample() int {
	return 4
}

// Ints converts float samples to integers of the given bit depth, reusing
// dst when it has enough capacity
func Ints(samples []float32, bitDepth int, dst []int) []int {
	if cap(dst) < len(samples) {
		dst = make([]int, len(samples))
	}
	dst = dst[:len(samples)]
	for i, s := range samples {
		dst[i] = audio.SampleToInt(s, bitDepth)
	}
	return dst
}
