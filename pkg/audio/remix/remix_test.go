// ABOUTME: Tests for the channel remixer
// ABOUTME: Covers every remix rule, shape invariants and determinism
package remix

import (
	"errors"
	"testing"

	"github.com/towerofbabel/soundboard-go/pkg/audio"
)

func stereoBuffer() *audio.SampleBuffer {
	return &audio.SampleBuffer{
		Samples:    []float32{0.2, 0.4, -0.6, 0.2, 1.0, 0.0},
		SampleRate: 44100,
		Channels:   2,
	}
}

func TestRemixRules(t *testing.T) {
	tests := []struct {
		name     string
		input    *audio.SampleBuffer
		target   int
		expected []float32
	}{
		{
			name:     "stereo to mono averages",
			input:    stereoBuffer(),
			target:   1,
			expected: []float32{0.3, -0.2, 0.5},
		},
		{
			name:     "mono to stereo duplicates",
			input:    &audio.SampleBuffer{Samples: []float32{0.1, -0.5}, SampleRate: 8000, Channels: 1},
			target:   2,
			expected: []float32{0.1, 0.1, -0.5, -0.5},
		},
		{
			name: "quad to stereo uses mono mean",
			input: &audio.SampleBuffer{
				Samples:    []float32{0.4, 0.0, 0.0, 0.0},
				SampleRate: 8000,
				Channels:   4,
			},
			target:   2,
			expected: []float32{0.1, 0.1},
		},
		{
			name:     "stereo to quad zero pads",
			input:    stereoBuffer(),
			target:   4,
			expected: []float32{0.2, 0.4, 0, 0, -0.6, 0.2, 0, 0, 1.0, 0.0, 0, 0},
		},
		{
			name: "six to three truncates",
			input: &audio.SampleBuffer{
				Samples:    []float32{1, 2, 3, 4, 5, 6},
				SampleRate: 8000,
				Channels:   6,
			},
			target:   3,
			expected: []float32{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Remix(tt.input, tt.target)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Channels != tt.target {
				t.Errorf("expected %d channels, got %d", tt.target, result.Channels)
			}
			if result.Frames() != tt.input.Frames() {
				t.Errorf("expected %d frames, got %d", tt.input.Frames(), result.Frames())
			}
			if len(result.Samples) != len(tt.expected) {
				t.Fatalf("expected %d samples, got %d", len(tt.expected), len(result.Samples))
			}
			for i := range tt.expected {
				if diff := result.Samples[i] - tt.expected[i]; diff > 1e-6 || diff < -1e-6 {
					t.Errorf("sample %d: expected %v, got %v", i, tt.expected[i], result.Samples[i])
				}
			}
		})
	}
}

func TestRemixSameCountIsNoop(t *testing.T) {
	buf := stereoBuffer()

	result, err := Remix(buf, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != buf {
		t.Error("expected the input buffer to be returned unchanged")
	}
}

func TestRemixInvalidChannelCount(t *testing.T) {
	for _, target := range []int{0, -1} {
		_, err := Remix(stereoBuffer(), target)
		if !errors.Is(err, ErrInvalidChannelCount) {
			t.Errorf("target %d: expected ErrInvalidChannelCount, got %v", target, err)
		}
	}
}

func TestRemixShapeForAllTargets(t *testing.T) {
	sources := []*audio.SampleBuffer{
		audio.NewSampleBuffer(0, 1, 44100),
		audio.NewSampleBuffer(17, 1, 44100),
		audio.NewSampleBuffer(17, 2, 44100),
		audio.NewSampleBuffer(17, 6, 44100),
	}

	for _, src := range sources {
		for target := 1; target <= 8; target++ {
			result, err := Remix(src, target)
			if err != nil {
				t.Fatalf("%dch -> %d: unexpected error: %v", src.Channels, target, err)
			}
			if result.Channels != target || result.Frames() != src.Frames() {
				t.Errorf("%dch -> %d: got %dch x %d frames", src.Channels, target, result.Channels, result.Frames())
			}
		}
	}
}

func TestRemixIsDeterministic(t *testing.T) {
	src := audio.NewSampleBuffer(512, 2, 44100)
	for i := range src.Samples {
		src.Samples[i] = float32(i%37)/37 - 0.5
	}

	first, _ := Remix(src, 1)
	firstBack, _ := Remix(first, 2)
	second, _ := Remix(src, 1)
	secondBack, _ := Remix(second, 2)

	for i := range firstBack.Samples {
		if firstBack.Samples[i] != secondBack.Samples[i] {
			t.Fatalf("sample %d differs between runs: %v vs %v", i, firstBack.Samples[i], secondBack.Samples[i])
		}
	}
}

func TestRemixDoesNotModifyInput(t *testing.T) {
	buf := stereoBuffer()
	before := append([]float32(nil), buf.Samples...)

	for _, target := range []int{1, 3, 4} {
		if _, err := Remix(buf, target); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	for i := range before {
		if buf.Samples[i] != before[i] {
			t.Fatalf("input modified at %d", i)
		}
	}
}
