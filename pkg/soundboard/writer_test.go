// ABOUTME: Tests for the device stream writer
// ABOUTME: Covers block sizing, cancellation, channel limits, resampling and error kinds
package soundboard

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/towerofbabel/soundboard-go/pkg/audio"
	"github.com/towerofbabel/soundboard-go/pkg/audio/output"
	"github.com/towerofbabel/soundboard-go/pkg/audio/remix"
)

// zeroChannelBackend reports a device without output channels
type zeroChannelBackend struct {
	*output.Memory
}

func (b zeroChannelBackend) Devices() ([]output.Device, error) {
	return []output.Device{{ID: "broken", Name: "Broken", MaxOutputChannels: 0}}, nil
}

func TestWriterBlocks(t *testing.T) {
	backend := output.NewMemory()
	w := &StreamWriter{Backend: backend, BlockFrames: 1024, Logger: zerolog.Nop()}

	var token CancelToken
	result, err := w.Run(stereoBuffer(2500, 44100, 0.1, 0.2), "mem-0", &token)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Blocks != 3 || result.FramesWritten != 2500 {
		t.Errorf("expected 3 blocks / 2500 frames, got %d / %d", result.Blocks, result.FramesWritten)
	}
	if result.Cancelled {
		t.Error("expected not cancelled")
	}
	if result.Device.ID != "mem-0" {
		t.Errorf("expected resolved device mem-0, got %s", result.Device.ID)
	}

	rec := backend.Recordings("mem-0")[0]
	if rec.Format.BlockFrames != 1024 {
		t.Errorf("expected block frames hint 1024, got %d", rec.Format.BlockFrames)
	}
	if !rec.Closed {
		t.Error("expected stream to be drained and closed")
	}
}

func TestWriterCancelledBeforeFirstBlock(t *testing.T) {
	backend := output.NewMemory()
	w := &StreamWriter{Backend: backend, Logger: zerolog.Nop()}

	var token CancelToken
	token.Cancel()

	result, err := w.Run(stereoBuffer(5000, 44100, 0.1, 0.2), "mem-0", &token)
	if err != nil {
		t.Fatalf("cancellation must not be an error, got %v", err)
	}
	if !result.Cancelled || result.Blocks != 0 {
		t.Errorf("expected cancelled with no blocks, got %+v", result)
	}

	rec := backend.Recordings("mem-0")[0]
	if !rec.Aborted {
		t.Error("expected stream to be aborted")
	}
}

func TestWriterChannelLimit(t *testing.T) {
	backend := output.NewMemory(output.MemoryDevice{Device: output.Device{Name: "Surround", MaxOutputChannels: 8}})
	w := &StreamWriter{Backend: backend, MaxChannels: 2, Logger: zerolog.Nop()}

	var token CancelToken
	result, err := w.Run(audio.NewSampleBuffer(100, 1, 44100), "Surround", &token)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Format.Channels != 2 {
		t.Errorf("expected channel cap of 2, got %d", result.Format.Channels)
	}
}

func TestWriterResample(t *testing.T) {
	backend := output.NewMemory(output.MemoryDevice{Device: output.Device{Name: "Dac", DefaultSampleRate: 48000}})

	tests := []struct {
		name     string
		resample bool
		wantRate int
	}{
		{name: "disabled", resample: false, wantRate: 44100},
		{name: "enabled", resample: true, wantRate: 48000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &StreamWriter{Backend: backend, Resample: tt.resample, Logger: zerolog.Nop()}

			var token CancelToken
			result, err := w.Run(stereoBuffer(4410, 44100, 0, 0), "Dac", &token)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if result.Format.SampleRate != tt.wantRate {
				t.Errorf("expected %dHz, got %dHz", tt.wantRate, result.Format.SampleRate)
			}
		})
	}
}

func TestWriterErrors(t *testing.T) {
	var token CancelToken
	buf := stereoBuffer(10, 44100, 0, 0)

	t.Run("unknown device", func(t *testing.T) {
		w := &StreamWriter{Backend: output.NewMemory(), Logger: zerolog.Nop()}
		_, err := w.Run(buf, "nope", &token)
		if !errors.Is(err, ErrDeviceUnavailable) || !errors.Is(err, output.ErrDeviceNotFound) {
			t.Errorf("expected device unavailable wrapping ErrDeviceNotFound, got %v", err)
		}
	})

	t.Run("rejected sample rate", func(t *testing.T) {
		backend := output.NewMemory(output.MemoryDevice{Device: output.Device{Name: "Fixed"}, SampleRates: []int{48000}})
		w := &StreamWriter{Backend: backend, Logger: zerolog.Nop()}
		_, err := w.Run(buf, "Fixed", &token)
		if !errors.Is(err, ErrDeviceUnavailable) || !errors.Is(err, output.ErrUnsupportedFormat) {
			t.Errorf("expected device unavailable wrapping ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("zero channel device", func(t *testing.T) {
		w := &StreamWriter{Backend: zeroChannelBackend{output.NewMemory()}, Logger: zerolog.Nop()}
		result, err := w.Run(buf, "broken", &token)
		if !errors.Is(err, remix.ErrInvalidChannelCount) {
			t.Errorf("expected ErrInvalidChannelCount, got %v", err)
		}
		var pe *PlaybackError
		if !errors.As(err, &pe) || pe.Kind != KindInvalidChannelCount {
			t.Errorf("expected KindInvalidChannelCount, got %v", err)
		}
		if result.Err != err {
			t.Error("expected result to carry the returned error")
		}
	})
}

func TestCancelToken(t *testing.T) {
	var token CancelToken
	if token.Cancelled() {
		t.Fatal("zero token must not be cancelled")
	}
	token.Cancel()
	token.Cancel()
	if !token.Cancelled() {
		t.Fatal("expected cancelled")
	}
	token.Reset()
	if token.Cancelled() {
		t.Fatal("expected reset token to be clear")
	}
}

func TestStateStrings(t *testing.T) {
	for state, want := range map[State]string{
		StateIdle:      "idle",
		StateLoading:   "loading",
		StateStreaming: "streaming",
		StateCompleted: "completed",
		StateCancelled: "cancelled",
		StateFailed:    "failed",
	} {
		if state.String() != want {
			t.Errorf("expected %s, got %s", want, state.String())
		}
	}
	if StateStreaming.Terminal() || !StateCancelled.Terminal() {
		t.Error("unexpected Terminal results")
	}
}
