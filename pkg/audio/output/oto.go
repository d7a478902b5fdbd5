// ABOUTME: Oto-based audio output backend
// ABOUTME: Exposes the system default device; streams are oto players fed through pipes
package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"

	"github.com/towerofbabel/soundboard-go/pkg/audio/encode"
)

// otoDrainPoll is how often Close checks whether a player has finished
const otoDrainPoll = 10 * time.Millisecond

// Oto backend using the oto library. oto allows one context per process,
// so every stream must share the format of the first one opened.
type Oto struct {
	log            zerolog.Logger
	bufferDuration time.Duration

	mu         sync.Mutex
	otoCtx     *oto.Context
	sampleRate int
	channels   int
}

// NewOto creates an Oto backend; the context is created on first Open
func NewOto(opts Options) *Oto {
	cfg := opts.withDefaults()
	return &Oto{
		log:            cfg.Logger.With().Str("backend", "oto").Logger(),
		bufferDuration: cfg.BufferDuration,
	}
}

// Name returns "oto"
func (o *Oto) Name() string {
	return "oto"
}

// Devices returns the single system default device
func (o *Oto) Devices() ([]Device, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	channels := 2
	if o.otoCtx != nil {
		channels = o.channels
	}

	return []Device{{
		ID:                DefaultDeviceID,
		Index:             0,
		Name:              "System Default",
		MaxOutputChannels: channels,
		DefaultSampleRate: o.sampleRate,
		IsDefault:         true,
	}}, nil
}

// Open creates a player on the shared context
func (o *Oto) Open(device Device, format StreamFormat) (Stream, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if device.ID != DefaultDeviceID {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
	}

	ctx, err := o.context(format)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.SetBufferSize(int(int64(format.SampleRate) * int64(format.Channels) * 4 * int64(o.bufferDuration) / int64(time.Second)))
	player.Play()

	return &otoStream{
		player:  player,
		pr:      pr,
		pw:      pw,
		encoder: encode.NewFloat32(),
	}, nil
}

// context returns the process-wide oto context, creating it for format on
// first use and rejecting any later format change
func (o *Oto) context(format StreamFormat) (*oto.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		if o.sampleRate != format.SampleRate || o.channels != format.Channels {
			return nil, fmt.Errorf("%w: oto is running at %dHz/%dch, cannot open %dHz/%dch",
				ErrUnsupportedFormat, o.sampleRate, o.channels, format.SampleRate, format.Channels)
		}
		return o.otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatFloat32LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = format.SampleRate
	o.channels = format.Channels

	o.log.Info().
		Int("sample_rate", format.SampleRate).
		Int("channels", format.Channels).
		Msg("Audio output initialized")

	return ctx, nil
}

// Close suspends the oto context
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend oto context: %w", err)
		}
	}
	return nil
}

type otoStream struct {
	player  *oto.Player
	pr      *io.PipeReader
	pw      *io.PipeWriter
	encoder encode.Encoder
	once    sync.Once
}

// Write outputs audio samples (blocks until the player has read them)
func (s *otoStream) Write(block []float32) error {
	data, err := s.encoder.Encode(block)
	if err != nil {
		return fmt.Errorf("failed to encode block: %w", err)
	}

	if _, err := s.pw.Write(data); err != nil {
		if err == io.ErrClosedPipe {
			return ErrStreamClosed
		}
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Close ends the pipe and waits for the player to run out of data
func (s *otoStream) Close() error {
	s.once.Do(func() {
		s.pw.Close()
		for s.player.IsPlaying() {
			time.Sleep(otoDrainPoll)
		}
		s.player.Close()
	})
	return nil
}

// Abort pauses the player and drops whatever it has buffered
func (s *otoStream) Abort() error {
	s.once.Do(func() {
		s.player.Pause()
		s.pw.CloseWithError(ErrStreamClosed)
		s.pr.Close()
		s.player.Close()
	})
	return nil
}
