//go:build portaudio

// ABOUTME: PortAudio output backend
// ABOUTME: Blocking-write streams on indexed PortAudio devices
package output

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// PortAudio backend using blocking stream writes
type PortAudio struct {
	log zerolog.Logger
}

// NewPortAudio initializes PortAudio
func NewPortAudio(opts Options) (*PortAudio, error) {
	cfg := opts.withDefaults()

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	return &PortAudio{
		log: cfg.Logger.With().Str("backend", "portaudio").Logger(),
	}, nil
}

// Name returns "portaudio"
func (p *PortAudio) Name() string {
	return "portaudio"
}

// Devices lists PortAudio devices with at least one output channel
func (p *PortAudio) Devices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	defaultIndex := -1
	if def, err := portaudio.DefaultOutputDevice(); err == nil {
		defaultIndex = def.Index
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info.MaxOutputChannels < 1 {
			continue
		}
		devices = append(devices, Device{
			ID:                strconv.Itoa(info.Index),
			Index:             info.Index,
			Name:              info.Name,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: int(info.DefaultSampleRate),
			IsDefault:         info.Index == defaultIndex,
		})
	}
	return devices, nil
}

// Open starts a blocking output stream on device
func (p *PortAudio) Open(device Device, format StreamFormat) (Stream, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	var info *portaudio.DeviceInfo
	for _, candidate := range infos {
		if candidate.Index == device.Index {
			info = candidate
			break
		}
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
	}

	blockFrames := format.BlockFrames
	if blockFrames <= 0 {
		blockFrames = 1024
	}

	params := portaudio.LowLatencyParameters(nil, info)
	params.Output.Channels = format.Channels
	params.SampleRate = float64(format.SampleRate)
	params.FramesPerBuffer = blockFrames

	s := &portAudioStream{
		buffer:   make([]float32, blockFrames*format.Channels),
		channels: format.Channels,
		log:      p.log.With().Str("device", device.Name).Logger(),
	}

	stream, err := portaudio.OpenStream(params, s.buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream on %s: %w", device, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start stream on %s: %w", device, err)
	}
	s.stream = stream

	return s, nil
}

// Close terminates PortAudio
func (p *PortAudio) Close() error {
	return portaudio.Terminate()
}

type portAudioStream struct {
	stream   *portaudio.Stream
	buffer   []float32 // bound to the stream at open time
	channels int
	log      zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// Write copies block into the bound buffer one hardware buffer at a time,
// zero-padding the final partial buffer
func (s *portAudioStream) Write(block []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}

	for len(block) > 0 {
		n := copy(s.buffer, block)
		for i := n; i < len(s.buffer); i++ {
			s.buffer[i] = 0
		}
		block = block[n:]

		if err := s.stream.Write(); err != nil {
			return fmt.Errorf("stream write failed: %w", err)
		}
	}
	return nil
}

func (s *portAudioStream) Close() error {
	return s.finish(s.stream.Stop)
}

func (s *portAudioStream) Abort() error {
	return s.finish(s.stream.Abort)
}

func (s *portAudioStream) finish(halt func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	haltErr := halt()
	closeErr := s.stream.Close()
	if haltErr != nil {
		return fmt.Errorf("failed to stop stream: %w", haltErr)
	}
	return closeErr
}

func newPortAudioBackend(opts Options) (Backend, error) {
	p, err := NewPortAudio(opts)
	if err != nil {
		return nil, err
	}
	return p, nil
}
