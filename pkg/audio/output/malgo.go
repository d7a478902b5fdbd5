// ABOUTME: Malgo-based audio output backend
// ABOUTME: Opens one miniaudio playback device per stream, fed from a float32 ring buffer
package output

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// Malgo backend using the malgo/miniaudio library
type Malgo struct {
	malgoCtx       *malgo.AllocatedContext
	bufferDuration time.Duration
	log            zerolog.Logger

	mu      sync.Mutex
	devices map[string]malgo.DeviceInfo
}

// NewMalgo initializes a miniaudio context
func NewMalgo(opts Options) (*Malgo, error) {
	cfg := opts.withDefaults()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	return &Malgo{
		malgoCtx:       ctx,
		bufferDuration: cfg.BufferDuration,
		log:            cfg.Logger.With().Str("backend", "malgo").Logger(),
		devices:        make(map[string]malgo.DeviceInfo),
	}, nil
}

// Name returns "malgo"
func (m *Malgo) Name() string {
	return "malgo"
}

// Devices queries miniaudio for playback devices
func (m *Malgo) Devices() ([]Device, error) {
	infos, err := m.malgoCtx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	devices := make([]Device, 0, len(infos))
	for i, info := range infos {
		// Native formats are only reported by a full device query
		full, err := m.malgoCtx.DeviceInfo(malgo.Playback, info.ID, malgo.Shared)
		if err != nil {
			m.log.Debug().Err(err).Str("device", info.Name()).Msg("Device info query failed, using defaults")
			full = info
		}

		maxChannels, rate := nativeFormat(full.Formats)
		id := info.ID.String()
		m.devices[id] = info

		devices = append(devices, Device{
			ID:                id,
			Index:             i,
			Name:              info.Name(),
			MaxOutputChannels: maxChannels,
			DefaultSampleRate: rate,
			IsDefault:         info.IsDefault != 0,
		})
	}

	return devices, nil
}

// nativeFormat picks the largest channel count and first sample rate from
// the formats a device reports. miniaudio uses 0 for "any".
func nativeFormat(formats []malgo.DataFormat) (channels, sampleRate int) {
	for _, f := range formats {
		if int(f.Channels) > channels {
			channels = int(f.Channels)
		}
		if sampleRate == 0 && f.SampleRate != 0 {
			sampleRate = int(f.SampleRate)
		}
	}
	if channels == 0 {
		channels = 2
	}
	return channels, sampleRate
}

// Open initializes and starts a playback device for one stream
func (m *Malgo) Open(device Device, format StreamFormat) (Stream, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	info, ok := m.devices[device.ID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
	}

	// Ring buffer sized to the configured latency
	bufferSamples := int(int64(format.SampleRate)*int64(format.Channels)*int64(m.bufferDuration)/int64(time.Second))
	if floor := format.BlockFrames * format.Channels; bufferSamples < floor {
		bufferSamples = floor
	}

	s := &malgoStream{
		ring:       NewRingBuffer(bufferSamples),
		channels:   format.Channels,
		sampleRate: format.SampleRate,
		log:      m.log.With().Str("device", device.Name).Logger(),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.Playback.DeviceID = info.ID.Pointer()
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			s.dataCallback(pOutputSample, frameCount)
		},
	}

	dev, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device %s: %w", device, err)
	}

	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("failed to start device %s: %w", device, err)
	}
	s.device = dev

	s.log.Debug().
		Int("sample_rate", format.SampleRate).
		Int("channels", format.Channels).
		Msg("Playback stream opened")

	return s, nil
}

// Close releases the miniaudio context
func (m *Malgo) Close() error {
	if m.malgoCtx == nil {
		return nil
	}
	if err := m.malgoCtx.Uninit(); err != nil {
		m.log.Warn().Err(err).Msg("malgo context uninit error")
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil
	return nil
}

type malgoStream struct {
	device     *malgo.Device
	ring       *RingBuffer
	channels   int
	sampleRate int
	period     atomic.Uint32 // frames requested by the last callback
	scratch    []float32
	log        zerolog.Logger
	once       sync.Once
}

// dataCallback is called by malgo to fill the audio output buffer
func (s *malgoStream) dataCallback(pOutput []byte, frameCount uint32) {
	s.period.Store(frameCount)

	total := int(frameCount) * s.channels
	if cap(s.scratch) < total {
		s.scratch = make([]float32, total)
	}
	samples := s.scratch[:total]

	s.ring.Read(samples)

	for i, sample := range samples {
		binary.LittleEndian.PutUint32(pOutput[i*4:], math.Float32bits(sample))
	}
}

func (s *malgoStream) Write(block []float32) error {
	return s.ring.Write(block)
}

func (s *malgoStream) Close() error {
	s.ring.Drain()
	// Drain returns once the last samples are copied into the device
	// buffer; that period still has to play out
	time.Sleep(periodDuration(s.period.Load(), s.sampleRate))
	return s.release()
}

func (s *malgoStream) Abort() error {
	s.ring.Close()
	return s.release()
}

// release stops and uninitializes the device exactly once
func (s *malgoStream) release() error {
	var err error
	s.once.Do(func() {
		s.ring.Close()
		if stopErr := s.device.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop device: %w", stopErr)
		}
		s.device.Uninit()
		s.log.Debug().Msg("Playback stream closed")
	})
	return err
}

// periodDuration returns the playback time of one callback period. With no
// callback seen yet it assumes miniaudio's default 10ms period.
func periodDuration(frames uint32, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	if frames == 0 {
		frames = uint32(sampleRate / 100)
	}
	return time.Duration(int64(frames) * int64(time.Second) / int64(sampleRate))
}
