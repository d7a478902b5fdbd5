// ABOUTME: In-process output backend that records every block written
// ABOUTME: Supports injected open and write failures and per-block latency for dry runs and tests
package output

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInjected is the default failure used by MemoryDevice fault options
var ErrInjected = errors.New("injected device failure")

// MemoryDevice configures one in-process device
type MemoryDevice struct {
	Device

	// OpenErr makes Open fail for this device
	OpenErr error

	// SampleRates restricts the rates Open accepts; empty accepts any
	SampleRates []int

	// FailAfter makes the Nth Write (1-based) fail with WriteErr; 0 disables
	FailAfter int
	WriteErr  error

	// BlockDelay is slept on every Write to simulate playback time
	BlockDelay time.Duration
}

// Recording is everything one opened stream received
type Recording struct {
	Device  Device
	Format  StreamFormat
	Samples []float32
	Blocks  int
	Closed  bool // drained by Close
	Aborted bool
	Opened  time.Time
	Ended   time.Time
}

// Frames returns the number of frames recorded
func (r Recording) Frames() int {
	if r.Format.Channels <= 0 {
		return 0
	}
	return len(r.Samples) / r.Format.Channels
}

// Memory is an output backend that plays into memory
type Memory struct {
	mu         sync.Mutex
	devices    []MemoryDevice
	recordings []*memoryStream
}

// DefaultMemoryDevices returns a stereo default device and a mono device
func DefaultMemoryDevices() []MemoryDevice {
	return []MemoryDevice{
		{Device: Device{ID: "mem-0", Index: 0, Name: "Memory Stereo", MaxOutputChannels: 2, DefaultSampleRate: 48000, IsDefault: true}},
		{Device: Device{ID: "mem-1", Index: 1, Name: "Memory Mono", MaxOutputChannels: 1, DefaultSampleRate: 48000}},
	}
}

// NewMemory creates a memory backend with the given devices. Index and ID
// are filled in from the position when left empty.
func NewMemory(devices ...MemoryDevice) *Memory {
	if len(devices) == 0 {
		devices = DefaultMemoryDevices()
	}

	m := &Memory{}
	for i, d := range devices {
		if d.ID == "" {
			d.ID = fmt.Sprintf("mem-%d", i)
		}
		if d.Index == 0 && i > 0 {
			d.Index = i
		}
		if d.MaxOutputChannels == 0 {
			d.MaxOutputChannels = 2
		}
		m.devices = append(m.devices, d)
	}
	return m
}

// Name returns "memory"
func (m *Memory) Name() string {
	return "memory"
}

// Devices returns the configured devices
func (m *Memory) Devices() ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	devices := make([]Device, len(m.devices))
	for i, d := range m.devices {
		devices[i] = d.Device
	}
	return devices, nil
}

// Open starts recording a stream for device
func (m *Memory) Open(device Device, format StreamFormat) (Stream, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var cfg *MemoryDevice
	for i := range m.devices {
		if m.devices[i].ID == device.ID {
			cfg = &m.devices[i]
			break
		}
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
	}

	if cfg.OpenErr != nil {
		return nil, fmt.Errorf("failed to open %s: %w", device, cfg.OpenErr)
	}
	if format.Channels > cfg.MaxOutputChannels {
		return nil, fmt.Errorf("%w: %s supports %d channels, requested %d",
			ErrUnsupportedFormat, device, cfg.MaxOutputChannels, format.Channels)
	}
	if len(cfg.SampleRates) > 0 && !containsInt(cfg.SampleRates, format.SampleRate) {
		return nil, fmt.Errorf("%w: %s does not support %dHz", ErrUnsupportedFormat, device, format.SampleRate)
	}

	writeErr := cfg.WriteErr
	if writeErr == nil {
		writeErr = ErrInjected
	}

	s := &memoryStream{
		rec: Recording{
			Device: cfg.Device,
			Format: format,
			Opened: time.Now(),
		},
		failAfter:  cfg.FailAfter,
		writeErr:   writeErr,
		blockDelay: cfg.BlockDelay,
	}
	m.recordings = append(m.recordings, s)
	return s, nil
}

// Close is a no-op
func (m *Memory) Close() error {
	return nil
}

// Recordings returns a snapshot of every stream opened on deviceID, in
// open order. An empty deviceID returns all streams.
func (m *Memory) Recordings(deviceID string) []Recording {
	m.mu.Lock()
	streams := append([]*memoryStream(nil), m.recordings...)
	m.mu.Unlock()

	var out []Recording
	for _, s := range streams {
		rec := s.snapshot()
		if deviceID == "" || rec.Device.ID == deviceID {
			out = append(out, rec)
		}
	}
	return out
}

// BlocksWritten returns the total number of blocks accepted across all streams
func (m *Memory) BlocksWritten() int {
	total := 0
	for _, rec := range m.Recordings("") {
		total += rec.Blocks
	}
	return total
}

// Reset forgets all recordings
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordings = nil
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

type memoryStream struct {
	mu         sync.Mutex
	rec        Recording
	failAfter  int
	writeErr   error
	blockDelay time.Duration
	attempts   int
	done       bool
}

func (s *memoryStream) Write(block []float32) error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	s.attempts++
	if s.failAfter > 0 && s.attempts >= s.failAfter {
		s.mu.Unlock()
		return fmt.Errorf("write to %s failed: %w", s.rec.Device, s.writeErr)
	}
	s.rec.Samples = append(s.rec.Samples, block...)
	s.rec.Blocks++
	delay := s.blockDelay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return nil
}

func (s *memoryStream) Close() error {
	return s.finish(false)
}

func (s *memoryStream) Abort() error {
	return s.finish(true)
}

func (s *memoryStream) finish(aborted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil
	}
	s.done = true
	s.rec.Closed = !aborted
	s.rec.Aborted = aborted
	s.rec.Ended = time.Now()
	return nil
}

func (s *memoryStream) snapshot() Recording {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.rec
	rec.Samples = append([]float32(nil), s.rec.Samples...)
	return rec
}
