// ABOUTME: Output backend that records each stream to a WAV file
// ABOUTME: Uses go-audio/wav to write 16-bit PCM, one file per opened stream
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"

	"github.com/towerofbabel/soundboard-go/pkg/audio/encode"
)

const wavBitDepth = 16

// WAVFile backend writes every stream to <dir>/<device>-<time>-<n>.wav
type WAVFile struct {
	dir     string
	devices []Device
	log     zerolog.Logger
	seq     atomic.Int64
}

// NewWAVFile creates dir if needed and exposes one device per name in
// opts.WAVDevices
func NewWAVFile(opts Options) (*WAVFile, error) {
	cfg := opts.withDefaults()

	if err := os.MkdirAll(cfg.WAVDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create wav output directory: %w", err)
	}

	w := &WAVFile{
		dir: cfg.WAVDir,
		log: cfg.Logger.With().Str("backend", "wav").Logger(),
	}
	for i, name := range cfg.WAVDevices {
		w.devices = append(w.devices, Device{
			ID:                "wav-" + slug(name),
			Index:             i,
			Name:              name,
			MaxOutputChannels: cfg.WAVChannels,
			IsDefault:         i == 0,
		})
	}
	return w, nil
}

// Name returns "wav"
func (w *WAVFile) Name() string {
	return "wav"
}

// Devices returns the configured file devices
func (w *WAVFile) Devices() ([]Device, error) {
	return append([]Device(nil), w.devices...), nil
}

// Open creates a new WAV file for device
func (w *WAVFile) Open(device Device, format StreamFormat) (Stream, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	known := false
	for _, d := range w.devices {
		if d.ID == device.ID {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
	}
	if format.Channels > device.MaxOutputChannels {
		return nil, fmt.Errorf("%w: %s supports %d channels, requested %d",
			ErrUnsupportedFormat, device, device.MaxOutputChannels, format.Channels)
	}

	name := fmt.Sprintf("%s-%s-%d.wav", slug(device.Name), time.Now().Format("20060102-150405"), w.seq.Add(1))
	path := filepath.Join(w.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	w.log.Debug().Str("device", device.Name).Str("path", path).Msg("Recording stream to file")

	return &wavStream{
		path:    path,
		file:    f,
		encoder: wav.NewEncoder(f, format.SampleRate, wavBitDepth, format.Channels, 1),
		format:  &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
	}, nil
}

// Close is a no-op
func (w *WAVFile) Close() error {
	return nil
}

func slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, name)
}

type wavStream struct {
	path    string
	file    *os.File
	encoder *wav.Encoder
	format  *goaudio.Format
	ints    []int

	mu     sync.Mutex
	closed bool
}

func (s *wavStream) Write(block []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}

	s.ints = encode.Ints(block, wavBitDepth, s.ints)
	buf := &goaudio.IntBuffer{
		Format:         s.format,
		Data:           s.ints,
		SourceBitDepth: wavBitDepth,
	}
	if err := s.encoder.Write(buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

// Close finalizes the WAV header
func (s *wavStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	encErr := s.encoder.Close()
	fileErr := s.file.Close()
	if encErr != nil {
		return fmt.Errorf("failed to finalize %s: %w", s.path, encErr)
	}
	return fileErr
}

// Abort keeps what was written so far; a file cannot be un-played
func (s *wavStream) Abort() error {
	return s.Close()
}
