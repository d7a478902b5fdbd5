// ABOUTME: Playback session coordinator
// ABOUTME: Loads a sound once, applies gain and fans it out to one worker per device
package soundboard

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/towerofbabel/soundboard-go/pkg/audio"
	"github.com/towerofbabel/soundboard-go/pkg/audio/decode"
	"github.com/towerofbabel/soundboard-go/pkg/audio/output"
)

// Config holds engine configuration
type Config struct {
	// Backend provides devices and streams (required)
	Backend output.Backend

	// BlockFrames is the number of frames per device write (default: 1024)
	BlockFrames int

	// DefaultDevices are used when a request names no devices
	DefaultDevices []string

	// Resample converts buffers to each device's default sample rate
	Resample bool

	// MaxStreamChannels caps the channel count opened on any device (0: no cap)
	MaxStreamChannels int

	// Logger receives engine diagnostics (default: the global zerolog logger)
	Logger *zerolog.Logger

	// Observer receives instrumentation events
	Observer Observer

	// OnError is called for every per-device failure. It runs on the
	// failing worker's goroutine and should return quickly.
	OnError func(error)

	// OnStateChange is called on every session state transition
	OnStateChange func(SessionEvent)
}

// SessionEvent describes a session state transition
type SessionEvent struct {
	Session  string
	Path     string
	Previous State
	State    State
}

// PlayRequest describes one play call
type PlayRequest struct {
	// Path of the sound file
	Path string

	// Devices to play on; Config.DefaultDevices when empty
	Devices []string

	// Gain multiplies every sample before clamping to [-1, 1]
	Gain float64

	// Start and End select a range of the file; zero End plays to the end
	Start time.Duration
	End   time.Duration

	// Exclusive stops every live session before this one starts
	Exclusive bool
}

// Engine coordinates playback sessions across devices
type Engine struct {
	config   Config
	log      zerolog.Logger
	observer Observer
	writer   *StreamWriter
	stats    counters

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// New creates an engine with the given configuration
func New(config Config) (*Engine, error) {
	if config.Backend == nil {
		return nil, fmt.Errorf("soundboard: config.Backend is required")
	}
	if config.BlockFrames <= 0 {
		config.BlockFrames = DefaultBlockFrames
	}
	if config.MaxStreamChannels < 0 {
		return nil, fmt.Errorf("soundboard: invalid MaxStreamChannels %d", config.MaxStreamChannels)
	}

	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}
	logger = logger.With().Str("component", "soundboard").Logger()

	observer := config.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	e := &Engine{
		config:   config,
		log:      logger,
		observer: observer,
		sessions: make(map[string]*Session),
	}

	e.writer = &StreamWriter{
		Backend:     config.Backend,
		BlockFrames: config.BlockFrames,
		MaxChannels: config.MaxStreamChannels,
		Resample:    config.Resample,
		Logger:      logger,
		OnBlock:     e.blockWritten,
	}

	return e, nil
}

// Play loads path and plays it on devices at gain. It returns once the
// workers are spawned; only a load failure is returned as an error.
func (e *Engine) Play(path string, devices []string, gain float64) (*Session, error) {
	return e.PlayWith(PlayRequest{Path: path, Devices: devices, Gain: gain})
}

// PlayWith is Play with range selection and exclusive mode
func (e *Engine) PlayWith(req PlayRequest) (*Session, error) {
	devices, err := e.prepare(req.Devices, req.Gain)
	if err != nil {
		return nil, err
	}

	s := e.newSession(req.Path, devices, req.Gain)
	if err := e.register(s); err != nil {
		return nil, err
	}
	s.transition(StateLoading)

	buf, err := decode.Load(req.Path)
	if err != nil {
		e.stats.decodeFailures.Add(1)
		e.unregister(s)
		s.transition(StateFailed)
		close(s.done)
		e.log.Error().Err(err).Str("session", s.id).Str("path", req.Path).Msg("Failed to load sound")
		return nil, &PlaybackError{Kind: KindDecode, Session: s.id, Err: err}
	}

	if req.Start > 0 || req.End > 0 {
		buf = buf.Slice(req.Start, req.End)
	}

	// A sound that fails to load leaves current playback alone
	if req.Exclusive {
		e.stopExcept(s)
	}

	e.log.Info().
		Str("session", s.id).
		Str("path", req.Path).
		Str("format", buf.Format().String()).
		Dur("duration", buf.Duration()).
		Strs("devices", devices).
		Float64("gain", req.Gain).
		Msg("Playing sound")

	e.start(s, buf)
	return s, nil
}

// PlayBuffer plays an already decoded buffer
func (e *Engine) PlayBuffer(buf *audio.SampleBuffer, devices []string, gain float64) (*Session, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	devices, err := e.prepare(devices, gain)
	if err != nil {
		return nil, err
	}

	s := e.newSession("", devices, gain)
	if err := e.register(s); err != nil {
		return nil, err
	}
	s.transition(StateLoading)

	e.start(s, buf)
	return s, nil
}

// prepare validates a request and resolves its device list
func (e *Engine) prepare(devices []string, gain float64) ([]string, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	if gain < 0 || math.IsNaN(gain) || math.IsInf(gain, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGain, gain)
	}

	if len(devices) == 0 {
		devices = e.config.DefaultDevices
	}

	// Each device gets exactly one worker
	seen := make(map[string]bool, len(devices))
	unique := make([]string, 0, len(devices))
	for _, d := range devices {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		unique = append(unique, d)
	}
	if len(unique) == 0 {
		return nil, ErrNoDevices
	}
	return unique, nil
}

func (e *Engine) newSession(path string, devices []string, gain float64) *Session {
	s := newSession(uuid.New().String(), path, devices, gain, e.stateChanged)
	e.stats.sessionsStarted.Add(1)
	return s
}

// register makes s visible to Stop before it starts loading
func (e *Engine) register(s *Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.sessions[s.id] = s
	return nil
}

func (e *Engine) unregister(s *Session) {
	e.mu.Lock()
	delete(e.sessions, s.id)
	e.mu.Unlock()
}

// start applies gain and spawns one worker per device. A session cancelled
// while loading ends here without opening any device.
func (e *Engine) start(s *Session, buf *audio.SampleBuffer) {
	if s.token.Cancelled() {
		e.unregister(s)
		s.transition(StateCancelled)
		close(s.done)
		e.log.Info().Str("session", s.id).Msg("Session stopped while loading")
		return
	}

	gained := audio.ApplyGain(buf, s.gain)

	e.stats.sessionsActive.Add(1)
	s.transition(StateStreaming)

	for _, deviceID := range s.devices {
		deviceID := deviceID
		clone := gained.Clone()

		e.stats.workersSpawned.Add(1)
		e.observer.WorkerSpawned(s, deviceID)

		s.group.Go(func() error {
			result, err := e.writer.Run(clone, deviceID, &s.token)
			if err != nil {
				var pe *PlaybackError
				if errors.As(err, &pe) {
					pe.Session = s.id
				}
				e.report(err)
			}
			s.addResult(result)
			return err
		})
	}

	go e.finish(s)
}

// finish joins the session's workers and settles its final state
func (e *Engine) finish(s *Session) {
	// Worker errors are already reported individually
	_ = s.group.Wait()

	s.transition(s.finalState())

	e.unregister(s)
	e.stats.sessionsActive.Add(-1)

	close(s.done)
}

func (e *Engine) report(err error) {
	e.stats.errorsReported.Add(1)

	var pe *PlaybackError
	if errors.As(err, &pe) {
		e.observer.ErrorReported(pe)
		e.log.Warn().
			Err(pe.Err).
			Str("session", pe.Session).
			Str("device", pe.Device).
			Str("kind", pe.Kind.String()).
			Msg("Device playback failed")
	}

	if e.config.OnError != nil {
		e.config.OnError(err)
	}
}

func (e *Engine) blockWritten(device output.Device, frames int) {
	e.stats.blocksWritten.Add(1)
	e.stats.framesWritten.Add(int64(frames))
	e.observer.BlockWritten(device, frames)
}

func (e *Engine) stateChanged(s *Session, from, to State) {
	e.log.Debug().
		Str("session", s.id).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Session state changed")

	e.observer.SessionStateChanged(s, from, to)

	if e.config.OnStateChange != nil {
		e.config.OnStateChange(SessionEvent{
			Session:  s.id,
			Path:     s.path,
			Previous: from,
			State:    to,
		})
	}
}

// Stop cancels every live session, including those still loading, and
// blocks until all of them have ended. With nothing playing it returns
// immediately.
func (e *Engine) Stop() {
	e.stopExcept(nil)
}

func (e *Engine) stopExcept(keep *Session) {
	var sessions []*Session
	for _, s := range e.Sessions() {
		if s != keep {
			sessions = append(sessions, s)
		}
	}
	if len(sessions) == 0 {
		return
	}

	for _, s := range sessions {
		s.Cancel()
	}
	for _, s := range sessions {
		s.Wait()
	}

	e.log.Info().Int("sessions", len(sessions)).Msg("Stopped playback")
}

// Sessions returns the live sessions, loading ones included, oldest first
func (e *Engine) Sessions() []*Session {
	e.mu.Lock()
	sessions := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].startedAt.Before(sessions[j].startedAt)
	})
	return sessions
}

// Session returns the live session with the given id
func (e *Engine) Session(id string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	return s, ok
}

// Devices queries the backend's output devices
func (e *Engine) Devices() ([]output.Device, error) {
	return e.config.Backend.Devices()
}

// Backend returns the output backend the engine plays through
func (e *Engine) Backend() output.Backend {
	return e.config.Backend
}

// Stats returns a snapshot of the engine counters
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// Close stops all playback and rejects further Play calls. The backend is
// left open for its owner to close.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.Stop()
	return nil
}
