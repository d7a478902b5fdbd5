// ABOUTME: Playback session state machine
// ABOUTME: Owns a cancel token, its device workers and their per-device results
package soundboard

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// State is a session lifecycle state
type State int

const (
	StateIdle State = iota
	StateLoading
	StateStreaming
	StateCompleted
	StateCancelled
	StateFailed
)

// String returns the lowercase state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether no further transitions can happen
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Session is one play request fanned out to a set of devices
type Session struct {
	id      string
	path    string
	devices []string
	gain    float64

	token CancelToken
	group errgroup.Group
	done  chan struct{}

	onTransition func(s *Session, from, to State)

	mu        sync.Mutex
	state     State
	results   []DeviceResult
	startedAt time.Time
	endedAt   time.Time
}

func newSession(id, path string, devices []string, gain float64, onTransition func(*Session, State, State)) *Session {
	return &Session{
		id:           id,
		path:         path,
		devices:      devices,
		gain:         gain,
		done:         make(chan struct{}),
		onTransition: onTransition,
		state:        StateIdle,
		startedAt:    time.Now(),
	}
}

// ID returns the session's unique identifier
func (s *Session) ID() string {
	return s.id
}

// Path returns the source file, empty for in-memory buffers
func (s *Session) Path() string {
	return s.path
}

// Devices returns the device identifiers the session targets
func (s *Session) Devices() []string {
	return append([]string(nil), s.devices...)
}

// Gain returns the gain applied to the session's buffer
func (s *Session) Gain() float64 {
	return s.gain
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartedAt returns when the session was created
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Duration returns how long the session ran, or has been running
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endedAt.IsZero() {
		return time.Since(s.startedAt)
	}
	return s.endedAt.Sub(s.startedAt)
}

// Cancel asks every worker to stop at its next block boundary. It does not
// wait; use Wait for that.
func (s *Session) Cancel() {
	s.token.Cancel()
}

// Done is closed once every worker has finished
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until every worker has finished and returns the final state
func (s *Session) Wait() State {
	<-s.done
	return s.State()
}

// Results returns the per-device outcomes recorded so far
func (s *Session) Results() []DeviceResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DeviceResult(nil), s.results...)
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	from := s.state
	if from == to || from.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = to
	if to.Terminal() {
		s.endedAt = time.Now()
	}
	s.mu.Unlock()

	if s.onTransition != nil {
		s.onTransition(s, from, to)
	}
}

func (s *Session) addResult(r DeviceResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

// finalState derives the terminal state from the worker results: cancelled
// if any worker observed the token, failed if every worker failed,
// completed otherwise
func (s *Session) finalState() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	failed := 0
	for _, r := range s.results {
		if r.Cancelled {
			return StateCancelled
		}
		if r.Err != nil {
			failed++
		}
	}
	if len(s.results) > 0 && failed == len(s.results) {
		return StateFailed
	}
	return StateCompleted
}
