// ABOUTME: Engine instrumentation hooks and counters
// ABOUTME: Observer interface for metrics exporters and the built-in Stats snapshot
package soundboard

import (
	"sync/atomic"

	"github.com/towerofbabel/soundboard-go/pkg/audio/output"
)

// Observer receives engine events. Methods are called from worker
// goroutines and must not block.
type Observer interface {
	SessionStateChanged(session *Session, from, to State)
	WorkerSpawned(session *Session, deviceID string)
	BlockWritten(device output.Device, frames int)
	ErrorReported(err *PlaybackError)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) SessionStateChanged(*Session, State, State) {}
func (NopObserver) WorkerSpawned(*Session, string)             {}
func (NopObserver) BlockWritten(output.Device, int)            {}
func (NopObserver) ErrorReported(*PlaybackError)               {}

// Stats is a snapshot of engine counters
type Stats struct {
	SessionsStarted int64
	SessionsActive  int64
	WorkersSpawned  int64
	BlocksWritten   int64
	FramesWritten   int64
	ErrorsReported  int64
	DecodeFailures  int64
}

type counters struct {
	sessionsStarted atomic.Int64
	sessionsActive  atomic.Int64
	workersSpawned  atomic.Int64
	blocksWritten   atomic.Int64
	framesWritten   atomic.Int64
	errorsReported  atomic.Int64
	decodeFailures  atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		SessionsStarted: c.sessionsStarted.Load(),
		SessionsActive:  c.sessionsActive.Load(),
		WorkersSpawned:  c.workersSpawned.Load(),
		BlocksWritten:   c.blocksWritten.Load(),
		FramesWritten:   c.framesWritten.Load(),
		ErrorsReported:  c.errorsReported.Load(),
		DecodeFailures:  c.decodeFailures.Load(),
	}
}

// Observers fans every event out to each of observers in order
func Observers(observers ...Observer) Observer {
	list := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) SessionStateChanged(s *Session, from, to State) {
	for _, o := range m {
		o.SessionStateChanged(s, from, to)
	}
}

func (m multiObserver) WorkerSpawned(s *Session, deviceID string) {
	for _, o := range m {
		o.WorkerSpawned(s, deviceID)
	}
}

func (m multiObserver) BlockWritten(device output.Device, frames int) {
	for _, o := range m {
		o.BlockWritten(device, frames)
	}
}

func (m multiObserver) ErrorReported(err *PlaybackError) {
	for _, o := range m {
		o.ErrorReported(err)
	}
}
