// ABOUTME: Prometheus metrics for the playback engine
// ABOUTME: Implements soundboard.Observer and registers counters on a caller-supplied registry
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/towerofbabel/soundboard-go/pkg/audio/output"
	"github.com/towerofbabel/soundboard-go/pkg/soundboard"
)

// Metrics contains all Prometheus metrics for the soundboard
type Metrics struct {
	// Session metrics
	SessionsStarted  prometheus.Counter
	SessionsFinished *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
	SessionDuration  prometheus.Histogram

	// Device worker metrics
	WorkersSpawned *prometheus.CounterVec
	BlocksWritten  *prometheus.CounterVec
	FramesWritten  *prometheus.CounterVec
	PlaybackErrors *prometheus.CounterVec

	// Remote control metrics
	ControlClients  prometheus.Gauge
	ControlMessages *prometheus.CounterVec
}

// New creates and registers all metrics on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "soundboard_sessions_started_total",
			Help: "Total number of playback sessions that began streaming",
		}),
		SessionsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soundboard_sessions_finished_total",
			Help: "Total number of sessions by terminal state",
		}, []string{"state"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "soundboard_active_sessions",
			Help: "Current number of streaming sessions",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "soundboard_session_duration_seconds",
			Help:    "Wall-clock duration of finished sessions",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		WorkersSpawned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soundboard_workers_spawned_total",
			Help: "Total number of device workers spawned",
		}, []string{"device"}),
		BlocksWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soundboard_blocks_written_total",
			Help: "Total number of blocks accepted by devices",
		}, []string{"device"}),
		FramesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soundboard_frames_written_total",
			Help: "Total number of frames accepted by devices",
		}, []string{"device"}),
		PlaybackErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soundboard_playback_errors_total",
			Help: "Total number of per-device playback errors by kind",
		}, []string{"kind"}),
		ControlClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "soundboard_control_clients",
			Help: "Current number of connected remote control clients",
		}),
		ControlMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soundboard_control_messages_total",
			Help: "Total number of remote control messages by type",
		}, []string{"type"}),
	}
}

// SessionStateChanged implements soundboard.Observer
func (m *Metrics) SessionStateChanged(s *soundboard.Session, from, to soundboard.State) {
	switch {
	case to == soundboard.StateStreaming:
		m.SessionsStarted.Inc()
		m.ActiveSessions.Inc()
	case to.Terminal():
		if from == soundboard.StateStreaming {
			m.ActiveSessions.Dec()
		}
		m.SessionsFinished.WithLabelValues(to.String()).Inc()
		m.SessionDuration.Observe(s.Duration().Seconds())
	}
}

// WorkerSpawned implements soundboard.Observer
func (m *Metrics) WorkerSpawned(_ *soundboard.Session, deviceID string) {
	m.WorkersSpawned.WithLabelValues(deviceID).Inc()
}

// BlockWritten implements soundboard.Observer
func (m *Metrics) BlockWritten(device output.Device, frames int) {
	m.BlocksWritten.WithLabelValues(device.Name).Inc()
	m.FramesWritten.WithLabelValues(device.Name).Add(float64(frames))
}

// ErrorReported implements soundboard.Observer
func (m *Metrics) ErrorReported(err *soundboard.PlaybackError) {
	m.PlaybackErrors.WithLabelValues(err.Kind.String()).Inc()
}
