// ABOUTME: Remote control server for the playback engine
// ABOUTME: Serves the websocket control endpoint, Prometheus metrics and a health check
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/towerofbabel/soundboard-go/internal/config"
	"github.com/towerofbabel/soundboard-go/internal/discovery"
	"github.com/towerofbabel/soundboard-go/internal/metrics"
	"github.com/towerofbabel/soundboard-go/internal/protocol"
	"github.com/towerofbabel/soundboard-go/internal/version"
	"github.com/towerofbabel/soundboard-go/pkg/soundboard"
)

const (
	// DefaultPort is the control server's default listen port
	DefaultPort = 8928

	// Path is the websocket endpoint
	Path = discovery.DefaultPath

	helloTimeout    = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Config configures a control server
type Config struct {
	// Address to bind (default: all interfaces)
	Address string

	// Port to listen on (default: 8928)
	Port int

	// Name of the server for identification
	Name string

	// SoundsDir holds the files remote clients may play
	SoundsDir string

	// DefaultVolume (0-100) applies when a request carries no volume
	DefaultVolume int

	// MultiPlay lets sessions overlap; when false every play is exclusive
	MultiPlay bool

	// EnableMDNS enables mDNS service advertisement
	EnableMDNS bool

	// MetricsPath serves Gatherer in Prometheus format; empty disables it
	MetricsPath string
	Gatherer    prometheus.Gatherer

	// Metrics receives control client counters (optional)
	Metrics *metrics.Metrics

	Logger zerolog.Logger
}

// Server exposes an engine to remote clients
type Server struct {
	config   Config
	serverID string
	engine   *soundboard.Engine
	hub      *Hub
	log      zerolog.Logger

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	wg sync.WaitGroup
}

// NewServer creates a control server for engine. hub should also be
// registered as the engine's observer so clients see session events.
func NewServer(engine *soundboard.Engine, hub *Hub, cfg Config) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("control: engine is required")
	}
	if hub == nil {
		hub = NewHub(cfg.Logger)
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Name == "" {
		cfg.Name = version.Product
	}
	if cfg.SoundsDir == "" {
		cfg.SoundsDir = "sounds"
	}
	if cfg.DefaultVolume < 0 || cfg.DefaultVolume > 100 {
		return nil, fmt.Errorf("control: default volume must be between 0 and 100, got %d", cfg.DefaultVolume)
	}

	s := &Server{
		config:   cfg,
		serverID: uuid.New().String(),
		engine:   engine,
		hub:      hub,
		log:      cfg.Logger.With().Str("component", "control").Logger(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Local network control surface; any origin may connect
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	s.mux.HandleFunc(Path, s.handleWebSocket)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	if cfg.MetricsPath != "" && cfg.Gatherer != nil {
		s.mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return s, nil
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens and serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Address, strconv.Itoa(s.config.Port))

	var mdnsManager *discovery.Manager
	if s.config.EnableMDNS {
		mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        Path,
			Logger:      &s.log,
		})
		if err := mdnsManager.Advertise(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to start mDNS advertisement")
		}
		defer mdnsManager.Stop()
	}

	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Str("name", s.config.Name).Msg("Control server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("Control server shutting down")
	case err := <-errChan:
		return fmt.Errorf("failed to serve control: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	// Hijacked websocket connections outlive Shutdown
	s.hub.closeAll()
	s.wg.Wait()

	s.log.Info().Msg("Control server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "ok",
		"version":  version.Version,
		"backend":  s.engine.Backend().Name(),
		"sessions": len(s.engine.Sessions()),
		"clients":  s.hub.Count(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	s.log.Debug().Str("remote", r.RemoteAddr).Msg("New control connection")

	s.wg.Add(1)
	defer s.wg.Done()
	s.handleConnection(conn)
}

// handleConnection runs the hello handshake and then the request loop
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	var env protocol.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		s.log.Debug().Err(err).Msg("Error reading hello")
		return
	}
	conn.SetReadDeadline(time.Time{})

	if env.Type != protocol.TypeClientHello {
		s.log.Warn().Str("type", env.Type).Msg("Expected client/hello")
		return
	}

	var hello protocol.ClientHello
	if err := env.Decode(&hello); err != nil {
		s.log.Warn().Err(err).Msg("Invalid client hello")
		return
	}
	if hello.ClientID == "" || hello.Name == "" {
		s.log.Warn().Msg("Client hello missing required fields")
		return
	}

	c := &client{
		ID:       hello.ClientID,
		Name:     hello.Name,
		Conn:     conn,
		sendChan: make(chan interface{}, sendBuffer),
	}

	if err := s.hub.add(c); err != nil {
		s.log.Warn().Err(err).Msg("Rejecting duplicate client")
		return
	}
	if s.config.Metrics != nil {
		s.config.Metrics.ControlClients.Inc()
	}

	s.log.Info().Str("client", c.Name).Str("id", c.ID).Msg("Control client connected")

	defer func() {
		s.hub.remove(c)
		if s.config.Metrics != nil {
			s.config.Metrics.ControlClients.Dec()
		}
		s.log.Info().Str("client", c.Name).Msg("Control client disconnected")
	}()

	c.send(protocol.TypeServerHello, protocol.ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  protocol.Version,
		Product:  version.Product,
		Software: version.Version,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.writeLoop()
	}()

	for {
		var env protocol.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Str("client", c.Name).Msg("WebSocket read error")
			}
			return
		}

		s.handleClientMessage(c, env)
	}
}

// handleClientMessage dispatches one request
func (s *Server) handleClientMessage(c *client, env protocol.Envelope) {
	if s.config.Metrics != nil {
		s.config.Metrics.ControlMessages.WithLabelValues(env.Type).Inc()
	}

	switch env.Type {
	case protocol.TypePlay:
		s.handlePlay(c, env)
	case protocol.TypeStop:
		s.handleStop(c, env)
	case protocol.TypeListDevices:
		s.handleListDevices(c)
	case protocol.TypeListSounds:
		s.handleListSounds(c)
	default:
		s.sendError(c, env.Type, "", fmt.Errorf("unknown message type %q", env.Type))
	}
}

func (s *Server) handlePlay(c *client, env protocol.Envelope) {
	var req protocol.Play
	if err := env.Decode(&req); err != nil {
		s.sendError(c, env.Type, "", err)
		return
	}

	path, err := ResolveSound(s.config.SoundsDir, req.Sound)
	if err != nil {
		s.sendError(c, env.Type, req.RequestID, err)
		return
	}

	volume := s.config.DefaultVolume
	if req.Volume != nil {
		volume = *req.Volume
	}
	if volume < 0 || volume > 100 {
		s.sendError(c, env.Type, req.RequestID, fmt.Errorf("volume must be between 0 and 100, got %d", volume))
		return
	}
	if req.StartMs < 0 || req.EndMs < 0 {
		s.sendError(c, env.Type, req.RequestID, fmt.Errorf("start_ms and end_ms must not be negative"))
		return
	}

	session, err := s.engine.PlayWith(soundboard.PlayRequest{
		Path:      path,
		Devices:   req.Devices,
		Gain:      config.VolumeToGain(volume),
		Start:     time.Duration(req.StartMs) * time.Millisecond,
		End:       time.Duration(req.EndMs) * time.Millisecond,
		Exclusive: req.Exclusive || !s.config.MultiPlay,
	})
	if err != nil {
		var pe *soundboard.PlaybackError
		if errors.As(err, &pe) {
			c.send(protocol.TypePlaybackError, playbackError(pe))
			return
		}
		s.sendError(c, env.Type, req.RequestID, err)
		return
	}

	s.log.Info().
		Str("client", c.Name).
		Str("sound", req.Sound).
		Str("session", session.ID()).
		Msg("Remote play")

	ack := sessionState(session, soundboard.StateLoading, session.State())
	ack.RequestID = req.RequestID
	c.send(protocol.TypeSessionState, ack)
}

func (s *Server) handleStop(c *client, env protocol.Envelope) {
	var req protocol.Stop
	if err := env.Decode(&req); err != nil {
		s.sendError(c, env.Type, "", err)
		return
	}

	if req.SessionID == "" {
		s.engine.Stop()
		return
	}

	session, ok := s.engine.Session(req.SessionID)
	if !ok {
		s.sendError(c, env.Type, "", fmt.Errorf("no live session %s", req.SessionID))
		return
	}
	session.Cancel()
	session.Wait()
}

func (s *Server) handleListDevices(c *client) {
	devices, err := s.engine.Devices()
	if err != nil {
		s.sendError(c, protocol.TypeListDevices, "", err)
		return
	}

	payload := protocol.Devices{
		Backend: s.engine.Backend().Name(),
		Devices: make([]protocol.Device, 0, len(devices)),
	}
	for _, d := range devices {
		payload.Devices = append(payload.Devices, protocol.Device{
			ID:                d.ID,
			Index:             d.Index,
			Name:              d.Name,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			IsDefault:         d.IsDefault,
		})
	}
	c.send(protocol.TypeDevices, payload)
}

func (s *Server) handleListSounds(c *client) {
	sounds, err := ListSounds(s.config.SoundsDir)
	if err != nil {
		s.sendError(c, protocol.TypeListSounds, "", err)
		return
	}
	c.send(protocol.TypeSounds, protocol.Sounds{Sounds: sounds})
}

func (s *Server) sendError(c *client, request, requestID string, err error) {
	s.log.Debug().Err(err).Str("client", c.Name).Str("request", request).Msg("Rejected control request")
	c.send(protocol.TypeError, protocol.Error{
		Request:   request,
		RequestID: requestID,
		Message:   err.Error(),
	})
}
