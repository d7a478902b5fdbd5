// ABOUTME: Connected control client registry
// ABOUTME: Broadcasts engine session and error events to every client without blocking workers
package control

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/towerofbabel/soundboard-go/internal/protocol"
	"github.com/towerofbabel/soundboard-go/pkg/soundboard"
)

const (
	sendBuffer    = 64
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// client represents a connected remote (internal)
type client struct {
	ID   string
	Name string
	Conn *websocket.Conn

	// Output channel for messages
	sendChan chan interface{}
}

// Hub tracks connected clients and fans engine events out to them. It
// implements soundboard.Observer.
type Hub struct {
	soundboard.NopObserver

	log zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub creates an empty hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		log:     logger.With().Str("component", "control").Logger(),
		clients: make(map[string]*client),
	}
}

// SessionStateChanged broadcasts a session/state event
func (h *Hub) SessionStateChanged(s *soundboard.Session, from, to soundboard.State) {
	h.Broadcast(protocol.TypeSessionState, sessionState(s, from, to))
}

// ErrorReported broadcasts a playback/error event
func (h *Hub) ErrorReported(err *soundboard.PlaybackError) {
	h.Broadcast(protocol.TypePlaybackError, playbackError(err))
}

// Broadcast queues a message for every client. Clients whose buffer is full
// miss the message.
func (h *Hub) Broadcast(msgType string, payload interface{}) {
	msg := protocol.Message{Type: msgType, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.sendChan <- msg:
		default:
			h.log.Warn().Str("client", c.Name).Str("type", msgType).Msg("Client send buffer full, dropping message")
		}
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// add registers c, rejecting a duplicate client id
func (h *Hub) add(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[c.ID]; exists {
		return fmt.Errorf("client ID %s already connected", c.ID)
	}
	h.clients[c.ID] = c
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.ID] != c {
		return
	}
	delete(h.clients, c.ID)
	close(c.sendChan)
}

// closeAll drops every connection so their read loops return
func (h *Hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		c.Conn.Close()
	}
}

// send queues a message for one client
func (c *client) send(msgType string, payload interface{}) error {
	select {
	case c.sendChan <- protocol.Message{Type: msgType, Payload: payload}:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// writeLoop sends queued messages and keepalive pings until the channel closes
func (c *client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

func sessionState(s *soundboard.Session, from, to soundboard.State) protocol.SessionState {
	sound := ""
	if s.Path() != "" {
		sound = filepath.Base(s.Path())
	}
	return protocol.SessionState{
		SessionID: s.ID(),
		Sound:     sound,
		Devices:   s.Devices(),
		Previous:  from.String(),
		State:     to.String(),
	}
}

func playbackError(err *soundboard.PlaybackError) protocol.PlaybackError {
	msg := protocol.PlaybackError{
		SessionID: err.Session,
		Device:    err.Device,
		Kind:      err.Kind.String(),
		Message:   err.Error(),
	}
	if err.Err != nil {
		msg.Message = err.Err.Error()
	}
	return msg
}
