// ABOUTME: WebSocket client for the soundboard control protocol
// ABOUTME: Handles connection, handshake, requests and event routing
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/towerofbabel/soundboard-go/internal/protocol"
)

// ErrNotConnected is returned by requests on a closed client
var ErrNotConnected = errors.New("not connected")

const (
	handshakeTimeout = 5 * time.Second
	eventBuffer      = 32
)

// Config holds client configuration
type Config struct {
	ServerAddr string // host:port
	Path       string // default: /soundboard
	ClientID   string // default: random
	Name       string
	Logger     *zerolog.Logger
}

// Client is a remote control connection to a soundboard
type Client struct {
	config Config
	log    zerolog.Logger
	conn   *websocket.Conn
	mu     sync.RWMutex
	hello  protocol.ServerHello

	// Event channels; events are dropped when a channel is full
	States chan protocol.SessionState
	Errors chan protocol.PlaybackError
	Denied chan protocol.Error

	// Replies to list requests
	devices  chan protocol.Devices
	sounds   chan protocol.Sounds
	listErrs chan protocol.Error

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = "/soundboard"
	}
	if config.ClientID == "" {
		config.ClientID = uuid.New().String()
	}
	if config.Name == "" {
		config.Name = "soundboard-remote"
	}

	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:   config,
		log:      logger.With().Str("component", "client").Logger(),
		States:   make(chan protocol.SessionState, eventBuffer),
		Errors:   make(chan protocol.PlaybackError, eventBuffer),
		Denied:   make(chan protocol.Error, eventBuffer),
		devices:  make(chan protocol.Devices, 1),
		sounds:   make(chan protocol.Sounds, 1),
		listErrs: make(chan protocol.Error, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect establishes the WebSocket connection and performs the handshake
func (c *Client) Connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	c.log.Debug().Str("url", u.String()).Msg("Connecting")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake sends client/hello and waits for server/hello
func (c *Client) handshake() error {
	hello := protocol.ClientHello{
		ClientID: c.config.ClientID,
		Name:     c.config.Name,
		Version:  protocol.Version,
	}
	if err := c.send(protocol.TypeClientHello, hello); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	var env protocol.Envelope
	if err := c.conn.ReadJSON(&env); err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	if env.Type != protocol.TypeServerHello {
		return fmt.Errorf("expected server/hello, got %s", env.Type)
	}
	if err := env.Decode(&c.hello); err != nil {
		return err
	}

	c.log.Info().Str("server", c.hello.Name).Str("version", c.hello.Software).Msg("Handshake complete")
	return nil
}

// Server returns the server/hello received during Connect
func (c *Client) Server() protocol.ServerHello {
	return c.hello
}

// send writes one JSON message
func (c *Client) send(msgType string, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return ErrNotConnected
	}

	return c.conn.WriteJSON(protocol.Message{Type: msgType, Payload: payload})
}

// readMessages reads and routes incoming messages until the connection ends
func (c *Client) readMessages() {
	defer c.Close()

	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			select {
			case <-c.ctx.Done():
			default:
				c.log.Debug().Err(err).Msg("Read error")
			}
			return
		}

		if err := c.route(env); err != nil {
			c.log.Warn().Err(err).Msg("Failed to handle message")
		}
	}
}

// route delivers one message to its channel
func (c *Client) route(env protocol.Envelope) error {
	switch env.Type {
	case protocol.TypeSessionState:
		var state protocol.SessionState
		if err := env.Decode(&state); err != nil {
			return err
		}
		deliver(c, c.States, state)

	case protocol.TypePlaybackError:
		var perr protocol.PlaybackError
		if err := env.Decode(&perr); err != nil {
			return err
		}
		deliver(c, c.Errors, perr)

	case protocol.TypeDevices:
		var devices protocol.Devices
		if err := env.Decode(&devices); err != nil {
			return err
		}
		deliver(c, c.devices, devices)

	case protocol.TypeSounds:
		var sounds protocol.Sounds
		if err := env.Decode(&sounds); err != nil {
			return err
		}
		deliver(c, c.sounds, sounds)

	case protocol.TypeError:
		var denied protocol.Error
		if err := env.Decode(&denied); err != nil {
			return err
		}
		if denied.Request == protocol.TypeListDevices || denied.Request == protocol.TypeListSounds {
			deliver(c, c.listErrs, denied)
		} else {
			deliver(c, c.Denied, denied)
		}

	default:
		c.log.Debug().Str("type", env.Type).Msg("Unknown message type")
	}
	return nil
}

func deliver[T any](c *Client, ch chan T, v T) {
	select {
	case ch <- v:
	default:
		c.log.Debug().Msg("Event channel full, dropping message")
	}
}

// Play asks the server to play a sound
func (c *Client) Play(req protocol.Play) error {
	return c.send(protocol.TypePlay, req)
}

// Stop cancels one session, or every session when sessionID is empty
func (c *Client) Stop(sessionID string) error {
	return c.send(protocol.TypeStop, protocol.Stop{SessionID: sessionID})
}

// ListDevices returns the server's output devices
func (c *Client) ListDevices(ctx context.Context) (protocol.Devices, error) {
	if err := c.send(protocol.TypeListDevices, nil); err != nil {
		return protocol.Devices{}, err
	}

	select {
	case devices := <-c.devices:
		return devices, nil
	case denied := <-c.listErrs:
		return protocol.Devices{}, fmt.Errorf("server rejected %s: %s", denied.Request, denied.Message)
	case <-c.ctx.Done():
		return protocol.Devices{}, ErrNotConnected
	case <-ctx.Done():
		return protocol.Devices{}, ctx.Err()
	}
}

// ListSounds returns the sounds the server can play
func (c *Client) ListSounds(ctx context.Context) ([]string, error) {
	if err := c.send(protocol.TypeListSounds, nil); err != nil {
		return nil, err
	}

	select {
	case sounds := <-c.sounds:
		return sounds.Sounds, nil
	case denied := <-c.listErrs:
		return nil, fmt.Errorf("server rejected %s: %s", denied.Request, denied.Message)
	case <-c.ctx.Done():
		return nil, ErrNotConnected
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		c.log.Debug().Msg("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
