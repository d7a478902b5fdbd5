// ABOUTME: Remote control message type definitions
// ABOUTME: Defines the JSON envelope and payloads exchanged over the control websocket
package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the control protocol version announced in hello messages
const Version = 1

// Message types sent by clients
const (
	TypeClientHello = "client/hello"
	TypePlay        = "sound/play"
	TypeStop        = "sound/stop"
	TypeListDevices = "devices/list"
	TypeListSounds  = "sounds/list"
)

// Message types sent by the server
const (
	TypeServerHello   = "server/hello"
	TypeSessionState  = "session/state"
	TypePlaybackError = "playback/error"
	TypeDevices       = "devices"
	TypeSounds        = "sounds"
	TypeError         = "error"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Envelope is an inbound message whose payload has not been decoded yet
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v. An absent payload leaves v untouched.
func (e Envelope) Decode(v interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}
	return nil
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
	Product  string `json:"product"`
	Software string `json:"software_version"`
}

// Play asks the server to start a sound on one or more devices
type Play struct {
	Sound     string   `json:"sound"`
	Devices   []string `json:"devices,omitempty"`
	Volume    *int     `json:"volume,omitempty"` // 0-100, server default when absent
	StartMs   int      `json:"start_ms,omitempty"`
	EndMs     int      `json:"end_ms,omitempty"`
	Exclusive bool     `json:"exclusive,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// Stop cancels playback. An empty SessionID stops every session.
type Stop struct {
	SessionID string `json:"session_id,omitempty"`
}

// SessionState reports a session lifecycle transition
type SessionState struct {
	SessionID string   `json:"session_id"`
	Sound     string   `json:"sound"`
	Devices   []string `json:"devices"`
	Previous  string   `json:"previous"`
	State     string   `json:"state"`
	RequestID string   `json:"request_id,omitempty"`
}

// PlaybackError reports a per-device or decode failure
type PlaybackError struct {
	SessionID string `json:"session_id,omitempty"`
	Device    string `json:"device,omitempty"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// Device describes an output device
type Device struct {
	ID                string `json:"id"`
	Index             int    `json:"index"`
	Name              string `json:"name"`
	MaxOutputChannels int    `json:"max_output_channels"`
	DefaultSampleRate int    `json:"default_sample_rate"`
	IsDefault         bool   `json:"is_default"`
}

// Devices lists the backend's output devices
type Devices struct {
	Backend string   `json:"backend"`
	Devices []Device `json:"devices"`
}

// Sounds lists playable files in the sounds directory
type Sounds struct {
	Sounds []string `json:"sounds"`
}

// Error reports a rejected request
type Error struct {
	Request   string `json:"request,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Message   string `json:"message"`
}
