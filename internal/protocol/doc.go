// ABOUTME: Remote control protocol package
// ABOUTME: JSON message envelope shared by the control server and client
// Package protocol defines the JSON messages exchanged between a soundboard
// control server and its remote clients.
//
// Every frame is a {"type": ..., "payload": ...} object. Clients send
// sound/play, sound/stop, devices/list and sounds/list; the server answers
// and broadcasts session/state and playback/error events.
package protocol
