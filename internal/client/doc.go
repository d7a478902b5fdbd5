// ABOUTME: Client package for remote soundboard control
// ABOUTME: Dials the control websocket and exposes typed requests and events
// Package client connects to a soundboard control server.
package client
