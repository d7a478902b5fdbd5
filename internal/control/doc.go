// ABOUTME: Control package exposing the engine to remote clients
// ABOUTME: Websocket request handling, event broadcast, metrics and health endpoints
// Package control serves a soundboard engine over a websocket so remote
// clients can trigger and stop sounds, list devices and follow session
// events.
//
// The Hub is registered as an engine observer and broadcasts session/state
// and playback/error messages to every connected client:
//
//	hub := control.NewHub(logger)
//	engine, _ := soundboard.New(soundboard.Config{Backend: backend, Observer: hub})
//	server, _ := control.NewServer(engine, hub, control.Config{SoundsDir: "sounds", DefaultVolume: 80})
//	err := server.Start(ctx)
package control
