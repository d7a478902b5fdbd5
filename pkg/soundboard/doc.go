// ABOUTME: Multi-device soundboard playback engine
// ABOUTME: Plays one sound on several output devices at once with cooperative cancellation
// Package soundboard plays a sound file on several output devices at the
// same time.
//
// Play loads the file once, applies gain, and starts one worker per device.
// Each worker remixes the buffer to the device's channel count and writes it
// in fixed-size blocks, checking the session's cancel token before every
// block. A device that fails is reported through Config.OnError and does not
// affect the others. Stop cancels every live session and returns only after
// all workers have finished writing.
//
// Example:
//
//	backend, _ := output.New("malgo", output.Options{})
//	engine, err := soundboard.New(soundboard.Config{
//		Backend: backend,
//		OnError: func(err error) { log.Warn().Err(err).Msg("device failed") },
//	})
//	session, err := engine.Play("airhorn.wav", []string{"CABLE Input", "Headphones"}, 0.8)
//	...
//	engine.Stop()
package soundboard
