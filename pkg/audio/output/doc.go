// ABOUTME: Audio output package for playing audio on devices
// ABOUTME: Provides Backend and Stream interfaces with malgo, PortAudio, oto, memory and WAV backends
// Package output enumerates audio devices and opens blocking playback streams.
//
// Backends: malgo (default), portaudio (build with -tags portaudio), oto
// (system default device only), memory (records blocks in process) and wav
// (records each stream to a file).
//
// Example:
//
//	backend, err := output.New("malgo", output.Options{})
//	dev, err := output.Lookup(backend, "default")
//	stream, err := backend.Open(dev, output.StreamFormat{SampleRate: 44100, Channels: 2})
//	err = stream.Write(block)
//	err = stream.Close()
package output
