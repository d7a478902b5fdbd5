// ABOUTME: Audio file loader package for multiple codec support
// ABOUTME: Provides Load, the Decoder registry and WAV, MP3, FLAC and Ogg Opus decoders
// Package decode loads whole audio files into float32 sample buffers.
//
// Supports: WAV (integer PCM), MP3, FLAC, Ogg Opus
//
// Decoders are selected by file extension. Every failure is a *DecodeError
// that matches ErrDecode with errors.Is. Mono files always come back with
// Channels == 1.
//
// Example:
//
//	buf, err := decode.Load("sounds/airhorn.wav")
//	if errors.Is(err, decode.ErrDecode) {
//		// file missing, unreadable, unsupported or corrupt
//	}
package decode
