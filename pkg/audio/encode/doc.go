// ABOUTME: Audio encoder package for encoding float samples to PCM bytes
// ABOUTME: Provides Encoder interface and 16/24-bit integer and 32-bit float PCM
// Package encode provides PCM encoders used by byte-oriented output backends.
//
// Supports: PCM (16-bit and 24-bit signed little-endian), 32-bit float little-endian
//
// All encoders accept float32 samples in [-1.0, 1.0]; out-of-range values
// are clamped.
//
// Example:
//
//	encoder, err := encode.NewPCM(16)
//	data, err := encoder.Encode(samples)
package encode
