// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines SampleBuffer, gain application and sample conversion functions
// Package audio provides the fundamental sample buffer used by the soundboard engine.
//
// This package defines core types used throughout the soundboard library:
//   - SampleBuffer: interleaved float32 samples with a sample rate and channel count
//   - Format: sample rate and channel count of a stream
//
// It also provides:
//   - ApplyGain / Clamp: volume scaling with clipping to [-1.0, 1.0]
//   - int ↔ float sample conversions for 8 to 32-bit PCM
//   - Tone: a sine generator for device test tones
//
// Example:
//
//	buf := audio.Tone(440, time.Second, 48000, 2, 0.5)
//	quiet := audio.ApplyGain(buf, 0.25)
package audio
