// ABOUTME: Channel remixing package
// ABOUTME: Converts sample buffers between channel counts for per-device playback
// Package remix adapts a sample buffer's channel count to an output device.
//
// Stereo targets receive a duplicated mono mix rather than a spatial
// down/up-mix; multichannel targets are zero-padded or truncated.
//
// Example:
//
//	mono, err := remix.Remix(stereoBuf, 1)
package remix
