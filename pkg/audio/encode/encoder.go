// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for turning float sample blocks into device bytes
package encode

// Encoder encodes interleaved float32 samples to a byte format
type Encoder interface {
	// Encode converts samples to encoded audio data
	Encode(samples []float32) ([]byte, error)

	// BytesPerSample reports the encoded size of one sample
	BytesPerSample() int
}
