// ABOUTME: MP3 file decoder
// ABOUTME: Decodes MP3 files to stereo float32 samples via go-mp3
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/towerofbabel/soundboard-go/pkg/audio"
)

// go-mp3 always produces 16-bit little-endian stereo
const mp3Channels = 2

func decodeMP3(r io.ReadSeeker) (*audio.SampleBuffer, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	capacity := 0
	if length := decoder.Length(); length > 0 {
		capacity = int(length / 2)
	}

	buf := &audio.SampleBuffer{
		Samples:    make([]float32, 0, capacity),
		SampleRate: decoder.SampleRate(),
		Channels:   mp3Channels,
	}

	chunk := make([]byte, 8192)
	var pending []byte
	for {
		n, err := decoder.Read(chunk)
		data := chunk[:n]
		if len(pending) > 0 {
			data = append(pending, data...)
			pending = nil
		}

		numSamples := len(data) / 2
		for i := 0; i < numSamples; i++ {
			sample16 := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
			buf.Samples = append(buf.Samples, audio.SampleFromInt16(sample16))
		}
		if len(data)%2 != 0 {
			pending = append([]byte(nil), data[len(data)-1])
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("mp3 decode error: %w", err)
		}
	}

	buf.Samples = buf.Samples[:len(buf.Samples)-len(buf.Samples)%mp3Channels]
	return buf, nil
}
