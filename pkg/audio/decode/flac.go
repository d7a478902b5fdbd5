// ABOUTME: FLAC file decoder
// ABOUTME: Decodes FLAC files frame by frame with mewkiz/flac
package decode

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/towerofbabel/soundboard-go/pkg/audio"
)

func decodeFLAC(r io.ReadSeeker) (*audio.SampleBuffer, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)

	buf := &audio.SampleBuffer{
		Samples:    make([]float32, 0, int(info.NSamples)*channels),
		SampleRate: int(info.SampleRate),
		Channels:   channels,
	}

	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}

		if len(frame.Subframes) != channels {
			return nil, fmt.Errorf("frame has %d subframes, stream has %d channels",
				len(frame.Subframes), channels)
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				sample := frame.Subframes[ch].Samples[i]
				buf.Samples = append(buf.Samples, audio.SampleFromInt(int(sample), bitDepth))
			}
		}
	}

	return buf, nil
}
