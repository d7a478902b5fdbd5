// ABOUTME: Ogg Opus file decoder
// ABOUTME: Decodes .opus/.ogg files with hraban/opus Stream at 48kHz
package decode

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/hraban/opus.v2"

	"github.com/towerofbabel/soundboard-go/pkg/audio"
)

const (
	// opusfile always decodes at 48kHz
	opusSampleRate = 48000

	// Largest Opus packet: 120ms at 48kHz
	opusMaxFrameSize = 5760
)

var opusHeadMagic = []byte("OpusHead")

// opusChannels reads the output channel count from the OpusHead packet
func opusChannels(data []byte) (int, error) {
	idx := bytes.Index(data, opusHeadMagic)
	if idx < 0 {
		return 0, fmt.Errorf("%w: no OpusHead packet", errUnsupported)
	}
	// magic(8) version(1) channel count(1)
	if len(data) < idx+10 {
		return 0, fmt.Errorf("truncated OpusHead packet")
	}
	channels := int(data[idx+9])
	if channels < 1 {
		return 0, fmt.Errorf("invalid OpusHead channel count %d", channels)
	}
	return channels, nil
}

func decodeOpus(r io.ReadSeeker) (*audio.SampleBuffer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read opus file: %w", err)
	}

	channels, err := opusChannels(data)
	if err != nil {
		return nil, err
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open opus stream: %w", err)
	}
	defer stream.Close()

	buf := &audio.SampleBuffer{
		SampleRate: opusSampleRate,
		Channels:   channels,
	}

	pcm := make([]float32, opusMaxFrameSize*channels)
	for {
		n, err := stream.ReadFloat32(pcm)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("opus decode failed: %w", err)
		}
		buf.Samples = append(buf.Samples, pcm[:n*channels]...)
	}

	return buf, nil
}
