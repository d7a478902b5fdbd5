// ABOUTME: WAV file decoder
// ABOUTME: Decodes integer PCM and 32-bit float WAV files, plain or WAVE_FORMAT_EXTENSIBLE
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/riff"
	"github.com/go-audio/wav"

	"github.com/towerofbabel/soundboard-go/pkg/audio"
)

// WAV format tags
const (
	wavFormatPCM        = 0x0001
	wavFormatFloat      = 0x0003
	wavFormatExtensible = 0xFFFE
)

// An extensible fmt chunk carries the SubFormat GUID at this offset; its
// first two bytes are the effective format tag
const (
	extensibleFmtSize   = 40
	extensibleSubFormat = 24
)

func decodeWAV(r io.ReadSeeker) (*audio.SampleBuffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}

	format := int(d.WavAudioFormat)
	if format == wavFormatExtensible {
		sub, err := wavSubFormat(r)
		if err != nil {
			return nil, err
		}
		format = int(sub)

		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		d = wav.NewDecoder(r)
		if !d.IsValidFile() {
			return nil, fmt.Errorf("not a valid WAV file")
		}
	}

	bitDepth := int(d.BitDepth)
	switch format {
	case wavFormatPCM:
		switch bitDepth {
		case 8, 16, 24, 32:
		default:
			return nil, fmt.Errorf("%w: %d-bit WAV", errUnsupported, bitDepth)
		}
	case wavFormatFloat:
		if bitDepth != 32 {
			return nil, fmt.Errorf("%w: %d-bit float WAV", errUnsupported, bitDepth)
		}
	default:
		return nil, fmt.Errorf("%w: WAV format tag %#04x", errUnsupported, format)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}

	channels := int(d.NumChans)
	buf := &audio.SampleBuffer{
		Samples:    make([]float32, len(pcm.Data)),
		SampleRate: int(d.SampleRate),
		Channels:   channels,
	}

	for i, v := range pcm.Data {
		switch {
		case format == wavFormatFloat:
			// go-audio hands 32-bit words back as signed ints
			buf.Samples[i] = math.Float32frombits(uint32(int32(v)))
		case bitDepth == 8:
			// 8-bit WAV is unsigned with a 128 midpoint
			buf.Samples[i] = audio.SampleFromInt(v-128, bitDepth)
		default:
			buf.Samples[i] = audio.SampleFromInt(v, bitDepth)
		}
	}

	// Drop a trailing partial frame rather than reject the file
	if channels > 0 {
		buf.Samples = buf.Samples[:len(buf.Samples)-len(buf.Samples)%channels]
	}

	return buf, nil
}

// wavSubFormat reads the SubFormat tag of an extensible fmt chunk. It
// rewinds r first and leaves it positioned inside the file.
func wavSubFormat(r io.ReadSeeker) (uint16, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	p := riff.New(r)
	if err := p.ParseHeaders(); err != nil {
		return 0, fmt.Errorf("not a valid WAV file: %w", err)
	}

	for {
		ch, err := p.NextChunk()
		if err != nil {
			return 0, fmt.Errorf("fmt chunk not found: %w", err)
		}
		if ch.ID != riff.FmtID {
			ch.Drain()
			continue
		}

		if ch.Size < extensibleFmtSize {
			return 0, fmt.Errorf("extensible fmt chunk too short: %d bytes", ch.Size)
		}
		data := make([]byte, ch.Size)
		if _, err := io.ReadFull(ch.R, data); err != nil {
			return 0, fmt.Errorf("failed to read fmt chunk: %w", err)
		}
		return binary.LittleEndian.Uint16(data[extensibleSubFormat:]), nil
	}
}
