// ABOUTME: Unit tests for PCM encoder
// ABOUTME: Tests 16-bit, 24-bit and float32 PCM encoding
package encode

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"
)

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name        string
		bitDepth    int
		wantErr     bool
		errContains string
	}{
		{name: "valid 16-bit PCM", bitDepth: 16},
		{name: "valid 24-bit PCM", bitDepth: 24},
		{name: "unsupported bit depth", bitDepth: 32, wantErr: true, errContains: "unsupported bit depth"},
		{name: "zero bit depth", bitDepth: 0, wantErr: true, errContains: "unsupported bit depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := NewPCM(tt.bitDepth)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error containing %q, got %q", tt.errContains, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if encoder.BytesPerSample() != tt.bitDepth/8 {
				t.Errorf("expected %d bytes per sample, got %d", tt.bitDepth/8, encoder.BytesPerSample())
			}
		})
	}
}

func TestEncode16Bit(t *testing.T) {
	encoder, _ := NewPCM(16)

	data, err := encoder.Encode([]float32{0, 0.5, -1, 2})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(data))
	}

	expected := []int16{0, 16384, -32768, 32767}
	for i, e := range expected {
		got := int16(binary.LittleEndian.Uint16(data[i*2:]))
		if got != e {
			t.Errorf("sample %d: expected %d, got %d", i, e, got)
		}
	}
}

func TestEncode24Bit(t *testing.T) {
	encoder, _ := NewPCM(24)

	data, err := encoder.Encode([]float32{-1, 1})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) != 6 {
		t.Fatalf("expected 6 bytes, got %d", len(data))
	}

	// -2^23 little-endian
	if data[0] != 0x00 || data[1] != 0x00 || data[2] != 0x80 {
		t.Errorf("unexpected min encoding: %x", data[0:3])
	}
	// 2^23-1 little-endian
	if data[3] != 0xFF || data[4] != 0xFF || data[5] != 0x7F {
		t.Errorf("unexpected max encoding: %x", data[3:6])
	}
}

func TestEncodeFloat32(t *testing.T) {
	encoder := NewFloat32()

	data, err := encoder.Encode([]float32{0.25, -3})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if got := math.Float32frombits(binary.LittleEndian.Uint32(data[0:])); got != 0.25 {
		t.Errorf("expected 0.25, got %v", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(data[4:])); got != -1 {
		t.Errorf("expected clamped -1, got %v", got)
	}
}

func TestInts(t *testing.T) {
	dst := make([]int, 0, 8)
	out := Ints([]float32{0.5, -0.5}, 16, dst)

	if len(out) != 2 || out[0] != 16384 || out[1] != -16384 {
		t.Errorf("unexpected ints: %v", out)
	}
	if &out[0] != &dst[:1][0] {
		t.Error("expected destination storage to be reused")
	}
}
