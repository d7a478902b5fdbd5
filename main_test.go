// ABOUTME: Tests for CLI helpers and the board adapter
// ABOUTME: Runs the adapter against the memory backend
package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/towerofbabel/soundboard-go/internal/control"
	"github.com/towerofbabel/soundboard-go/pkg/audio/decode"
	"github.com/towerofbabel/soundboard-go/pkg/audio/output"
	"github.com/towerofbabel/soundboard-go/pkg/soundboard"
)

func TestSplitDevices(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"0", []string{"0"}},
		{" 0 , CABLE Input ,,", []string{"0", "CABLE Input"}},
	}

	for _, tt := range tests {
		got := splitDevices(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("splitDevices(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEngineBoardErrors(t *testing.T) {
	engine, err := soundboard.New(soundboard.Config{Backend: output.NewMemory()})
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	board := &engineBoard{engine: engine, soundsDir: t.TempDir(), devices: []string{"mem-0"}, multiPlay: true}

	if err := board.Play("../escape.wav", 100); !errors.Is(err, control.ErrInvalidSound) {
		t.Errorf("expected ErrInvalidSound, got %v", err)
	}
	if err := board.Play("missing.wav", 100); !errors.Is(err, decode.ErrDecode) {
		t.Errorf("expected decode error, got %v", err)
	}

	// Nothing playing is a no-op
	board.StopAll()
}
