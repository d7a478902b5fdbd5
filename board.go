// ABOUTME: Adapter from the board TUI to the playback engine
// ABOUTME: Resolves sound names in the sounds directory and applies the volume slider
package main

import (
	"github.com/towerofbabel/soundboard-go/internal/config"
	"github.com/towerofbabel/soundboard-go/internal/control"
	"github.com/towerofbabel/soundboard-go/pkg/soundboard"
)

// engineBoard implements ui.Board
type engineBoard struct {
	engine    *soundboard.Engine
	soundsDir string
	devices   []string
	multiPlay bool
}

func (b *engineBoard) Play(sound string, volume int) error {
	path, err := control.ResolveSound(b.soundsDir, sound)
	if err != nil {
		return err
	}

	_, err = b.engine.PlayWith(soundboard.PlayRequest{
		Path:      path,
		Devices:   b.devices,
		Gain:      config.VolumeToGain(volume),
		Exclusive: !b.multiPlay,
	})
	return err
}

func (b *engineBoard) StopAll() {
	b.engine.Stop()
}
