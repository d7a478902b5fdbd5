// ABOUTME: TUI initialization and engine event bridge
// ABOUTME: Wraps the bubbletea program and forwards engine events into it
package ui

import (
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/towerofbabel/soundboard-go/pkg/soundboard"
)

// NewModel creates a new TUI model
func NewModel(board Board, sounds []string, devices []string, volume int) Model {
	label := "default"
	if len(devices) > 0 {
		label = strings.Join(devices, ", ")
	}
	return Model{
		board:    board,
		sounds:   sounds,
		devices:  label,
		volume:   clampVolume(volume),
		sessions: make(map[string]sessionRow),
	}
}

// Run creates the TUI program; the caller starts it with Run
func Run(model Model) *tea.Program {
	return tea.NewProgram(model, tea.WithAltScreen())
}

// Observer forwards engine events to a running program
type Observer struct {
	soundboard.NopObserver
	send func(tea.Msg)
}

// NewObserver returns an engine observer that feeds p
func NewObserver(p *tea.Program) *Observer {
	return &Observer{send: p.Send}
}

// SessionStateChanged implements soundboard.Observer
func (o *Observer) SessionStateChanged(s *soundboard.Session, _, to soundboard.State) {
	o.send(SessionMsg{
		ID:       s.ID(),
		Sound:    filepath.Base(s.Path()),
		State:    to.String(),
		Terminal: to.Terminal(),
	})
}

// ErrorReported implements soundboard.Observer
func (o *Observer) ErrorReported(err *soundboard.PlaybackError) {
	msg := ErrorMsg{Device: err.Device, Kind: err.Kind.String(), Message: err.Error()}
	if err.Err != nil {
		msg.Message = err.Err.Error()
	}
	o.send(msg)
}
