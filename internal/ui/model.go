// ABOUTME: Bubbletea model for the interactive soundboard
// ABOUTME: Sound list, volume, live sessions and the last playback error
package ui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const maxShownSessions = 6

// Board is what the TUI drives
type Board interface {
	// Play starts sound at volume (0-100). It may block while decoding.
	Play(sound string, volume int) error

	// StopAll cancels every live session
	StopAll()
}

// Model represents the TUI state
type Model struct {
	board Board

	// Library
	sounds  []string
	cursor  int
	devices string

	// Playback
	volume   int
	sessions map[string]sessionRow
	lastErr  string

	// Dimensions
	width  int
	height int
}

type sessionRow struct {
	sound    string
	state    string
	finished bool
	order    int
}

// SessionMsg reports a session state transition
type SessionMsg struct {
	ID       string
	Sound    string
	State    string
	Terminal bool
}

// ErrorMsg reports a per-device playback failure
type ErrorMsg struct {
	Device  string
	Kind    string
	Message string
}

// playedMsg is the result of a Play command
type playedMsg struct {
	sound string
	err   error
}

// stoppedMsg is sent once StopAll returns
type stoppedMsg struct{}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case SessionMsg:
		m.applySession(msg)
	case ErrorMsg:
		m.lastErr = fmt.Sprintf("%s: %s (%s)", msg.Device, msg.Message, msg.Kind)
	case playedMsg:
		if msg.err != nil {
			m.lastErr = fmt.Sprintf("%s: %v", msg.sound, msg.err)
		}
	case stoppedMsg:
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderSounds())
	b.WriteString(m.renderSessions())
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderHeader() string {
	return fmt.Sprintf(`┌─ Soundboard ─────────────────────────────────────────┐
│ Devices: %-44s │
│ Volume:  [%s] %3d%%%-26s │
├──────────────────────────────────────────────────────┤
`, truncate(m.devices, 44), renderBar(m.volume, 100, 10), m.volume, "")
}

func (m Model) renderSounds() string {
	if len(m.sounds) == 0 {
		return "│ No sounds found                                      │\n"
	}

	var b strings.Builder
	for i, sound := range m.sounds {
		pointer := " "
		if i == m.cursor {
			pointer = ">"
		}
		key := " "
		if i < 9 {
			key = fmt.Sprint(i + 1)
		}
		fmt.Fprintf(&b, "│ %s %s %-48s │\n", pointer, key, truncate(sound, 48))
	}
	return b.String()
}

func (m Model) renderSessions() string {
	var b strings.Builder
	b.WriteString("├──────────────────────────────────────────────────────┤\n")

	rows := m.sessionRows()
	if len(rows) == 0 {
		b.WriteString("│ Idle                                                 │\n")
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "│ %-10s %-41s │\n", row.state, truncate(row.sound, 41))
	}

	if m.lastErr != "" {
		fmt.Fprintf(&b, "│ ! %-50s │\n", truncate(m.lastErr, 50))
	}
	return b.String()
}

func (m Model) renderHelp() string {
	return `│ ↑/↓:Select  enter/1-9:Play  +/-:Volume  s:Stop  q:Quit │
└──────────────────────────────────────────────────────┘
`
}

// sessionRows returns the newest sessions first
func (m Model) sessionRows() []sessionRow {
	rows := make([]sessionRow, 0, len(m.sessions))
	for _, row := range m.sessions {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].order > rows[j].order })
	if len(rows) > maxShownSessions {
		rows = rows[:maxShownSessions]
	}
	return rows
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.sounds)-1 {
			m.cursor++
		}
	case "+", "=", "right":
		m.volume = clampVolume(m.volume + 5)
	case "-", "left":
		m.volume = clampVolume(m.volume - 5)
	case "enter", " ":
		return m, m.play(m.cursor)
	case "s", "esc":
		return m, m.stopAll()
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			idx := int(key[0] - '1')
			if idx < len(m.sounds) {
				m.cursor = idx
				return m, m.play(idx)
			}
		}
	}

	return m, nil
}

// play returns a command that plays the sound at idx off the UI goroutine
func (m Model) play(idx int) tea.Cmd {
	if m.board == nil || idx < 0 || idx >= len(m.sounds) {
		return nil
	}
	board, sound, volume := m.board, m.sounds[idx], m.volume
	return func() tea.Msg {
		return playedMsg{sound: sound, err: board.Play(sound, volume)}
	}
}

func (m Model) stopAll() tea.Cmd {
	if m.board == nil {
		return nil
	}
	board := m.board
	return func() tea.Msg {
		board.StopAll()
		return stoppedMsg{}
	}
}

// applySession tracks live sessions; finished ones keep their final row
// until the next session of the same sound replaces it
func (m *Model) applySession(msg SessionMsg) {
	if m.sessions == nil {
		m.sessions = make(map[string]sessionRow)
	}

	row, ok := m.sessions[msg.ID]
	if !ok {
		for id, existing := range m.sessions {
			if existing.sound == msg.Sound && existing.finished {
				delete(m.sessions, id)
			}
		}
		row = sessionRow{sound: msg.Sound, order: m.nextOrder()}
	}
	row.state = msg.State
	row.finished = msg.Terminal
	m.sessions[msg.ID] = row
}

func (m *Model) nextOrder() int {
	order := 0
	for _, row := range m.sessions {
		if row.order >= order {
			order = row.order + 1
		}
	}
	return order
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
