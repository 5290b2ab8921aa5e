// SPDX-License-Identifier: MIT

// Package tui renders the live tuner and device list as terminal UIs
// built on Bubble Tea.
package tui

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Fjollete/PichMatcher/internal/analysis"
	"github.com/Fjollete/PichMatcher/internal/music"
	"github.com/Fjollete/PichMatcher/internal/transport"
)

// tickInterval paces the display refresh at roughly 30 Hz.
const tickInterval = 33 * time.Millisecond

// inTuneCents is the deviation band rendered as in tune.
const inTuneCents = 5.0

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	noteStyle = lipgloss.NewStyle().
			Bold(true)

	inTuneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

// tickMsg carries one display refresh.
type tickMsg time.Time

// TunerModel is the Bubble Tea model for the live tuner view. It polls a
// PitchResultProvider on every tick, so it never blocks the stream
// goroutine that produces the estimates.
type TunerModel struct {
	provider transport.PitchResultProvider

	frequency  float64
	confidence float64
	level      float64
}

// NewTunerModel creates a tuner view over the given provider.
func NewTunerModel(provider transport.PitchResultProvider) TunerModel {
	return TunerModel{provider: provider}
}

// Init starts the refresh ticker.
func (m TunerModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles ticks and key presses.
func (m TunerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.frequency, m.confidence, m.level = m.provider.LatestPitch()
		return m, tick()

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the note, the cents bar and the signal readouts.
func (m TunerModel) View() string {
	title := titleStyle.Render("PichMatcher")
	help := infoStyle.Render("q: Quit")

	var body string
	note, err := music.FromFrequency(m.frequency)
	if m.frequency <= 0 || err != nil {
		body = fmt.Sprintf("%s\n\n%s",
			dimStyle.Render("  --  "),
			dimStyle.Render(centsBar(0)))
	} else {
		name := noteStyle.Render(fmt.Sprintf("  %-4s", note.String()))
		if absCents := math.Abs(note.Cents); absCents <= inTuneCents {
			name = inTuneStyle.Render(fmt.Sprintf("  %-4s", note.String()))
		}
		body = fmt.Sprintf("%s %+5.1f cents\n\n%s", name, note.Cents, centsBar(note.Cents))
	}

	readouts := fmt.Sprintf("%8.2f Hz    confidence %3.0f%%    level %6.1f dBFS",
		m.frequency, m.confidence*100, m.level)
	if m.level <= analysis.SilenceFloorDecibels {
		readouts = fmt.Sprintf("%8.2f Hz    confidence %3.0f%%    level   silent",
			m.frequency, m.confidence*100)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s\n\n%s", title, body, dimStyle.Render(readouts), help)
}

// centsBar renders the deviation marker on a fixed [-50, +50] scale with
// the in-tune target at the center.
func centsBar(cents float64) string {
	const half = 20

	runes := make([]rune, 2*half+1)
	for i := range runes {
		runes[i] = '-'
	}
	runes[half] = '|'

	pos := half + int(math.Round(cents/50*half))
	if pos < 0 {
		pos = 0
	}
	if pos > 2*half {
		pos = 2 * half
	}
	runes[pos] = 'o'

	return "[" + string(runes) + "]"
}

// StartTuner runs the tuner view until the user quits.
func StartTuner(provider transport.PitchResultProvider) error {
	p := tea.NewProgram(
		NewTunerModel(provider),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
