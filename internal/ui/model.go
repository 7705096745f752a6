// ABOUTME: Bubbletea model for the streaming TUI
// ABOUTME: Renderer list with play toggles, level meters and a log pane
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/swyh-go/swyh-go/internal/app"
	"github.com/swyh-go/swyh-go/internal/logging"
	"github.com/swyh-go/swyh-go/internal/meter"
)

const (
	logLines   = 8
	meterWidth = 30
	meterMax   = 32767
	nameWidth  = 28
)

// Model represents the TUI state
type Model struct {
	renderers  []app.RendererState
	selected   int
	autoResume bool
	streamURL  string
	streams    int

	level meter.Level
	logs  []string

	submit   func(app.Command)
	quitting bool

	width  int
	height int
}

type snapshotMsg app.Snapshot
type logMsg logging.Line
type levelMsg meter.Level

// NewModel creates a model that sends user commands to submit
func NewModel(submit func(app.Command)) Model {
	if submit == nil {
		submit = func(app.Command) {}
	}
	return Model{submit: submit}
}

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
	case snapshotMsg:
		m.applySnapshot(app.Snapshot(msg))
	case logMsg:
		m.appendLog(logging.Line(msg))
	case levelMsg:
		m.level = meter.Level(msg)
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.renderers)-1 {
			m.selected++
		}
	case "enter", " ", "space":
		if r, ok := m.current(); ok {
			m.submit(app.Command{Kind: app.CmdToggle, RendererID: r.ID})
		}
	case "a":
		m.submit(app.Command{Kind: app.CmdToggleAutoResume})
	}

	return m, nil
}

func (m Model) current() (app.RendererState, bool) {
	if m.selected < 0 || m.selected >= len(m.renderers) {
		return app.RendererState{}, false
	}
	return m.renderers[m.selected], true
}

// applySnapshot replaces the renderer list, keeping the selection on the
// same renderer when it is still present
func (m *Model) applySnapshot(s app.Snapshot) {
	selectedID := ""
	if r, ok := m.current(); ok {
		selectedID = r.ID
	}

	m.renderers = s.Renderers
	m.autoResume = s.AutoResume
	m.streamURL = s.StreamURL
	m.streams = s.Streams

	m.selected = 0
	for i, r := range m.renderers {
		if r.ID == selectedID {
			m.selected = i
			break
		}
	}
}

func (m *Model) appendLog(l logging.Line) {
	m.logs = append(m.logs, l.String())
	if len(m.logs) > logLines {
		m.logs = m.logs[len(m.logs)-logLines:]
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	streamingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	faintStyle = lipgloss.NewStyle().Faint(true)
)

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("swyh-go"))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Stream: "))
	b.WriteString(valueStyle.Render(m.streamURL))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Auto-resume: "))
	b.WriteString(valueStyle.Render(onOff(m.autoResume)))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Active streams: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.streams)))
	b.WriteString("\n\n")

	b.WriteString(m.renderMeters())
	b.WriteString("\n")
	b.WriteString(m.renderRenderers())
	b.WriteString("\n")
	b.WriteString(m.renderLog())
	b.WriteString("\n")
	b.WriteString(faintStyle.Render("↑/↓:Select  enter/space:Play/Stop  a:Auto-resume  q:Quit"))

	return b.String()
}

// renderMeters renders the left and right levels
func (m Model) renderMeters() string {
	return fmt.Sprintf("L [%s]\nR [%s]\n",
		renderBar(int(m.level.Left), meterMax, meterWidth),
		renderBar(int(m.level.Right), meterMax, meterWidth))
}

// renderRenderers renders the renderer list with toggles
func (m Model) renderRenderers() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Renderers (%d)", len(m.renderers))))
	b.WriteString("\n\n")

	if len(m.renderers) == 0 {
		b.WriteString(valueStyle.Render("  Searching..."))
		b.WriteString("\n")
		return b.String()
	}

	for i, r := range m.renderers {
		toggle := "[ ]"
		if r.Playing {
			toggle = "[x]"
		}
		line := fmt.Sprintf("%s %-*s %s", toggle, nameWidth, truncate(r.Name, nameWidth), r.RemoteAddr)

		cursor := "  "
		if i == m.selected {
			cursor = "> "
			line = selectedStyle.Render(line)
		}
		b.WriteString(cursor)
		b.WriteString(line)
		if r.Streaming {
			b.WriteString(streamingStyle.Render("  ♪ streaming"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderLog renders the most recent log lines
func (m Model) renderLog() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Log"))
	b.WriteString("\n")
	for _, l := range m.logs {
		b.WriteString(faintStyle.Render(l))
		b.WriteString("\n")
	}
	return b.String()
}

// Utility functions
func renderBar(value, max, width int) string {
	if value < 0 {
		value = 0
	}
	if value > max {
		value = max
	}
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
