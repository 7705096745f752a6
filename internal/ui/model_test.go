// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests snapshots, key handling, log pane and rendering
package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/swyh-go/swyh-go/internal/app"
	"github.com/swyh-go/swyh-go/internal/logging"
	"github.com/swyh-go/swyh-go/internal/meter"
)

func testSnapshot() app.Snapshot {
	return app.Snapshot{
		StreamURL: "http://192.168.1.2:5901/stream/swyh.wav",
		Renderers: []app.RendererState{
			{ID: "uuid:a", Name: "Kitchen", RemoteAddr: "192.168.1.10"},
			{ID: "uuid:b", Name: "Lounge", RemoteAddr: "192.168.1.20", Playing: true, Streaming: true},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, k string) (Model, tea.Cmd) {
	next, cmd := m.Update(key(k))
	return next.(Model), cmd
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil)

	if len(model.renderers) != 0 {
		t.Error("expected no renderers initially")
	}
	if model.autoResume {
		t.Error("expected autoResume to be false initially")
	}

	// nil submit must be safe
	press(model, "a")
}

func TestSnapshotMsg(t *testing.T) {
	model := NewModel(nil)

	next, _ := model.Update(snapshotMsg(testSnapshot()))
	model = next.(Model)

	if len(model.renderers) != 2 {
		t.Fatalf("expected 2 renderers, got %d", len(model.renderers))
	}
	if model.streamURL == "" {
		t.Error("expected stream URL")
	}
}

func TestSelectionFollowsRenderer(t *testing.T) {
	model := NewModel(nil)
	model.applySnapshot(testSnapshot())
	model, _ = press(model, "down")

	if model.selected != 1 {
		t.Fatalf("expected selection 1, got %d", model.selected)
	}

	// a new renderer sorted before the selection
	snap := testSnapshot()
	snap.Renderers = append([]app.RendererState{{ID: "uuid:c", Name: "Attic"}}, snap.Renderers...)
	model.applySnapshot(snap)

	if r, _ := model.current(); r.ID != "uuid:b" {
		t.Errorf("expected selection to stay on uuid:b, got %s", r.ID)
	}
}

func TestSelectionBounds(t *testing.T) {
	model := NewModel(nil)
	model.applySnapshot(testSnapshot())

	model, _ = press(model, "up")
	if model.selected != 0 {
		t.Errorf("expected selection 0, got %d", model.selected)
	}
	for i := 0; i < 5; i++ {
		model, _ = press(model, "down")
	}
	if model.selected != 1 {
		t.Errorf("expected selection clamped to 1, got %d", model.selected)
	}
}

func TestToggleKeys(t *testing.T) {
	var got []app.Command
	model := NewModel(func(c app.Command) { got = append(got, c) })
	model.applySnapshot(testSnapshot())

	model, _ = press(model, "enter")
	model, _ = press(model, "down")
	model, _ = press(model, " ")
	press(model, "a")

	want := []app.Command{
		{Kind: app.CmdToggle, RendererID: "uuid:a"},
		{Kind: app.CmdToggle, RendererID: "uuid:b"},
		{Kind: app.CmdToggleAutoResume},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d commands, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestToggleWithoutRenderers(t *testing.T) {
	var got []app.Command
	model := NewModel(func(c app.Command) { got = append(got, c) })

	press(model, "enter")
	if len(got) != 0 {
		t.Errorf("expected no commands, got %+v", got)
	}
}

func TestQuitKey(t *testing.T) {
	model := NewModel(nil)

	model, cmd := press(model, "q")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if !model.quitting {
		t.Error("expected quitting state")
	}
}

func TestLogPaneKeepsRecentLines(t *testing.T) {
	model := NewModel(nil)
	for i := 0; i < logLines+3; i++ {
		model.appendLog(logging.Line{Time: time.Now(), Message: "line"})
	}
	if len(model.logs) != logLines {
		t.Errorf("expected %d log lines, got %d", logLines, len(model.logs))
	}
}

func TestLevelMsg(t *testing.T) {
	model := NewModel(nil)
	next, _ := model.Update(levelMsg(meter.Level{Left: 1000, Right: 2000}))
	model = next.(Model)

	if model.level.Left != 1000 || model.level.Right != 2000 {
		t.Errorf("unexpected level %+v", model.level)
	}
}

func TestViewRendersState(t *testing.T) {
	model := NewModel(nil)
	model.applySnapshot(testSnapshot())
	model.appendLog(logging.Line{Time: time.Now(), Message: "new renderer"})

	out := model.View()
	for _, want := range []string{"Kitchen", "Lounge", "[x]", "streaming", "new renderer", "Auto-resume"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value int
		want  string
	}{
		{0, "░░░░"},
		{50, "██░░"},
		{100, "████"},
		{200, "████"},
		{-5, "░░░░"},
	}
	for _, tt := range tests {
		if got := renderBar(tt.value, 100, 4); got != tt.want {
			t.Errorf("renderBar(%d): expected %q, got %q", tt.value, tt.want, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Living Room Speaker", 10); got != "Living ..." {
		t.Errorf("unexpected truncation %q", got)
	}
	if got := truncate("Den", 10); got != "Den" {
		t.Errorf("unexpected truncation %q", got)
	}
}

func TestTUIViewDoesNotBlock(t *testing.T) {
	tui := New(nil)
	for i := 0; i < updateBuffer*2; i++ {
		tui.Levels(meter.Level{})
	}
	if len(tui.updates) != updateBuffer {
		t.Errorf("expected full buffer of %d, got %d", updateBuffer, len(tui.updates))
	}
}
