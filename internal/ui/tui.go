// ABOUTME: TUI initialization and control
// ABOUTME: Runs the bubbletea program and feeds it view updates
package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/swyh-go/swyh-go/internal/app"
	"github.com/swyh-go/swyh-go/internal/logging"
	"github.com/swyh-go/swyh-go/internal/meter"
)

const updateBuffer = 64

// TUI runs the terminal front-end. It implements app.View.
type TUI struct {
	submit  func(app.Command)
	updates chan tea.Msg
}

// New creates a TUI that sends user commands to submit
func New(submit func(app.Command)) *TUI {
	return &TUI{
		submit:  submit,
		updates: make(chan tea.Msg, updateBuffer),
	}
}

// Run blocks until the user quits or ctx is cancelled
func (t *TUI) Run(ctx context.Context) error {
	program := tea.NewProgram(NewModel(t.submit), tea.WithAltScreen(), tea.WithContext(ctx))

	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case msg := <-t.updates:
				program.Send(msg)
			case <-done:
				return
			}
		}
	}()

	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (t *TUI) send(msg tea.Msg) {
	select {
	case t.updates <- msg:
	default:
		// Don't block if channel is full
	}
}

func (t *TUI) Update(s app.Snapshot) { t.send(snapshotMsg(s)) }
func (t *TUI) Log(l logging.Line)    { t.send(logMsg(l)) }
func (t *TUI) Levels(l meter.Level)  { t.send(levelMsg(l)) }
