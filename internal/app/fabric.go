// ABOUTME: Event fabric between workers and the orchestration loop
// ABOUTME: One buffered channel per event kind and a single wake signal
package app

import (
	"sync/atomic"

	"github.com/swyh-go/swyh-go/internal/logging"
	"github.com/swyh-go/swyh-go/internal/meter"
	"github.com/swyh-go/swyh-go/internal/renderer"
	"github.com/swyh-go/swyh-go/internal/server"
)

// DefaultQueueSize is the per-kind channel capacity
const DefaultQueueSize = 256

// CommandKind is a user request from a front-end
type CommandKind int

const (
	CmdToggle CommandKind = iota + 1
	CmdPlay
	CmdStop
	CmdToggleAutoResume
)

// Command is a user request. RendererID is empty for CmdToggleAutoResume.
type Command struct {
	Kind       CommandKind
	RendererID string
}

// Action is a renderer control request
type Action int

const (
	ActionPlay Action = iota + 1
	ActionStop
)

func (a Action) String() string {
	if a == ActionPlay {
		return "play"
	}
	return "stop"
}

// ControlResult reports the outcome of one control request
type ControlResult struct {
	RendererID string
	Action     Action
	Resume     bool
	Err        error
}

// Fabric carries events from producers to the loop. Every send is
// non-blocking; an event that does not fit is counted and discarded.
type Fabric struct {
	feedback  chan server.Feedback
	renderers chan renderer.Renderer
	results   chan ControlResult
	commands  chan Command
	logs      chan logging.Line
	levels    chan meter.Level
	wake      chan struct{}

	dropped atomic.Int64
}

// NewFabric creates a fabric with queues of the given size
func NewFabric(size int) *Fabric {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Fabric{
		feedback:  make(chan server.Feedback, size),
		renderers: make(chan renderer.Renderer, size),
		results:   make(chan ControlResult, size),
		commands:  make(chan Command, size),
		logs:      make(chan logging.Line, size),
		levels:    make(chan meter.Level, size),
		wake:      make(chan struct{}, 1),
	}
}

func send[T any](f *Fabric, ch chan T, v T) {
	select {
	case ch <- v:
	default:
		f.dropped.Add(1)
	}
	f.Wake()
}

// Wake signals the loop that events are pending
func (f *Fabric) Wake() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// StreamFeedback implements server.FeedbackSink
func (f *Fabric) StreamFeedback(fb server.Feedback) { send(f, f.feedback, fb) }

// RendererFound implements discovery.Sink
func (f *Fabric) RendererFound(r renderer.Renderer) { send(f, f.renderers, r) }

// LogLine accepts a log record for the front-ends
func (f *Fabric) LogLine(l logging.Line) { send(f, f.logs, l) }

// Level accepts a meter reading
func (f *Fabric) Level(l meter.Level) { send(f, f.levels, l) }

// Submit queues a user command
func (f *Fabric) Submit(c Command) { send(f, f.commands, c) }

func (f *Fabric) controlResult(r ControlResult) { send(f, f.results, r) }

// Dropped returns how many events were discarded on full queues
func (f *Fabric) Dropped() int64 {
	return f.dropped.Load()
}
