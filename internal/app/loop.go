// ABOUTME: Orchestration loop owning renderer and stream state
// ABOUTME: Drains the fabric, drives play/stop and auto-resume, updates views
package app

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/swyh-go/swyh-go/internal/logging"
	"github.com/swyh-go/swyh-go/internal/meter"
	"github.com/swyh-go/swyh-go/internal/renderer"
	"github.com/swyh-go/swyh-go/internal/server"
)

// DefaultTick bounds how long pending events wait without a wake signal
const DefaultTick = 100 * time.Millisecond

// dropReportInterval rate-limits slow-client warnings
const dropReportInterval = time.Second

// Streams is the part of the stream registry the loop needs
type Streams interface {
	Has(remoteAddr string) bool
	Drop(remoteAddr string) bool
	Len() int
	// TakeDrops returns chunks dropped per remote address since the last call
	TakeDrops() map[string]uint64
}

// LoopConfig configures the orchestration loop
type LoopConfig struct {
	Fabric     *Fabric
	Streams    Streams
	Worker     *ControlWorker
	Media      renderer.Media
	AutoResume bool
	Views      []View
	Tick       time.Duration
	Logger     *slog.Logger
}

type entry struct {
	renderer  renderer.Renderer
	playing   bool
	streaming bool
	// userStopped holds off auto-resume until the user plays again
	userStopped bool
}

// Loop is the single owner of renderer play state
type Loop struct {
	config LoopConfig
	logger *slog.Logger

	entries       map[string]*entry
	autoResume    bool
	dirty         bool
	lastDropCheck time.Time
}

// NewLoop creates a loop
func NewLoop(config LoopConfig) *Loop {
	if config.Tick <= 0 {
		config.Tick = DefaultTick
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		config:     config,
		logger:     logger.With("component", "loop"),
		entries:    make(map[string]*entry),
		autoResume: config.AutoResume,
		dirty:      true,
	}
}

// Run processes events until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.config.Tick)
	defer ticker.Stop()

	l.step()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.config.Fabric.wake:
		case <-ticker.C:
		}
		l.step()
	}
}

// step drains every queue once, in priority order, then refreshes views
func (l *Loop) step() {
	f := l.config.Fabric

	drain(f.feedback, l.handleFeedback)
	drain(f.renderers, l.handleRenderer)
	drain(f.results, l.handleResult)
	drain(f.commands, l.handleCommand)

	if l.dirty {
		l.dirty = false
		snap := l.Snapshot()
		for _, v := range l.config.Views {
			v.Update(snap)
		}
	}

	if now := time.Now(); now.Sub(l.lastDropCheck) >= dropReportInterval {
		l.lastDropCheck = now
		l.reportDrops()
	}

	drain(f.logs, l.forwardLog)

	// only the newest reading matters to a meter display
	var level meter.Level
	haveLevel := false
	drain(f.levels, func(lv meter.Level) {
		level = lv
		haveLevel = true
	})
	if haveLevel {
		for _, v := range l.config.Views {
			v.Levels(level)
		}
	}
}

func drain[T any](ch <-chan T, handle func(T)) {
	for {
		select {
		case v := <-ch:
			handle(v)
		default:
			return
		}
	}
}

func (l *Loop) reportDrops() {
	drops := l.config.Streams.TakeDrops()
	if len(drops) == 0 {
		return
	}
	addrs := make([]string, 0, len(drops))
	for addr := range drops {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		l.logger.Warn("client too slow, dropping audio", "remote", addr, "dropped", drops[addr])
	}
}

func (l *Loop) forwardLog(line logging.Line) {
	for _, v := range l.config.Views {
		v.Log(line)
	}
}

func (l *Loop) handleFeedback(fb server.Feedback) {
	matched := false
	for _, e := range l.entries {
		if e.renderer.RemoteAddr != fb.RemoteAddr {
			continue
		}
		matched = true
		l.dirty = true

		switch fb.State {
		case server.Started:
			e.streaming = true
			if !e.userStopped {
				e.playing = true
			}
		case server.Ended:
			if l.config.Streams.Has(fb.RemoteAddr) {
				// another stream from the same address is still live
				continue
			}
			e.streaming = false
			if l.autoResume && e.playing && !e.userStopped {
				l.logger.Info("stream ended, resuming", "renderer", e.renderer.Name)
				l.dispatch(e, ActionPlay, true)
			} else {
				e.playing = false
			}
		}
	}
	if !matched {
		l.logger.Debug("stream feedback from unknown address", "remote", fb.RemoteAddr, "state", fb.State.String())
		l.dirty = true
	}
}

func (l *Loop) handleRenderer(r renderer.Renderer) {
	if _, ok := l.entries[r.ID]; ok {
		return
	}
	l.entries[r.ID] = &entry{renderer: r}
	l.dirty = true
	l.logger.Info("new renderer", "name", r.Name, "model", r.Model, "dialect", r.Dialect.String(), "addr", r.RemoteAddr)
}

func (l *Loop) handleResult(res ControlResult) {
	e, ok := l.entries[res.RendererID]
	if !ok {
		return
	}
	if res.Err == nil {
		l.logger.Debug("control succeeded", "renderer", e.renderer.Name, "action", res.Action.String())
		return
	}

	switch res.Action {
	case ActionPlay:
		e.playing = false
		l.dirty = true
		l.logger.Error("play failed", "renderer", e.renderer.Name, "resume", res.Resume, "error", res.Err)
	case ActionStop:
		l.logger.Warn("stop failed", "renderer", e.renderer.Name, "error", res.Err)
	}
}

func (l *Loop) handleCommand(c Command) {
	if c.Kind == CmdToggleAutoResume {
		l.autoResume = !l.autoResume
		l.dirty = true
		l.logger.Info("auto-resume changed", "enabled", l.autoResume)
		return
	}

	e, ok := l.entries[c.RendererID]
	if !ok {
		l.logger.Warn("command for unknown renderer", "id", c.RendererID)
		return
	}

	kind := c.Kind
	if kind == CmdToggle {
		kind = CmdPlay
		if e.playing {
			kind = CmdStop
		}
	}

	switch kind {
	case CmdPlay:
		e.userStopped = false
		if e.playing {
			return
		}
		l.dispatch(e, ActionPlay, false)
	case CmdStop:
		e.playing = false
		e.userStopped = true
		if l.config.Streams.Drop(e.renderer.RemoteAddr) {
			l.logger.Debug("dropped stream", "remote", e.renderer.RemoteAddr)
		}
		l.dispatch(e, ActionStop, false)
	}
	l.dirty = true
}

// dispatch hands a control request to the worker. A play leaves the toggle
// on until the worker reports failure.
func (l *Loop) dispatch(e *entry, action Action, resume bool) {
	job := controlJob{action: action, renderer: e.renderer, media: l.config.Media, resume: resume}
	if action == ActionPlay {
		e.playing = true
	}
	if l.config.Worker == nil || !l.config.Worker.enqueue(job) {
		l.logger.Error("control queue full", "renderer", e.renderer.Name, "action", action.String())
		if action == ActionPlay {
			e.playing = false
		}
	}
	l.dirty = true
}

// Snapshot returns the current view state, renderers sorted by name
func (l *Loop) Snapshot() Snapshot {
	snap := Snapshot{
		AutoResume: l.autoResume,
		StreamURL:  l.config.Media.URL,
		Streams:    l.config.Streams.Len(),
		Renderers:  make([]RendererState, 0, len(l.entries)),
	}
	for _, e := range l.entries {
		snap.Renderers = append(snap.Renderers, RendererState{
			ID:         e.renderer.ID,
			Name:       e.renderer.Name,
			Model:      e.renderer.Model,
			Dialect:    e.renderer.Dialect.String(),
			RemoteAddr: e.renderer.RemoteAddr,
			Playing:    e.playing,
			Streaming:  e.streaming,
		})
	}
	sort.Slice(snap.Renderers, func(i, j int) bool {
		a, b := snap.Renderers[i], snap.Renderers[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return snap
}
