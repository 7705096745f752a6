// ABOUTME: Front-end sink interface and shared view state
// ABOUTME: Snapshot types plus the adapter that publishes to the event hub
package app

import (
	"github.com/swyh-go/swyh-go/internal/logging"
	"github.com/swyh-go/swyh-go/internal/meter"
)

// RendererState is one row of the renderer list
type RendererState struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Model      string `json:"model,omitempty"`
	Dialect    string `json:"dialect"`
	RemoteAddr string `json:"remote_addr"`
	Playing    bool   `json:"playing"`
	Streaming  bool   `json:"streaming"`
}

// Snapshot is the full state a front-end renders
type Snapshot struct {
	Renderers  []RendererState `json:"renderers"`
	AutoResume bool            `json:"auto_resume"`
	StreamURL  string          `json:"stream_url"`
	Streams    int             `json:"streams"`
}

// View receives state from the loop. Implementations must not block.
type View interface {
	Update(Snapshot)
	Log(logging.Line)
	Levels(meter.Level)
}

// Publisher pushes typed events to remote subscribers
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// Event types sent by HubView
const (
	EventState  = "state"
	EventLog    = "log"
	EventLevels = "levels"
)

// HubView forwards view updates to a Publisher such as the websocket hub
type HubView struct {
	Publisher Publisher
}

func (h HubView) Update(s Snapshot)    { h.Publisher.Publish(EventState, s) }
func (h HubView) Log(l logging.Line)   { h.Publisher.Publish(EventLog, l) }
func (h HubView) Levels(l meter.Level) { h.Publisher.Publish(EventLevels, l) }
