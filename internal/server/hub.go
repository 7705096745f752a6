// ABOUTME: WebSocket event hub for remote front-ends
// ABOUTME: Pushes renderer, stream and meter events as JSON to subscribers
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	subscriberBuffer = 64
	pingInterval     = 30 * time.Second
	writeDeadline    = 10 * time.Second
)

// Event is one message pushed to subscribers
type Event struct {
	Type    string      `json:"type"`
	Time    time.Time   `json:"time"`
	Payload interface{} `json:"payload,omitempty"`
}

type subscriber struct {
	id       string
	conn     *websocket.Conn
	sendChan chan Event
	dropped  atomic.Int64
}

// Hub fans events out to websocket subscribers. A subscriber that falls
// behind loses events.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	subscribers   map[string]*subscriber
	subscribersMu sync.RWMutex
	closed        bool

	wg sync.WaitGroup
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger.With("component", "events"),
		upgrader: websocket.Upgrader{
			// front-ends run on the local network; browsers on other origins are allowed
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subscribers: make(map[string]*subscriber),
	}
}

// Publish queues an event for every subscriber without blocking
func (h *Hub) Publish(eventType string, payload interface{}) {
	ev := Event{Type: eventType, Time: time.Now(), Payload: payload}

	h.subscribersMu.RLock()
	defer h.subscribersMu.RUnlock()

	for _, sub := range h.subscribers {
		select {
		case sub.sendChan <- ev:
		default:
			if n := sub.dropped.Add(1); n == 1 || n%100 == 0 {
				h.logger.Warn("subscriber too slow, dropping events", "id", sub.id, "dropped", n)
			}
		}
	}
}

// Len returns the number of subscribers
func (h *Hub) Len() int {
	h.subscribersMu.RLock()
	defer h.subscribersMu.RUnlock()
	return len(h.subscribers)
}

// ServeHTTP upgrades the request and serves events until the peer leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", "error", err)
		return
	}

	sub := &subscriber{
		id:       uuid.New().String(),
		conn:     conn,
		sendChan: make(chan Event, subscriberBuffer),
	}

	h.subscribersMu.Lock()
	if h.closed {
		h.subscribersMu.Unlock()
		conn.Close()
		return
	}
	h.subscribers[sub.id] = sub
	h.wg.Add(1)
	h.subscribersMu.Unlock()

	h.logger.Info("subscriber connected", "id", sub.id, "remote", r.RemoteAddr)

	go func() {
		defer h.wg.Done()
		h.writer(sub)
	}()

	// drain reads so control frames are processed; any error ends the session
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket error", "id", sub.id, "error", err)
			}
			break
		}
	}

	h.remove(sub)
}

func (h *Hub) remove(sub *subscriber) {
	h.subscribersMu.Lock()
	if _, ok := h.subscribers[sub.id]; ok {
		delete(h.subscribers, sub.id)
		close(sub.sendChan)
	}
	h.subscribersMu.Unlock()
}

// writer sends queued events and keepalive pings to one subscriber
func (h *Hub) writer(sub *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer sub.conn.Close()

	for {
		select {
		case ev, ok := <-sub.sendChan:
			if !ok {
				sub.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeDeadline))
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("error marshaling event", "type", ev.Type, "error", err)
				continue
			}
			sub.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("error writing event", "id", sub.id, "error", err)
				return
			}

		case <-ticker.C:
			if err := sub.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// Close disconnects every subscriber and waits for their writers
func (h *Hub) Close() {
	h.subscribersMu.Lock()
	h.closed = true
	for id, sub := range h.subscribers {
		delete(h.subscribers, id)
		close(sub.sendChan)
	}
	h.subscribersMu.Unlock()

	h.wg.Wait()
}
