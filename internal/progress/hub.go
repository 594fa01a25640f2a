// Package progress broadcasts live scan-progress events over WebSocket to
// already-connected local clients (e.g. a terminal UI or a CI dashboard
// watching a long scan). It never makes outbound network calls itself —
// it only serves connections a client opened to it.
package progress

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// eventBufferSize bounds both a client's outbound queue and how many
// history events a late-joining client is replayed. A scan emits at most
// two events per analyzer plus one scan_done event, so this comfortably
// covers a full timeline without unbounded growth.
const eventBufferSize = 64

// Event describes one step of an in-progress scan.
type Event struct {
	Type      string `json:"type"`      // "analyzer_start", "analyzer_done", "scan_done"
	Analyzer  string `json:"analyzer,omitempty"`
	Status    string `json:"status,omitempty"`
	Findings  int    `json:"findings,omitempty"`
	ElapsedMs int64  `json:"elapsedMs,omitempty"`
}

func newUpgrader(allowAllOrigins bool) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowAllOrigins {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients don't send Origin
			}
			return strings.Contains(origin, r.Host)
		},
	}
}

// client is one connected progress subscriber. Broadcast never writes to
// conn directly; it hands ev to out, and writePump is the only goroutine
// that ever touches the socket, so a slow reader can't stall the scan
// that's producing events.
type client struct {
	conn *websocket.Conn
	out  chan Event
}

// Hub fans out one scan's progress events to every subscriber currently
// connected to it, replaying already-emitted events to a client that
// joins mid-scan so a dashboard that attaches late still sees the whole
// timeline. A Hub is scoped to a single scan — Close tears down every
// connection when that scan ends, and a Hub that has been Closed refuses
// new connections rather than staying alive as a long-lived multi-session
// server would.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	history  []Event
	upgrader websocket.Upgrader
	logger   *slog.Logger
	closed   bool
}

// NewHub creates a Hub. allowAllOrigins should stay false outside of local
// development; ClawScan has no reason to accept cross-origin browser
// clients in normal use.
func NewHub(logger *slog.Logger, allowAllOrigins bool) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:  make(map[*client]struct{}),
		upgrader: newUpgrader(allowAllOrigins),
		logger:   logger.With("component", "progress.Hub"),
	}
}

// HandleWebSocket upgrades an HTTP connection, replays every event
// broadcast so far, and registers it as a live subscriber. A connection
// made after Close returns is upgraded and immediately closed rather than
// left dangling.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	c := &client{conn: conn, out: make(chan Event, eventBufferSize)}
	for _, ev := range h.history {
		c.out <- ev
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("progress client connected", "remote", conn.RemoteAddr())

	go h.writePump(c)
	go h.readPump(c)
}

// writePump is the sole writer for c's connection: it drains c.out onto
// the socket until the channel is closed (by removeClient or Close), then
// closes the underlying connection.
func (h *Hub) writePump(c *client) {
	defer func() {
		h.removeClient(c)
		_ = c.conn.Close()
	}()
	for ev := range c.out {
		msg, err := json.Marshal(ev)
		if err != nil {
			h.logger.Error("failed to marshal progress event", "error", err)
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("failed to write to progress client", "error", err)
			return
		}
	}
}

// readPump only exists to notice when the client goes away (a WebSocket
// close frame or a dropped connection); progress clients never send us
// anything meaningful.
func (h *Hub) readPump(c *client) {
	defer h.removeClient(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.out)
	}
}

// Broadcast records ev in the replay history and delivers it to every
// connected client. A client whose outbound queue is already full is
// dropped rather than let it stall delivery to everyone else — a scan's
// event stream is more important than any one slow subscriber.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, ev)
	if len(h.history) > eventBufferSize {
		// Bounded so a client's replay-on-connect send (into a
		// fixed-capacity channel, before its writePump starts draining
		// it) can never block; oldest events are the least useful to a
		// dashboard attaching mid-scan anyway.
		h.history = h.history[len(h.history)-eventBufferSize:]
	}

	var slow []*client
	for c := range h.clients {
		select {
		case c.out <- ev:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.logger.Debug("dropping slow progress client")
		delete(h.clients, c)
		close(c.out)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects any subsequent
// HandleWebSocket call. Safe to call more than once.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.out)
	}
}
