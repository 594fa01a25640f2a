package progress

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/progress"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial() error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	return ev
}

func TestHub_BroadcastDeliversToConnectedClient(t *testing.T) {
	hub := NewHub(nil, true)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.Broadcast(Event{Type: "analyzer_start", Analyzer: "netscan"})

	got := readEvent(t, conn)
	if got.Type != "analyzer_start" || got.Analyzer != "netscan" {
		t.Errorf("got %+v, want analyzer_start/netscan", got)
	}
}

func TestHub_LateJoinerReplaysHistory(t *testing.T) {
	hub := NewHub(nil, true)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()
	defer hub.Close()

	hub.Broadcast(Event{Type: "analyzer_start", Analyzer: "credscan"})
	hub.Broadcast(Event{Type: "analyzer_done", Analyzer: "credscan", Status: "ok"})

	conn := dial(t, srv)

	first := readEvent(t, conn)
	second := readEvent(t, conn)
	if first.Type != "analyzer_start" || second.Type != "analyzer_done" {
		t.Errorf("replay order wrong: first=%+v second=%+v", first, second)
	}
}

func TestHub_CloseDisconnectsClientsAndRejectsNew(t *testing.T) {
	hub := NewHub(nil, true)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn := dial(t, srv)
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	hub.Close()
	hub.Close() // must be safe to call twice

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read error after Close(), got nil")
	}

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() after Close() = %d, want 0", hub.ClientCount())
	}
}

func TestHub_BroadcastWithNoClientsDoesNotBlock(t *testing.T) {
	hub := NewHub(nil, false)
	hub.Broadcast(Event{Type: "scan_done"})
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}
