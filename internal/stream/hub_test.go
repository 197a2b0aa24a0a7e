package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/feedwarden/internal/engine"
)

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.Stats().Clients == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Clients = %d, want %d", h.Stats().Clients, n)
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastsEvents(t *testing.T) {
	hub := NewHub(Config{}, nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	a := dial(t, server)
	b := dial(t, server)
	waitForClients(t, hub, 2)

	hub.Observe(engine.Event{Kind: engine.EventAnnounced, ItemID: "42", Count: 2})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got engine.Event
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if got.Kind != engine.EventAnnounced {
			t.Errorf("Kind = %q, want %q", got.Kind, engine.EventAnnounced)
		}
		if got.ItemID != "42" {
			t.Errorf("ItemID = %q, want %q", got.ItemID, "42")
		}
		if got.Count != 2 {
			t.Errorf("Count = %d, want 2", got.Count)
		}
	}

	if got := hub.Stats().Published; got != 1 {
		t.Errorf("Published = %d, want 1", got)
	}
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	hub := NewHub(Config{}, nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	conn := dial(t, server)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub(Config{BufferSize: 1}, nil)

	// No writer drains this client, so the second event overflows it.
	c := &client{send: make(chan []byte, 1), done: make(chan struct{})}
	if err := hub.add(c); err != nil {
		t.Fatalf("add() error = %v", err)
	}

	hub.Observe(engine.Event{Kind: engine.EventDelivered})
	hub.Observe(engine.Event{Kind: engine.EventDelivered})

	stats := hub.Stats()
	if stats.Clients != 0 {
		t.Errorf("Clients = %d, want 0", stats.Clients)
	}
	if stats.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", stats.Dropped)
	}
	select {
	case <-c.done:
	default:
		t.Error("slow client was not closed")
	}
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub(Config{}, nil)
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)
	waitForClients(t, hub, 1)

	hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("ReadMessage() error = %v, want normal closure", err)
	}

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestHub_ObserveWithoutClients(t *testing.T) {
	hub := NewHub(Config{}, nil)
	hub.Observe(engine.Event{Kind: engine.EventTickCompleted})

	if got := hub.Stats().Published; got != 1 {
		t.Errorf("Published = %d, want 1", got)
	}
}
