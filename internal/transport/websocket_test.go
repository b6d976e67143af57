package transport

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/samuelpmahan/audio-viz/internal/analysis"
)

// startTestHub starts a hub on an ephemeral port with rate limiting off so
// tests can send back to back.
func startTestHub(t *testing.T) *WebSocket {
	t.Helper()

	ws := NewWebSocket("127.0.0.1:0")
	ws.sendInterval = 0
	if err := ws.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func dialTestHub(t *testing.T, ws *WebSocket) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ws.Addr()+"/metrics", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitForClients polls until the hub sees n clients or the deadline passes.
func waitForClients(t *testing.T, ws *WebSocket, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for ws.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", ws.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	ws := startTestHub(t)
	conn := dialTestHub(t, ws)
	waitForClients(t, ws, 1)

	sent := analysis.Metrics{Bass: 0.5, BPM: 128, Kick: true, Centroid: 0.3}
	if err := ws.Send(&sent); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got analysis.Metrics
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON error: %v", err)
	}

	if got.Bass != sent.Bass || got.BPM != sent.BPM || got.Kick != sent.Kick || got.Centroid != sent.Centroid {
		t.Errorf("broadcast mismatch: got %+v, want %+v", got, sent)
	}
}

func TestWebSocketFanOut(t *testing.T) {
	ws := startTestHub(t)
	first := dialTestHub(t, ws)
	second := dialTestHub(t, ws)
	waitForClients(t, ws, 2)

	if err := ws.Send(&analysis.Metrics{Volume: 0.75}); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	for i, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got analysis.Metrics
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("client %d ReadJSON error: %v", i, err)
		}
		if got.Volume != 0.75 {
			t.Errorf("client %d volume = %f, want 0.75", i, got.Volume)
		}
	}
}

func TestWebSocketDisconnectCleanup(t *testing.T) {
	ws := startTestHub(t)
	conn := dialTestHub(t, ws)
	waitForClients(t, ws, 1)

	conn.Close()
	waitForClients(t, ws, 0)
}

func TestWebSocketRateLimit(t *testing.T) {
	// Not started: nothing drains the queue, so its length is exact.
	ws := NewWebSocket("127.0.0.1:0")
	ws.sendInterval = time.Hour

	// First send enters the queue, the second lands inside the window and
	// is dropped without blocking.
	ws.Send(&analysis.Metrics{Bass: 1})
	ws.Send(&analysis.Metrics{Bass: 2})

	if queued := len(ws.broadcast); queued != 1 {
		t.Errorf("queued payloads = %d, want 1 after rate limiting", queued)
	}
}

func TestWebSocketStartErrors(t *testing.T) {
	ws := startTestHub(t)

	other := NewWebSocket(ws.Addr())
	if err := other.Start(); err == nil {
		other.Close()
		t.Fatal("binding an in-use address should fail")
	}

	if err := ws.Start(); err == nil {
		t.Error("second Start on a running hub should fail")
	}
}

func TestWebSocketCloseIdempotent(t *testing.T) {
	ws := startTestHub(t)
	if err := ws.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Errorf("second Close error: %v", err)
	}
}
