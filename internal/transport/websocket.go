package transport

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	applog "github.com/samuelpmahan/audio-viz/internal/log"
)

// defaultSendInterval caps the broadcast rate at roughly 60 Hz so a fast
// audio tick does not flood slow clients.
const defaultSendInterval = 16 * time.Millisecond

// WebSocket broadcasts every payload handed to Send as one JSON message to
// all clients connected to /metrics. Construction and listening are separate
// steps: NewWebSocket never fails, Start binds the address and reports the
// only error the caller can act on.
//
// Send is rate-limited and enqueues into a bounded channel; when the channel
// is full the payload is dropped. A dedicated goroutine fans queued payloads
// out to clients, so a stalled client never blocks the engine.
type WebSocket struct {
	addr     string
	upgrader websocket.Upgrader

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool

	broadcast chan any
	server    *http.Server
	listener  net.Listener

	// Send is driven from a single goroutine (the engine tick), so the rate
	// limiter state needs no lock.
	lastSend     time.Time
	sendInterval time.Duration

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWebSocket prepares a metrics WebSocket hub for the given listen address
// (for example ":8080"). Call Start to begin serving.
func NewWebSocket(addr string) *WebSocket {
	return &WebSocket{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Visualizers are local pages; any origin may read.
			},
		},
		clients:      make(map[*websocket.Conn]bool),
		broadcast:    make(chan any, 256),
		sendInterval: defaultSendInterval,
		done:         make(chan struct{}),
	}
}

// Start binds the listen address and begins serving /metrics upgrades and
// queued broadcasts. It returns once the listener is bound; serving happens
// on background goroutines until Close.
func (ws *WebSocket) Start() error {
	if ws.listener != nil {
		return fmt.Errorf("websocket transport already started")
	}

	ln, err := net.Listen("tcp", ws.addr)
	if err != nil {
		return fmt.Errorf("websocket transport failed to listen on %s: %w", ws.addr, err)
	}
	ws.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", ws.handleUpgrade)
	ws.server = &http.Server{Handler: mux}

	ws.wg.Add(2)
	go func() {
		defer ws.wg.Done()
		applog.Infof("transport: metrics websocket listening on %s", ln.Addr())
		if err := ws.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			applog.Errorf("transport: websocket server: %v", err)
		}
	}()
	go ws.fanOut()

	return nil
}

// Addr returns the bound listen address, or the configured one before Start.
// Useful when starting on ":0".
func (ws *WebSocket) Addr() string {
	if ws.listener != nil {
		return ws.listener.Addr().String()
	}
	return ws.addr
}

// Clients returns the number of connected clients.
func (ws *WebSocket) Clients() int {
	ws.clientsMu.Lock()
	defer ws.clientsMu.Unlock()
	return len(ws.clients)
}

// handleUpgrade turns an HTTP request into a registered WebSocket client and
// watches the connection so closed clients are removed.
func (ws *WebSocket) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("transport: websocket upgrade: %v", err)
		return
	}

	ws.clientsMu.Lock()
	ws.clients[conn] = true
	total := len(ws.clients)
	ws.clientsMu.Unlock()
	applog.Infof("transport: client connected (%d total)", total)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				ws.dropClient(conn)
				return
			}
		}
	}()
}

func (ws *WebSocket) dropClient(conn *websocket.Conn) {
	ws.clientsMu.Lock()
	if ws.clients[conn] {
		delete(ws.clients, conn)
		applog.Infof("transport: client disconnected (%d total)", len(ws.clients))
	}
	ws.clientsMu.Unlock()
	conn.Close()
}

// fanOut drains the broadcast queue and writes each payload to every client.
// A client that fails a write is dropped on the spot.
func (ws *WebSocket) fanOut() {
	defer ws.wg.Done()
	for {
		select {
		case data := <-ws.broadcast:
			ws.clientsMu.Lock()
			for conn := range ws.clients {
				if err := conn.WriteJSON(data); err != nil {
					delete(ws.clients, conn)
					conn.Close()
					applog.Warnf("transport: dropping client after write error: %v", err)
				}
			}
			ws.clientsMu.Unlock()
		case <-ws.done:
			return
		}
	}
}

// Send queues one payload for broadcast. Payloads inside the rate-limit
// window or beyond the queue capacity are dropped; both are normal under
// load and never an error.
func (ws *WebSocket) Send(data any) error {
	now := time.Now()
	if now.Sub(ws.lastSend) < ws.sendInterval {
		return nil
	}
	ws.lastSend = now

	select {
	case ws.broadcast <- data:
	default:
	}
	return nil
}

// Close disconnects all clients and shuts the server down. Idempotent.
func (ws *WebSocket) Close() error {
	var err error
	ws.closeOnce.Do(func() {
		close(ws.done)

		ws.clientsMu.Lock()
		for conn := range ws.clients {
			conn.Close()
		}
		ws.clients = make(map[*websocket.Conn]bool)
		ws.clientsMu.Unlock()

		if ws.server != nil {
			err = ws.server.Close()
		}
		ws.wg.Wait()
		applog.Info("transport: metrics websocket closed")
	})
	return err
}

var _ Transport = (*WebSocket)(nil)
