// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	applog "lumen/internal/log"
)

// WebSocket broadcasts frames as JSON to every connected client. It is
// the debug monitor tap: a browser can connect to /ws and watch the
// control frames live.
type WebSocket struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	server    *http.Server
	done      chan struct{}
}

// NewWebSocket starts an HTTP server on addr serving the /ws endpoint
// and returns immediately; the listener and broadcaster run in their own
// goroutines.
func NewWebSocket(addr string) *WebSocket {
	ws := &WebSocket{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.handleUpgrade)
	ws.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		applog.Infof("monitor: websocket listening on %s", addr)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("monitor: server error: %v", err)
		}
	}()
	go ws.run()

	return ws
}

func (ws *WebSocket) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("monitor: upgrade failed: %v", err)
		return
	}

	ws.clientsMu.Lock()
	ws.clients[conn] = true
	n := len(ws.clients)
	ws.clientsMu.Unlock()
	applog.Infof("monitor: client connected, total %d", n)

	// The read loop exists only to notice the disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		ws.clientsMu.Lock()
		delete(ws.clients, conn)
		n := len(ws.clients)
		ws.clientsMu.Unlock()
		conn.Close()
		applog.Infof("monitor: client disconnected, total %d", n)
	}()
}

func (ws *WebSocket) run() {
	for {
		select {
		case data := <-ws.broadcast:
			ws.clientsMu.Lock()
			for client := range ws.clients {
				if err := client.WriteJSON(data); err != nil {
					applog.Debugf("monitor: dropping client: %v", err)
					client.Close()
					delete(ws.clients, client)
				}
			}
			ws.clientsMu.Unlock()
		case <-ws.done:
			return
		}
	}
}

// Send queues data for broadcast. Never blocks: when the queue is full
// the frame is dropped, the next one will carry fresher state anyway.
func (ws *WebSocket) Send(data any) error {
	select {
	case ws.broadcast <- data:
	default:
	}
	return nil
}

// Close disconnects all clients and shuts the server down.
func (ws *WebSocket) Close() error {
	close(ws.done)

	ws.clientsMu.Lock()
	for client := range ws.clients {
		client.Close()
	}
	ws.clients = make(map[*websocket.Conn]bool)
	ws.clientsMu.Unlock()

	return ws.server.Close()
}

var _ Transport = (*WebSocket)(nil)
