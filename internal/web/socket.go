package web

import (
	"net/http"
	"time"

	"github.com/cjeanneret/LapseGo/internal/debug"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The monitor is read-only; any origin may watch.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleStatusSocket handles GET /ws/status. It pushes the same events as
// the SSE stream over a WebSocket; anything the client sends is discarded.
func (h *Handlers) HandleStatusSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		debug.Verbose("Status socket upgrade failed: %v", err)
		return
	}
	debug.Verbose("Status socket connected: %s", r.RemoteAddr)

	ch, unsub := h.Broadcaster.Subscribe()
	done := make(chan struct{})
	go func() {
		readPump(conn)
		close(done)
	}()
	writePump(conn, h.snapshotEvent(), ch, done)
	unsub()
	debug.Verbose("Status socket closed: %s", r.RemoteAddr)
}

// writePump owns all writes to conn until the subscription closes, the
// reader stops, or a write fails.
func writePump(conn *websocket.Conn, first string, ch <-chan string, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	if first != "" {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(first)); err != nil {
			return
		}
	}

	for {
		select {
		case msg, ok := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

// readPump drains control frames so pongs extend the read deadline.
func readPump(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				debug.Verbose("Status socket error: %v", err)
			}
			return
		}
	}
}
