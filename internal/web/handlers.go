package web

import (
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/cjeanneret/LapseGo/internal/buildinfo"
	"github.com/cjeanneret/LapseGo/internal/logic/capture"
)

// heartbeatInterval keeps idle stream connections open through proxies.
const heartbeatInterval = 30 * time.Second

// StatusSource exposes the last published capture state. It must be safe
// to call from any goroutine (capture.Controller.Published is).
type StatusSource interface {
	Published() capture.State
}

// Handlers holds dependencies for HTTP handlers. Every route is read-only:
// the capture is driven from the serial console alone.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Status      StatusSource
	Info        buildinfo.Info
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(broadcaster *StatusBroadcaster, status StatusSource, info buildinfo.Info, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Status:      status,
		Info:        info,
		staticFS:    staticFS,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	json.NewEncoder(w).Encode(v)
}

// HandleStatus returns the published capture state as JSON.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Status.Published())
}

// HandleVersion returns the firmware identity as JSON.
func (h *Handlers) HandleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Info)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// snapshotEvent encodes the current state as the first message of a stream,
// so a client never waits for the next change to render.
func (h *Handlers) snapshotEvent() string {
	s := h.Status.Published()
	data, err := json.Marshal(StatusEvent{
		Time:  time.Now().Format(time.RFC3339),
		Level: LevelState,
		State: &s,
	})
	if err != nil {
		return ""
	}
	return string(data)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	if snap := h.snapshotEvent(); snap != "" {
		w.Write([]byte("data: " + snap + "\n\n"))
	}
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
