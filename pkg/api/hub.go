package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// wsMessage is the envelope written to every connected stream client.
// Shape mirrors the teacher's WSMessage, dropping the SessionID field since
// a hub here is already scoped to one project run.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// marshalEnvelope assembles the wire payload by setting fields directly
// with sjson rather than round-tripping msg through a tagged struct
// marshal — the same lenient, path-based assembly pkg/terminology uses to
// read LLM replies, used here in the other direction to build the
// review-request/progress payload pushed to stream clients.
func marshalEnvelope(msg wsMessage) ([]byte, error) {
	raw, err := json.Marshal(msg.Data)
	if err != nil {
		return nil, err
	}
	out, err := sjson.SetBytes([]byte(`{}`), "type", msg.Type)
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(out, "data", raw)
}

// hub fans out one project run's TaskUpdate/review/completion events to
// every connected stream client, grounded on the teacher's
// pkg/api/websocket.go WSHub — generalized from one process-wide hub to one
// hub per run so concurrent projects' progress feeds never cross.
type hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	closed  bool
}

func newHub() *hub {
	return &hub{clients: map[*websocket.Conn]bool{}}
}

func (h *hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		conn.Close()
		return
	}
	h.clients[conn] = true
}

func (h *hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *hub) broadcast(msg wsMessage) {
	payload, err := marshalEnvelope(msg)
	if err != nil {
		slog.Warn("failed to assemble stream payload", "type", msg.Type, "error", err)
		return
	}
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug("broadcasting stream message", "type", msg.Type, "payload", string(pretty.Pretty(payload)))
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Warn("stream write failed, dropping client", "error", err)
			go h.unregister(conn)
		}
	}
}

// closeAll closes every connected client and marks the hub closed so late
// registrations are rejected — called once the run reaches a terminal
// status.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
