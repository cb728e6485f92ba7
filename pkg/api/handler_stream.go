package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// upgrader allows any origin, matching the teacher's own PoC-stage
// websocket.go — origin restriction is an operator-deployment concern, not
// part of this engine's scope.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamHandler handles GET /projects/:id/stream: upgrades to a WebSocket
// and relays every progress/review/completion event for that run until the
// client disconnects or the run's hub closes.
func (s *Server) streamHandler(c *gin.Context) {
	r, ok := s.getRun(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run for this project"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	r.hub.register(conn)

	if payload, err := marshalEnvelope(wsMessage{Type: "connected", Data: gin.H{"snapshot": r.tracker.Snapshot()}}); err == nil {
		conn.WriteMessage(websocket.TextMessage, payload)
	}

	// Read loop: discards client messages (ping/keepalive), exits and
	// unregisters on any read error or close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			r.hub.unregister(conn)
			return
		}
	}
}
