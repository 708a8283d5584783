package webchat

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/concierge-dialer/internal/conversation"
)

// conn serializes writes to one socket. Turn listeners push from the
// conversation goroutine while the read loop answers pings.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{ws: ws}
}

func (c *conn) send(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.JSON.Send(c.ws, msg)
}

func (c *conn) receive(msg *InboundMessage) error {
	return websocket.JSON.Receive(c.ws, msg)
}

func (c *conn) pushSnapshot(snap conversation.Snapshot) {
	_ = c.send(OutboundMessage{Type: "snapshot", ConversationID: snap.ID, Snapshot: &snap})
}

func history(snap conversation.Snapshot) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		out = append(out, HistoryMessage{
			Role:      string(m.Role),
			Text:      m.Content,
			Timestamp: m.At.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
