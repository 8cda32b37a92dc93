package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"lecture-notes/pkg/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const writeWait = 10 * time.Second

type WebSocketMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	State     string          `json:"state,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	At        *time.Time      `json:"at,omitempty"`
}

func messageFor(n session.Notification) WebSocketMessage {
	msg := WebSocketMessage{
		Type:      string(n.Type),
		SessionID: n.SessionID,
		State:     string(n.State),
		Error:     n.Error,
		At:        &n.At,
	}
	switch {
	case n.Summary != nil:
		msg.Data = mustMarshal(n.Summary)
	case n.Segment != nil:
		msg.Data = mustMarshal(n.Segment)
	case n.Chunk != nil:
		msg.Data = mustMarshal(n.Chunk)
	}
	return msg
}

// EventsHandler streams session notifications to a WebSocket client. The
// client may send "ping" or "snapshot"; the stream ends with the session.
func (h *Handlers) EventsHandler(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, unsubscribe := c.Subscribe()
	defer unsubscribe()

	requests := make(chan WebSocketMessage)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg WebSocketMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case requests <- msg:
			case <-r.Context().Done():
				return
			}
		}
	}()

	h.sendMessage(conn, WebSocketMessage{
		Type:      "snapshot",
		SessionID: c.ID(),
		State:     string(c.State()),
		Data:      mustMarshal(c.Snapshot()),
	})

	for {
		select {
		case n, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
					time.Now().Add(writeWait))
				return
			}
			if err := h.sendMessage(conn, messageFor(n)); err != nil {
				return
			}

		case msg := <-requests:
			var reply WebSocketMessage
			switch msg.Type {
			case "ping":
				reply = WebSocketMessage{Type: "pong"}
			case "snapshot":
				reply = WebSocketMessage{
					Type:      "snapshot",
					SessionID: c.ID(),
					State:     string(c.State()),
					Data:      mustMarshal(c.Snapshot()),
				}
			default:
				reply = WebSocketMessage{Type: "error", Error: "Unknown message type"}
			}
			if err := h.sendMessage(conn, reply); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

func (h *Handlers) sendMessage(conn *websocket.Conn, msg WebSocketMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("WebSocket write failed", "err", err)
		return err
	}
	return nil
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
