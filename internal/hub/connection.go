package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"spotiui/internal/models"
)

// connection is one live websocket. Outbound events flow through a single
// buffered channel drained by one writer goroutine, which gives per-connection
// delivery ordering.
type connection struct {
	id   string
	ws   *websocket.Conn
	send chan models.Event

	done      chan struct{}
	closeOnce sync.Once
}

func newConnection(id string, ws *websocket.Conn) *connection {
	return &connection{
		id:   id,
		ws:   ws,
		send: make(chan models.Event, sendBuffer),
		done: make(chan struct{}),
	}
}

// enqueue queues an event for the writer. Non-blocking: a closed connection
// or a full buffer drops the event (best-effort delivery).
func (c *connection) enqueue(ev models.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *connection) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(ev); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(
				websocket.PingMessage, nil,
				time.Now().Add(writeWait),
			); err != nil {
				c.close()
				return
			}
		}
	}
}

// inboundEvent is the client-to-server envelope. The payload stays raw until
// the event type selects a concrete shape.
type inboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (ev inboundEvent) decode(v any) error {
	if len(ev.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(ev.Payload, v)
}
