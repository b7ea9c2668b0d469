package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pingPeriod   = 30 * time.Second
)

// HandleWebSocket upgrades the HTTP connection to a WebSocket and manages
// the read/write pumps for the client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // the server binds loopback by default
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  h,
		send: make(chan []byte, 256),
		conn: conn,
	}

	h.register <- client

	// Send the full catalog once on connect
	if msg, ok := h.snapshotMessage(); ok {
		select {
		case client.send <- msg:
		default:
		}
	}

	go client.writePump(r.Context())
	client.readPump(r.Context())
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				c.hub.logger.Debug("websocket client disconnected normally", "client", c.id)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case MsgSync:
			// Client requests a fresh snapshot
			if reply, ok := c.hub.snapshotMessage(); ok {
				select {
				case c.send <- reply:
				default:
				}
			}
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
