package realtime

import (
	"time"

	"github.com/gorilla/websocket"
)

const sendBufferSize = 16

// Conn is one tracked realtime connection. lastActivity is guarded by
// the hub mutex; everything else is set once at registration.
type Conn struct {
	id           string
	ws           *websocket.Conn
	send         chan Event
	connectedAt  time.Time
	lastActivity time.Time
	closed       bool
}

// ID returns the connection identifier handed out in CONNECTION_SUCCESS.
func (c *Conn) ID() string { return c.id }

// readPump processes inbound events in arrival order. Any read error
// (clean close included) unregisters the connection.
func (c *Conn) readPump(h *Hub) {
	defer h.unregister(c)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(h.pingTimeout))
	c.ws.SetPongHandler(func(string) error {
		h.touch(c)
		return c.ws.SetReadDeadline(time.Now().Add(h.pingTimeout))
	})

	for {
		var evt Event
		if err := c.ws.ReadJSON(&evt); err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(h.pingTimeout))
		h.touch(c)
		h.dispatch(c, evt)
	}
}

// writePump serializes all writes to the socket: queued events plus
// the periodic ping. It exits when the send channel is closed by the
// hub.
func (c *Conn) writePump(h *Hub) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
