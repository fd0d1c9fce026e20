package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs streams run events to c until the peer goes away. initial, when
// set, is sent first so a late watcher sees the current status.
func ServeWs(hub *Hub, c *websocket.Conn, runId string, initial []byte) {
	client := &Client{Hub: hub, Conn: c, RunId: runId, Send: make(chan []byte, 256)}
	client.Hub.register <- client
	if initial != nil {
		client.Send <- initial
	}

	go client.writePump()
	client.readPump()
}
