package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches conn to the hub and blocks until the peer goes away.
func ServeWs(hub *Hub, conn *websocket.Conn, userId string) {
	client := &Client{Hub: hub, Conn: conn, UserId: userId, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
