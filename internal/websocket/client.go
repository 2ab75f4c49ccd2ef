package websocket

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
)

var errHubStopped = errors.New("websocket hub stopped")

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	remote string
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		remote: conn.RemoteAddr().String(),
	}
}

// ReadPump drains incoming frames until the peer goes away.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.Unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) WritePump() {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// Serve upgrades the request and attaches the connection to the hub.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(h, conn)
	select {
	case h.Register <- client:
	case <-h.done:
		conn.Close()
		return errHubStopped
	}

	go client.ReadPump()
	go client.WritePump()
	return nil
}
