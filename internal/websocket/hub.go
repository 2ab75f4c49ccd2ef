// Package websocket pushes catalog change notifications to connected
// browsers.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is the JSON frame sent to every client.
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

type Hub struct {
	clients    map[*Client]bool
	mu         sync.RWMutex
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves registrations until ctx is cancelled, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)
		case client := <-h.Unregister:
			h.unregisterClient(client)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	log.Debug().Str("remote", client.remote).Int("clients", len(h.clients)).Msg("websocket client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		log.Debug().Str("remote", client.remote).Int("clients", len(h.clients)).Msg("websocket client unregistered")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishEvent broadcasts an event to all clients. Slow clients miss events
// instead of blocking the caller.
func (h *Hub) PublishEvent(eventType string, payload interface{}) {
	data, err := json.Marshal(Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("failed to encode websocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			log.Warn().Str("remote", client.remote).Msg("websocket send buffer is full, dropping event")
		}
	}
}
