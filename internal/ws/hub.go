// Package ws streams live queue snapshots to websocket subscribers.
// Clients are grouped by server name; each group receives that server's
// snapshot on every streamer tick.
package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Hub manages websocket connections and their server-name groups.
type Hub struct {
	clients        map[*Client]bool
	groups         map[string]map[*Client]bool // server name -> clients
	register       chan *Client
	unregister     chan *Client
	broadcast      chan *GroupMessage
	allowedOrigins []string
	mu             sync.RWMutex
	logger         *zap.Logger
}

// GroupMessage is one payload addressed to a server group.
type GroupMessage struct {
	Group   string
	Payload []byte
}

// NewHub creates a hub. allowedOrigins gates the websocket upgrade the
// same way the HTTP CORS layer gates fetches; empty allows none.
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	return &Hub{
		clients:        make(map[*Client]bool),
		groups:         make(map[string]map[*Client]bool),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan *GroupMessage, 256),
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// Run processes hub events. Call in a goroutine; returns when ctx is
// cancelled, after closing every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub shutting down")
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.groups[client.server] == nil {
				h.groups[client.server] = make(map[*Client]bool)
			}
			h.groups[client.server][client] = true
			h.mu.Unlock()
			h.logger.Debug("ws client registered",
				zap.String("connID", client.connID),
				zap.String("server", client.server),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				if clients, ok := h.groups[client.server]; ok {
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.groups, client.server)
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("ws client unregistered",
				zap.String("connID", client.connID),
				zap.String("server", client.server),
			)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg *GroupMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.groups[msg.Group] {
		select {
		case client.send <- msg.Payload:
		default:
			// Buffer full; the client is too slow to keep.
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.groups = make(map[string]map[*Client]bool)
}

// ActiveServers returns the server names with at least one subscriber.
// The streamer only builds snapshots someone is listening for.
func (h *Hub) ActiveServers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	servers := make([]string, 0, len(h.groups))
	for server, clients := range h.groups {
		if len(clients) > 0 {
			servers = append(servers, server)
		}
	}
	return servers
}

// Broadcast queues a payload for every subscriber of one server.
func (h *Hub) Broadcast(server string, payload []byte) {
	h.broadcast <- &GroupMessage{Group: server, Payload: payload}
}
