// SPDX-License-Identifier: MPL-2.0

package inspector

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub is the websocket subscriber set: every currently-connected dashboard
// client that should receive a copy of each logged RPCEvent. It implements
// subscriberSet.
type Hub struct {
	mu   sync.Mutex
	subs map[*websocket.Conn]struct{}
}

// NewHub constructs an empty subscriber hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*websocket.Conn]struct{})}
}

// Add registers a websocket connection as a subscriber.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[conn] = struct{}{}
}

// Remove unregisters a websocket connection, closing it.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[conn]; ok {
		delete(h.subs, conn)
		_ = conn.Close()
	}
}

// Broadcast writes envelope to every subscriber; a subscriber whose write
// fails is removed rather than retried, per spec §7.
func (h *Hub) Broadcast(envelope []byte) {
	h.mu.Lock()
	dead := make([]*websocket.Conn, 0)
	for conn := range h.subs {
		if err := conn.WriteMessage(websocket.TextMessage, envelope); err != nil {
			dead = append(dead, conn)
		}
	}
	for _, conn := range dead {
		delete(h.subs, conn)
	}
	h.mu.Unlock()

	for _, conn := range dead {
		_ = conn.Close()
	}
}

// Count returns the current number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
