package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Hub is the connection registry and room broker. Membership sets are the
// only shared mutable state in the realtime layer; everything else flows
// through per-client send channels. The hub is injected where needed and
// torn down at shutdown, never a package singleton.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]map[string]struct{}
	logger  zerolog.Logger
	closed  bool
}

// NewHub returns an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]map[string]struct{}),
		logger:  logger,
	}
}

// Register admits an authenticated connection. Room operations before
// registration are dropped.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if _, ok := h.clients[c]; !ok {
		h.clients[c] = make(map[string]struct{})
	}
}

// Join adds a connection to a room. Idempotent.
func (h *Hub) Join(c *Client, room string) {
	if room == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	memberships, ok := h.clients[c]
	if !ok {
		return
	}

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	memberships[room] = struct{}{}
}

// Leave removes a connection from one room.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if memberships, ok := h.clients[c]; ok {
		delete(memberships, room)
	}
}

// Remove drops a connection from every room it joined. Called on disconnect,
// normal or not, so membership never leaks.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range h.clients[c] {
		h.leaveLocked(c, room)
	}
	delete(h.clients, c)
}

// Publish delivers an event to every connection joined to the room.
// Fire-and-forget: a connection with a full or closed send buffer silently
// drops the event; persisted state remains the durable record.
func (h *Hub) Publish(room, event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("event encode failed")
		return
	}

	// enqueue under the read lock: it never blocks, and holding the lock
	// means a concurrent Remove cannot close a send channel mid-delivery.
	h.mu.RLock()
	for c := range h.rooms[room] {
		c.enqueue(data)
	}
	h.mu.RUnlock()
}

// Broadcast delivers an event to every registered connection, regardless of
// room membership. Used by the online/offline presence relays.
func (h *Hub) Broadcast(event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("event encode failed")
		return
	}

	h.mu.RLock()
	for c := range h.clients {
		c.enqueue(data)
	}
	h.mu.RUnlock()
}

// Shutdown closes every live connection and rejects later registrations.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	all := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		all = append(all, c)
	}
	h.clients = make(map[*Client]map[string]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.close()
	}
}

func encode(event string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Data: payload})
}
