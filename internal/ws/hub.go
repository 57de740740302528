package ws

import (
	"sync"

	"pesan/internal/metrics"
	"pesan/internal/realtime"
)

// Hub manages active connections grouped two ways: by user (the private
// channel every connection implicitly joins) and by conversation room
// (explicit join_conversation/leave_conversation subscriptions). It is the
// process-wide realtime.Emitter.
type Hub struct {
	mu    sync.RWMutex
	users map[int64]map[*Client]struct{}
	rooms map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		users: make(map[int64]map[*Client]struct{}),
		rooms: make(map[int64]map[*Client]struct{}),
	}
}

var _ realtime.Emitter = (*Hub)(nil)

// Add registers a connection on its user channel.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.users[c.UserID] == nil {
		h.users[c.UserID] = make(map[*Client]struct{})
	}
	h.users[c.UserID][c] = struct{}{}
	metrics.OpenConnections.Inc()
}

// Remove drops a connection from its user channel and from every room.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.users[c.UserID]; ok {
		if _, member := conns[c]; member {
			delete(conns, c)
			metrics.OpenConnections.Dec()
			if len(conns) == 0 {
				delete(h.users, c.UserID)
			}
		}
	}
	for id, room := range h.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, id)
		}
	}
}

// JoinRoom subscribes a connection to a conversation room.
func (h *Hub) JoinRoom(c *Client, conversationID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[conversationID] == nil {
		h.rooms[conversationID] = make(map[*Client]struct{})
	}
	h.rooms[conversationID][c] = struct{}{}
}

// LeaveRoom unsubscribes a connection from a conversation room.
func (h *Hub) LeaveRoom(c *Client, conversationID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[conversationID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

func (h *Hub) ToConversation(conversationID int64, event string, payload any) {
	h.emitRoom(conversationID, -1, event, payload)
}

func (h *Hub) ToConversationExcept(conversationID, exceptUserID int64, event string, payload any) {
	h.emitRoom(conversationID, exceptUserID, event, payload)
}

func (h *Hub) emitRoom(conversationID, exceptUserID int64, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	metrics.EventsEmitted.WithLabelValues(event).Inc()
	for c := range h.rooms[conversationID] {
		if c.UserID == exceptUserID {
			continue
		}
		if err := c.Send(event, payload); err != nil {
			// stale conn; removal happens when its read loop exits
			continue
		}
	}
}

// ToUser sends to every connection of the user. A user with no connections
// silently absorbs the event.
func (h *Hub) ToUser(userID int64, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	metrics.EventsEmitted.WithLabelValues(event).Inc()
	for c := range h.users[userID] {
		if err := c.Send(event, payload); err != nil {
			continue
		}
	}
}

// UserInRoom reports whether any of the user's connections is subscribed to
// the conversation's room.
func (h *Hub) UserInRoom(conversationID, userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[conversationID] {
		if c.UserID == userID {
			return true
		}
	}
	return false
}
