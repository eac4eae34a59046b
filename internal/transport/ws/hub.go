package ws

import (
	"sync"
)

type Conn interface {
	Send(msg Message) error
	Close() error
}

// Hub fans events out to the connections currently joined to a room.
// Delivery is best-effort; a connection that is already gone by delivery
// time is silently skipped.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{} // room -> set of connections
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Conn]struct{})}
}

func (h *Hub) Add(room string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[room]
	if !ok {
		rs = make(map[Conn]struct{})
		h.rooms[room] = rs
	}
	rs[c] = struct{}{}
}

func (h *Hub) Remove(room string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.rooms[room]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast delivers msg to every connection joined to room.
func (h *Hub) Broadcast(room string, msg Message) {
	h.broadcast(room, msg, nil)
}

// BroadcastExcept delivers msg to every connection joined to room but the
// originating one. Used for typing notices, never for message content.
func (h *Hub) BroadcastExcept(room string, msg Message, except Conn) {
	h.broadcast(room, msg, except)
}

func (h *Hub) broadcast(room string, msg Message, except Conn) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		if c == except {
			continue
		}
		_ = c.Send(msg) // best-effort
	}
}
