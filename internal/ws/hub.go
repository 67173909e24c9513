package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"roomchat/internal/models"
)

// Hub fans events out to the connections subscribed to each room. Each room
// has its own lock; frames are queued under it, so every subscriber sees the
// room's broadcasts in the order they were issued.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*channel
}

type channel struct {
	mu   sync.Mutex
	subs map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*channel)}
}

// Subscribe makes roomID the client's active room, leaving any previous one,
// and returns the room it left ("" when none or unchanged). Membership must
// already have been checked.
func (h *Hub) Subscribe(c *Client, roomID string) string {
	prev := c.swapRoom(roomID)
	if prev == roomID {
		return ""
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if prev != "" {
		h.removeLocked(prev, c)
	}
	ch, ok := h.rooms[roomID]
	if !ok {
		ch = &channel{subs: make(map[*Client]struct{})}
		h.rooms[roomID] = ch
	}
	ch.mu.Lock()
	ch.subs[c] = struct{}{}
	ch.mu.Unlock()
	slog.Debug("ws subscribe", "conn_id", c.ID(), "room_id", roomID, "prev_room_id", prev)
	return prev
}

// Unsubscribe detaches the client from its active room and returns that room.
func (h *Hub) Unsubscribe(c *Client) string {
	room := c.swapRoom("")
	if room == "" {
		return ""
	}
	h.mu.Lock()
	h.removeLocked(room, c)
	h.mu.Unlock()
	slog.Debug("ws unsubscribe", "conn_id", c.ID(), "room_id", room)
	return room
}

func (h *Hub) removeLocked(roomID string, c *Client) {
	ch, ok := h.rooms[roomID]
	if !ok {
		return
	}
	ch.mu.Lock()
	delete(ch.subs, c)
	empty := len(ch.subs) == 0
	ch.mu.Unlock()
	if empty {
		delete(h.rooms, roomID)
	}
}

func (h *Hub) channel(roomID string) *channel {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[roomID]
}

// BroadcastToRoom delivers event to every connection subscribed to roomID.
func (h *Hub) BroadcastToRoom(roomID string, event models.Event) {
	h.broadcast(roomID, nil, event)
}

// BroadcastExcept delivers event to the room's subscribers other than origin.
func (h *Hub) BroadcastExcept(origin *Client, roomID string, event models.Event) {
	h.broadcast(roomID, origin, event)
}

func (h *Hub) broadcast(roomID string, skip *Client, event models.Event) {
	ch := h.channel(roomID)
	if ch == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("encode event failed", "event", event.Name, "room_id", roomID, "error", err)
		return
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	for c := range ch.subs {
		if c == skip {
			continue
		}
		// dead or slow clients drop the frame; their own teardown unsubscribes them
		c.enqueue(payload)
	}
}

// SendToConnection delivers event to exactly one connection.
func (h *Hub) SendToConnection(c *Client, event models.Event) bool {
	return c.Send(event)
}

// RoomSubscribers lists the connections currently in roomID.
func (h *Hub) RoomSubscribers(roomID string) []*Client {
	ch := h.channel(roomID)
	if ch == nil {
		return nil
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	out := make([]*Client, 0, len(ch.subs))
	for c := range ch.subs {
		out = append(out, c)
	}
	return out
}

// RoomUsers lists the distinct identities subscribed to roomID.
func (h *Hub) RoomUsers(roomID string) []models.Sender {
	seen := map[string]bool{}
	var users []models.Sender
	for _, c := range h.RoomSubscribers(roomID) {
		if seen[c.user.ID] {
			continue
		}
		seen[c.user.ID] = true
		users = append(users, c.Sender())
	}
	return users
}

// Rooms reports how many rooms have at least one subscriber.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
