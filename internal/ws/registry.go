package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MembershipStore answers room membership from persistent state.
type MembershipStore interface {
	IsParticipant(ctx context.Context, roomID, userID string) (bool, error)
	ListRoomIDsForUser(ctx context.Context, userID string) ([]string, error)
}

// PresenceStore persists the online flag and last-seen stamp.
type PresenceStore interface {
	SetPresence(ctx context.Context, userID string, online bool, at time.Time) error
}

// Registry binds authenticated identities to their live connection and owns
// presence transitions.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Client

	rooms    MembershipStore
	presence PresenceStore
	now      func() time.Time
}

func NewRegistry(rooms MembershipStore, presence PresenceStore) *Registry {
	return &Registry{
		byUser:   make(map[string]*Client),
		rooms:    rooms,
		presence: presence,
		now:      time.Now,
	}
}

// Activate binds c to its identity and marks the identity online. A previous
// binding for the same identity is superseded and returned.
func (r *Registry) Activate(ctx context.Context, c *Client) (prev *Client) {
	userID := c.user.ID
	r.mu.Lock()
	prev = r.byUser[userID]
	r.byUser[userID] = c
	r.mu.Unlock()

	if err := r.presence.SetPresence(ctx, userID, true, r.now()); err != nil {
		slog.Warn("mark online failed", "user_id", userID, "error", err)
	}
	return prev
}

// Deactivate removes c's binding, marks the identity offline and returns the
// identity's rooms so the caller can announce the departure. ok is false when
// c is not the current binding, e.g. after a reconnect superseded it.
func (r *Registry) Deactivate(ctx context.Context, c *Client) (rooms []string, ok bool) {
	userID := c.user.ID
	r.mu.Lock()
	if r.byUser[userID] != c {
		r.mu.Unlock()
		return nil, false
	}
	delete(r.byUser, userID)
	r.mu.Unlock()

	if err := r.presence.SetPresence(ctx, userID, false, r.now()); err != nil {
		slog.Warn("mark offline failed", "user_id", userID, "error", err)
	}
	rooms, err := r.rooms.ListRoomIDsForUser(ctx, userID)
	if err != nil {
		slog.Warn("list rooms on disconnect failed", "user_id", userID, "error", err)
		return nil, true
	}
	return rooms, true
}

// IsMember is the authorization check for every room-scoped operation.
func (r *Registry) IsMember(ctx context.Context, userID, roomID string) (bool, error) {
	return r.rooms.IsParticipant(ctx, roomID, userID)
}

// Lookup returns the live connection bound to userID.
func (r *Registry) Lookup(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// Online counts bound identities.
func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
