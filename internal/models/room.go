package models

import "time"

// Room is a messaging scope: a direct two-party chat or a named group.
type Room struct {
	ID            string    `db:"id" json:"_id"`
	Name          *string   `db:"name" json:"name,omitempty"`
	IsGroup       bool      `db:"is_group_chat" json:"isGroupChat"`
	AdminID       *string   `db:"admin_id" json:"admin,omitempty"`
	LastMessageID *string   `db:"last_message_id" json:"lastMessage,omitempty"`
	Participants  []string  `db:"-" json:"participants"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// RoomSummary is the list view of a room with populated participants and
// latest message.
type RoomSummary struct {
	ID           string        `json:"_id"`
	Name         *string       `json:"name,omitempty"`
	IsGroup      bool          `json:"isGroupChat"`
	AdminID      *string       `json:"admin,omitempty"`
	Participants []Participant `json:"participants"`
	LastMessage  *MessageView  `json:"lastMessage,omitempty"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// DirectKey is the order-independent identity of a two-party room.
func DirectKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}
