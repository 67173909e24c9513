package models

import "time"

// MessageKind tags the payload of a message. Only text is interpreted.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

// Message is a persisted chat message.
type Message struct {
	ID        string      `db:"id" json:"_id"`
	RoomID    string      `db:"room_id" json:"room"`
	SenderID  string      `db:"sender_id" json:"sender"`
	Content   string      `db:"content" json:"content"`
	Kind      MessageKind `db:"type" json:"type"`
	IsEdited  bool        `db:"is_edited" json:"isEdited"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`
}

// MessageView is a message with its sender resolved to the redacted projection.
type MessageView struct {
	ID        string      `json:"_id"`
	Content   string      `json:"content"`
	Room      string      `json:"room"`
	Sender    Sender      `json:"sender"`
	Kind      MessageKind `json:"type"`
	IsEdited  bool        `json:"isEdited"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// View joins the message with an already resolved sender.
func (m Message) View(sender Sender) MessageView {
	return MessageView{
		ID:        m.ID,
		Content:   m.Content,
		Room:      m.RoomID,
		Sender:    sender,
		Kind:      m.Kind,
		IsEdited:  m.IsEdited,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// HistoryCursor marks the oldest message of the previously fetched window.
// The zero value means "start from the newest message".
type HistoryCursor struct {
	CreatedAt time.Time
	ID        string
}

// IsZero reports whether the cursor points at the newest end of history.
func (c HistoryCursor) IsZero() bool {
	return c.ID == ""
}

// CursorOf returns the cursor positioned at m.
func CursorOf(m Message) HistoryCursor {
	return HistoryCursor{CreatedAt: m.CreatedAt, ID: m.ID}
}
