package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"roomchat/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for room messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	GetMessages(ctx context.Context, messageIDs []string) ([]models.Message, error)
	UpdateContent(ctx context.Context, messageID string, content string) (models.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	LatestMessage(ctx context.Context, roomID string) (models.Message, error)
	ListMessagesBefore(ctx context.Context, roomID string, cursor models.HistoryCursor, limit int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, room_id, sender_id, content, type, is_edited, created_at, updated_at`

// CreateMessage stores a message; timestamps come from the database.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (id, room_id, sender_id, content, type) VALUES ($1, $2, $3, $4, $5) RETURNING `+messageColumns,
		msg.ID, msg.RoomID, msg.SenderID, msg.Content, msg.Kind).StructScan(&msg)
	return msg, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// GetMessages retrieves the messages that still exist among messageIDs.
func (r *MessageRepo) GetMessages(ctx context.Context, messageIDs []string) ([]models.Message, error) {
	msgs := []models.Message{}
	if len(messageIDs) == 0 {
		return msgs, nil
	}
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages WHERE id = ANY($1)`, pq.Array(messageIDs))
	return msgs, err
}

// UpdateContent replaces the content and flags the message as edited.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID string, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `UPDATE messages SET content=$2, is_edited=TRUE, updated_at=NOW() WHERE id=$1 RETURNING `+messageColumns,
		messageID, content).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// DeleteMessage removes the message permanently.
func (r *MessageRepo) DeleteMessage(ctx context.Context, messageID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrMessageNotFound)
}

// LatestMessage returns the most recent message of the room or ErrMessageNotFound.
func (r *MessageRepo) LatestMessage(ctx context.Context, roomID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE room_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListMessagesBefore returns up to limit messages strictly older than cursor,
// newest first. A zero cursor starts from the newest message.
func (r *MessageRepo) ListMessagesBefore(ctx context.Context, roomID string, cursor models.HistoryCursor, limit int) ([]models.Message, error) {
	msgs := []models.Message{}
	if cursor.IsZero() {
		err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages WHERE room_id=$1
            ORDER BY created_at DESC, id DESC LIMIT $2`, roomID, limit)
		return msgs, err
	}
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages WHERE room_id=$1 AND (created_at, id) < ($2, $3)
        ORDER BY created_at DESC, id DESC LIMIT $4`, roomID, cursor.CreatedAt, cursor.ID, limit)
	return msgs, err
}
