package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"roomchat/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

// RoomRepository abstracts room persistence.
type RoomRepository interface {
	GetOrCreateDirectRoom(ctx context.Context, userID string, otherID string) (models.Room, bool, error)
	CreateGroupRoom(ctx context.Context, adminID string, name string, participantIDs []string) (models.Room, error)
	GetRoom(ctx context.Context, roomID string) (models.Room, error)
	IsParticipant(ctx context.Context, roomID string, userID string) (bool, error)
	ListRoomsForUser(ctx context.Context, userID string) ([]models.Room, error)
	ListRoomIDsForUser(ctx context.Context, userID string) ([]string, error)
	SetLastMessage(ctx context.Context, roomID string, messageID *string) error
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

const roomColumns = `id, name, is_group_chat, admin_id, last_message_id, created_at, updated_at`

// GetOrCreateDirectRoom returns the two-party room for the unordered pair,
// creating it on first use. The boolean reports whether a room was created.
func (r *RoomRepo) GetOrCreateDirectRoom(ctx context.Context, userID string, otherID string) (models.Room, bool, error) {
	if userID == otherID {
		return models.Room{}, false, errors.New("cannot create direct room with self")
	}
	key := models.DirectKey(userID, otherID)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Room{}, false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var room models.Room
	// a concurrent creator makes this insert a no-op once it commits
	err = tx.QueryRowxContext(ctx, `INSERT INTO rooms (id, is_group_chat, direct_key) VALUES ($1, FALSE, $2)
        ON CONFLICT (direct_key) DO NOTHING RETURNING `+roomColumns, uuid.NewString(), key).StructScan(&room)
	if errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		err = nil
		existing, getErr := r.getRoomWhere(ctx, `direct_key=$1`, key)
		return existing, false, getErr
	}
	if err != nil {
		return models.Room{}, false, err
	}

	for i, id := range []string{userID, otherID} {
		if _, err = tx.ExecContext(ctx, `INSERT INTO room_participants (room_id, user_id, position) VALUES ($1, $2, $3)`, room.ID, id, i); err != nil {
			return models.Room{}, false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Room{}, false, err
	}
	room.Participants = []string{userID, otherID}
	return room, true, nil
}

// CreateGroupRoom creates a named room and its participants atomically.
// participantIDs must already contain the admin and be deduplicated.
func (r *RoomRepo) CreateGroupRoom(ctx context.Context, adminID string, name string, participantIDs []string) (models.Room, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var room models.Room
	if err = tx.QueryRowxContext(ctx, `INSERT INTO rooms (id, name, is_group_chat, admin_id) VALUES ($1, $2, TRUE, $3) RETURNING `+roomColumns,
		uuid.NewString(), name, adminID).StructScan(&room); err != nil {
		return models.Room{}, err
	}

	for i, id := range participantIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO room_participants (room_id, user_id, position) VALUES ($1, $2, $3)`, room.ID, id, i); err != nil {
			return models.Room{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Room{}, err
	}
	room.Participants = append([]string(nil), participantIDs...)
	return room, nil
}

// GetRoom fetches a room with its ordered participant ids.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	return r.getRoomWhere(ctx, `id=$1`, roomID)
}

func (r *RoomRepo) getRoomWhere(ctx context.Context, where string, arg any) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return models.Room{}, err
	}
	if err := r.db.SelectContext(ctx, &room.Participants, `SELECT user_id FROM room_participants WHERE room_id=$1 ORDER BY position ASC`, room.ID); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// IsParticipant checks membership.
func (r *RoomRepo) IsParticipant(ctx context.Context, roomID string, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM room_participants WHERE room_id=$1 AND user_id=$2)`, roomID, userID)
	return exists, err
}

// ListRoomsForUser returns rooms that include the user, most recently updated first.
func (r *RoomRepo) ListRoomsForUser(ctx context.Context, userID string) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.SelectContext(ctx, &rooms, `SELECT r.id, r.name, r.is_group_chat, r.admin_id, r.last_message_id, r.created_at, r.updated_at
        FROM rooms r INNER JOIN room_participants rp ON rp.room_id = r.id
        WHERE rp.user_id=$1 ORDER BY r.updated_at DESC`, userID)
	if err != nil || len(rooms) == 0 {
		return rooms, err
	}

	ids := make([]string, 0, len(rooms))
	for _, room := range rooms {
		ids = append(ids, room.ID)
	}
	var links []struct {
		RoomID string `db:"room_id"`
		UserID string `db:"user_id"`
	}
	if err := r.db.SelectContext(ctx, &links, `SELECT room_id, user_id FROM room_participants WHERE room_id = ANY($1) ORDER BY room_id, position ASC`, pq.Array(ids)); err != nil {
		return nil, err
	}
	byRoom := make(map[string][]string, len(rooms))
	for _, l := range links {
		byRoom[l.RoomID] = append(byRoom[l.RoomID], l.UserID)
	}
	for i := range rooms {
		rooms[i].Participants = byRoom[rooms[i].ID]
	}
	return rooms, nil
}

// ListRoomIDsForUser returns the ids of every room the user belongs to.
func (r *RoomRepo) ListRoomIDsForUser(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.SelectContext(ctx, &ids, `SELECT room_id FROM room_participants WHERE user_id=$1`, userID)
	return ids, err
}

// SetLastMessage moves the latest-message pointer; nil clears it.
func (r *RoomRepo) SetLastMessage(ctx context.Context, roomID string, messageID *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE rooms SET last_message_id=$2, updated_at=NOW() WHERE id=$1`, roomID, messageID)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrRoomNotFound)
}
