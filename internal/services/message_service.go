package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"roomchat/internal/lru"
	"roomchat/internal/models"
	"roomchat/internal/observability"
	"roomchat/internal/repositories"
)

// Broadcaster delivers an event to every connection subscribed to a room.
type Broadcaster interface {
	BroadcastToRoom(roomID string, event models.Event)
}

// MembershipChecker answers the room authorization question for every
// room-scoped operation.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID, roomID string) (bool, error)
}

// SenderSource resolves the redacted sender projection for a user id.
type SenderSource interface {
	Sender(ctx context.Context, userID string) (models.Sender, error)
}

// MessageService creates, edits and deletes messages, keeps each room's
// latest-message pointer current and fans the result out to the room.
type MessageService struct {
	rooms    repositories.RoomRepository
	messages repositories.MessageRepository
	users    repositories.UserRepository
	members  MembershipChecker
	hub      Broadcaster
	senders  *lru.Memo[string, models.Sender]
	locks    *roomLocks
}

// NewMessageService wires the lifecycle manager. senderCacheSize bounds the
// redacted-sender cache; zero or less disables it.
func NewMessageService(rooms repositories.RoomRepository, messages repositories.MessageRepository, users repositories.UserRepository, members MembershipChecker, hub Broadcaster, senderCacheSize int) *MessageService {
	s := &MessageService{
		rooms:    rooms,
		messages: messages,
		users:    users,
		members:  members,
		hub:      hub,
		locks:    newRoomLocks(),
	}
	s.senders = lru.Memoize(s.loadSender, senderCacheSize, func(id string) (string, error) {
		if id == "" {
			return "", errors.New("empty sender id")
		}
		return id, nil
	}, lru.WithObserver(observability.ObserveCacheLookup))
	return s
}

func (s *MessageService) loadSender(ctx context.Context, userID string) (models.Sender, error) {
	user, err := s.users.GetPublicUser(ctx, userID)
	if err != nil {
		return models.Sender{}, err
	}
	return user.Sender(), nil
}

// Sender returns the cached redacted projection for userID.
func (s *MessageService) Sender(ctx context.Context, userID string) (models.Sender, error) {
	return s.senders.Call(ctx, userID)
}

// InvalidateSender drops the cached projection after the user record changed.
func (s *MessageService) InvalidateSender(userID string) {
	s.senders.InvalidateArgs(userID)
}

// SenderCache exposes the memoized projections for diagnostics.
func (s *MessageService) SenderCache() *lru.Cache[models.Sender] {
	return s.senders.Cache()
}

func (s *MessageService) requireMember(ctx context.Context, userID, roomID string) error {
	ok, err := s.members.IsMember(ctx, userID, roomID)
	if err != nil {
		return storeErr(err)
	}
	if !ok {
		return authorizationError(msgNotMember)
	}
	return nil
}

// Create persists a text message from senderID in roomID, points the room at
// it and broadcasts newMessage.
func (s *MessageService) Create(ctx context.Context, senderID, roomID, content string) (models.MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.MessageView{}, validationError(msgEmptyContent)
	}
	if err := s.requireMember(ctx, senderID, roomID); err != nil {
		return models.MessageView{}, err
	}
	sender, err := s.Sender(ctx, senderID)
	if err != nil {
		return models.MessageView{}, storeErr(err)
	}

	unlock := s.locks.lock(roomID)
	defer unlock()

	msg, err := s.messages.CreateMessage(ctx, models.Message{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
		Kind:     models.KindText,
	})
	if err != nil {
		return models.MessageView{}, storeErr(err)
	}
	if err := s.rooms.SetLastMessage(ctx, roomID, &msg.ID); err != nil {
		// the message is stored; the pointer can be recomputed from history
		slog.Warn("set latest message failed", "room_id", roomID, "message_id", msg.ID, "error", err)
	}

	view := msg.View(sender)
	s.hub.BroadcastToRoom(roomID, models.NewMessage(view))
	observability.IncMessageOp("create")
	return view, nil
}

// loadOwned fetches messageID and checks that userID may modify it.
func (s *MessageService) loadOwned(ctx context.Context, userID, messageID string) (models.Message, error) {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, storeErr(err)
	}
	if err := s.requireMember(ctx, userID, msg.RoomID); err != nil {
		return models.Message{}, err
	}
	if msg.SenderID != userID {
		return models.Message{}, authorizationError(msgNotMessageOwner)
	}
	return msg, nil
}

// Edit replaces the content of a message owned by editorID and broadcasts
// messageUpdated. Concurrent edits resolve last-write-wins.
func (s *MessageService) Edit(ctx context.Context, editorID, messageID, newContent string) (models.MessageView, error) {
	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return models.MessageView{}, validationError(msgEmptyContent)
	}
	msg, err := s.loadOwned(ctx, editorID, messageID)
	if err != nil {
		return models.MessageView{}, err
	}
	sender, err := s.Sender(ctx, editorID)
	if err != nil {
		return models.MessageView{}, storeErr(err)
	}

	unlock := s.locks.lock(msg.RoomID)
	defer unlock()

	updated, err := s.messages.UpdateContent(ctx, messageID, newContent)
	if err != nil {
		return models.MessageView{}, storeErr(err)
	}

	view := updated.View(sender)
	s.hub.BroadcastToRoom(updated.RoomID, models.MessageUpdated(view))
	observability.IncMessageOp("edit")
	return view, nil
}

// Delete removes a message owned by userID, repoints the room if it was the
// latest one and broadcasts messageDeleted.
func (s *MessageService) Delete(ctx context.Context, userID, messageID string) error {
	msg, err := s.loadOwned(ctx, userID, messageID)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(msg.RoomID)
	defer unlock()

	room, err := s.rooms.GetRoom(ctx, msg.RoomID)
	if err != nil {
		return storeErr(err)
	}
	if err := s.messages.DeleteMessage(ctx, messageID); err != nil {
		return storeErr(err)
	}
	if room.LastMessageID != nil && *room.LastMessageID == messageID {
		if err := s.repointLatest(ctx, msg.RoomID); err != nil {
			slog.Warn("recompute latest message failed", "room_id", msg.RoomID, "error", err)
		}
	}

	s.hub.BroadcastToRoom(msg.RoomID, models.MessageDeleted(messageID, msg.RoomID))
	observability.IncMessageOp("delete")
	return nil
}

func (s *MessageService) repointLatest(ctx context.Context, roomID string) error {
	latest, err := s.messages.LatestMessage(ctx, roomID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return s.rooms.SetLastMessage(ctx, roomID, nil)
	}
	if err != nil {
		return err
	}
	return s.rooms.SetLastMessage(ctx, roomID, &latest.ID)
}
