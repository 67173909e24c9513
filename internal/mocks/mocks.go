package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"roomchat/internal/models"
	"roomchat/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	var out models.User
	switch val := args.Get(0).(type) {
	case func(context.Context, models.User) models.User:
		out = val(ctx, user)
	case models.User:
		out = val
	}
	return out, args.Error(1)
}

func (m *UserRepositoryMock) GetPublicUser(ctx context.Context, userID string) (models.PublicUser, error) {
	args := m.Called(ctx, userID)
	var out models.PublicUser
	if val := args.Get(0); val != nil {
		out = val.(models.PublicUser)
	}
	return out, args.Error(1)
}

func (m *UserRepositoryMock) FindByLogin(ctx context.Context, emailOrUsername string) (models.User, error) {
	args := m.Called(ctx, emailOrUsername)
	var out models.User
	if val := args.Get(0); val != nil {
		out = val.(models.User)
	}
	return out, args.Error(1)
}

func (m *UserRepositoryMock) SearchUsers(ctx context.Context, keyword string, excludeID string) ([]models.PublicUser, error) {
	args := m.Called(ctx, keyword, excludeID)
	var out []models.PublicUser
	if val := args.Get(0); val != nil {
		out = val.([]models.PublicUser)
	}
	return out, args.Error(1)
}

func (m *UserRepositoryMock) ListParticipants(ctx context.Context, userIDs []string) ([]models.Participant, error) {
	args := m.Called(ctx, userIDs)
	var out []models.Participant
	if val := args.Get(0); val != nil {
		out = val.([]models.Participant)
	}
	return out, args.Error(1)
}

func (m *UserRepositoryMock) SetPresence(ctx context.Context, userID string, online bool, at time.Time) error {
	args := m.Called(ctx, userID, online, at)
	return args.Error(0)
}

func (m *UserRepositoryMock) UpdateAvatar(ctx context.Context, userID string, avatar string) (models.PublicUser, error) {
	args := m.Called(ctx, userID, avatar)
	var out models.PublicUser
	if val := args.Get(0); val != nil {
		out = val.(models.PublicUser)
	}
	return out, args.Error(1)
}

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) GetOrCreateDirectRoom(ctx context.Context, userID string, otherID string) (models.Room, bool, error) {
	args := m.Called(ctx, userID, otherID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Bool(1), args.Error(2)
}

func (m *RoomRepositoryMock) CreateGroupRoom(ctx context.Context, adminID string, name string, participantIDs []string) (models.Room, error) {
	args := m.Called(ctx, adminID, name, participantIDs)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	args := m.Called(ctx, roomID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) IsParticipant(ctx context.Context, roomID string, userID string) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepositoryMock) ListRoomsForUser(ctx context.Context, userID string) ([]models.Room, error) {
	args := m.Called(ctx, userID)
	var rooms []models.Room
	if val := args.Get(0); val != nil {
		rooms = val.([]models.Room)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepositoryMock) ListRoomIDsForUser(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

func (m *RoomRepositoryMock) SetLastMessage(ctx context.Context, roomID string, messageID *string) error {
	args := m.Called(ctx, roomID, messageID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessages(ctx context.Context, messageIDs []string) ([]models.Message, error) {
	args := m.Called(ctx, messageIDs)
	var out []models.Message
	if val := args.Get(0); val != nil {
		out = val.([]models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateContent(ctx context.Context, messageID string, content string) (models.Message, error) {
	args := m.Called(ctx, messageID, content)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) DeleteMessage(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) LatestMessage(ctx context.Context, roomID string) (models.Message, error) {
	args := m.Called(ctx, roomID)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessagesBefore(ctx context.Context, roomID string, cursor models.HistoryCursor, limit int) ([]models.Message, error) {
	args := m.Called(ctx, roomID, cursor, limit)
	var out []models.Message
	if val := args.Get(0); val != nil {
		out = val.([]models.Message)
	}
	return out, args.Error(1)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
