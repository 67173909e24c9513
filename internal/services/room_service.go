package services

import (
	"context"
	"sort"
	"strings"

	"roomchat/internal/models"
	"roomchat/internal/repositories"
)

// RoomService owns room creation and the read-side room views.
type RoomService struct {
	rooms    repositories.RoomRepository
	users    repositories.UserRepository
	messages repositories.MessageRepository
	senders  SenderSource
	history  *HistoryStreamer
}

func NewRoomService(rooms repositories.RoomRepository, users repositories.UserRepository, messages repositories.MessageRepository, senders SenderSource, history *HistoryStreamer) *RoomService {
	return &RoomService{rooms: rooms, users: users, messages: messages, senders: senders, history: history}
}

// IsMember reports whether userID participates in roomID.
func (s *RoomService) IsMember(ctx context.Context, userID, roomID string) (bool, error) {
	ok, err := s.rooms.IsParticipant(ctx, roomID, userID)
	if err != nil {
		return false, storeErr(err)
	}
	return ok, nil
}

// Direct returns the two-party room for userID and otherID, creating it once.
func (s *RoomService) Direct(ctx context.Context, userID, otherID string) (models.Room, error) {
	otherID = strings.TrimSpace(otherID)
	if otherID == "" {
		return models.Room{}, validationError("userId is required")
	}
	if otherID == userID {
		return models.Room{}, validationError("Cannot start a chat with yourself")
	}
	if _, err := s.users.GetPublicUser(ctx, otherID); err != nil {
		return models.Room{}, storeErr(err)
	}
	room, _, err := s.rooms.GetOrCreateDirectRoom(ctx, userID, otherID)
	if err != nil {
		return models.Room{}, storeErr(err)
	}
	return room, nil
}

// Group creates a named multi-party room with adminID as admin and first participant.
func (s *RoomService) Group(ctx context.Context, adminID, name string, userIDs []string) (models.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Room{}, validationError("Group name is required")
	}

	seen := map[string]bool{adminID: true}
	participants := []string{adminID}
	for _, id := range userIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		participants = append(participants, id)
	}
	if len(participants) < 2 {
		return models.Room{}, validationError("A group needs at least 2 participants")
	}

	found, err := s.users.ListParticipants(ctx, participants)
	if err != nil {
		return models.Room{}, storeErr(err)
	}
	if len(found) != len(participants) {
		return models.Room{}, notFoundError(msgUserNotFound, nil)
	}

	room, err := s.rooms.CreateGroupRoom(ctx, adminID, name, participants)
	if err != nil {
		return models.Room{}, storeErr(err)
	}
	return room, nil
}

// List returns userID's rooms with populated participants and latest
// message, most recently updated first.
func (s *RoomService) List(ctx context.Context, userID string) ([]models.RoomSummary, error) {
	rooms, err := s.rooms.ListRoomsForUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	var userIDs, lastIDs []string
	seen := map[string]bool{}
	for _, room := range rooms {
		for _, id := range room.Participants {
			if !seen[id] {
				seen[id] = true
				userIDs = append(userIDs, id)
			}
		}
		if room.LastMessageID != nil {
			lastIDs = append(lastIDs, *room.LastMessageID)
		}
	}

	participants, err := s.users.ListParticipants(ctx, userIDs)
	if err != nil {
		return nil, storeErr(err)
	}
	byUser := make(map[string]models.Participant, len(participants))
	for _, p := range participants {
		byUser[p.ID] = p
	}

	lastMessages, err := s.messages.GetMessages(ctx, lastIDs)
	if err != nil {
		return nil, storeErr(err)
	}
	byMessage := make(map[string]models.Message, len(lastMessages))
	for _, m := range lastMessages {
		byMessage[m.ID] = m
	}

	out := make([]models.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summary := models.RoomSummary{
			ID:           room.ID,
			Name:         room.Name,
			IsGroup:      room.IsGroup,
			AdminID:      room.AdminID,
			Participants: make([]models.Participant, 0, len(room.Participants)),
			UpdatedAt:    room.UpdatedAt,
		}
		for _, id := range room.Participants {
			if p, ok := byUser[id]; ok {
				summary.Participants = append(summary.Participants, p)
			}
		}
		if room.LastMessageID != nil {
			if msg, ok := byMessage[*room.LastMessageID]; ok {
				sender, err := resolveSender(ctx, s.senders, msg.SenderID)
				if err != nil {
					return nil, err
				}
				view := msg.View(sender)
				summary.LastMessage = &view
			}
		}
		out = append(out, summary)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// History returns one page of roomID's history for a member.
func (s *RoomService) History(ctx context.Context, userID, roomID, before string, limit int) ([]models.MessageView, error) {
	ok, err := s.IsMember(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, authorizationError(msgNotMember)
	}
	return s.history.Page(ctx, roomID, before, limit)
}
