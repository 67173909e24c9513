package models

import "fmt"

// EventName identifies a websocket frame in either direction.
type EventName string

// Client -> server.
const (
	EventJoinRoom      EventName = "joinRoom"
	EventLeaveRoom     EventName = "leaveRoom"
	EventSendMessage   EventName = "sendMessage"
	EventEditMessage   EventName = "editMessage"
	EventDeleteMessage EventName = "deleteMessage"
	EventTyping        EventName = "typing"
)

// Server -> client.
const (
	EventUserJoined             EventName = "userJoined"
	EventRoomUsers              EventName = "roomUsers"
	EventMessageHistoryBatch    EventName = "messageHistoryBatch"
	EventMessageHistoryComplete EventName = "messageHistoryComplete"
	EventNewMessage             EventName = "newMessage"
	EventMessageUpdated         EventName = "messageUpdated"
	EventMessageDeleted         EventName = "messageDeleted"
	EventUserTyping             EventName = "userTyping"
	EventUserLeft               EventName = "userLeft"
	EventError                  EventName = "error"
)

// Event is an outbound frame. Data is always one of the payload types below.
type Event struct {
	Name EventName `json:"event"`
	Data any       `json:"data"`
}

type UserJoinedPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type UserLeftPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type RoomUsersPayload struct {
	RoomID string   `json:"roomId"`
	Users  []Sender `json:"users"`
}

type HistoryBatchPayload struct {
	RoomID   string        `json:"roomId"`
	Messages []MessageView `json:"messages"`
}

type HistoryCompletePayload struct {
	RoomID string `json:"roomId"`
}

type MessageDeletedPayload struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
}

type UserTypingPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func UserJoined(user Sender) Event {
	return Event{Name: EventUserJoined, Data: UserJoinedPayload{
		UserID:   user.ID,
		Username: user.Username,
		Message:  fmt.Sprintf("%s has joined the room", user.Username),
	}}
}

func UserLeft(user Sender) Event {
	return Event{Name: EventUserLeft, Data: UserLeftPayload{
		UserID:   user.ID,
		Username: user.Username,
		Message:  fmt.Sprintf("%s has left the chat", user.Username),
	}}
}

func RoomUsers(roomID string, users []Sender) Event {
	if users == nil {
		users = []Sender{}
	}
	return Event{Name: EventRoomUsers, Data: RoomUsersPayload{RoomID: roomID, Users: users}}
}

func HistoryBatch(roomID string, messages []MessageView) Event {
	return Event{Name: EventMessageHistoryBatch, Data: HistoryBatchPayload{RoomID: roomID, Messages: messages}}
}

func HistoryComplete(roomID string) Event {
	return Event{Name: EventMessageHistoryComplete, Data: HistoryCompletePayload{RoomID: roomID}}
}

func NewMessage(view MessageView) Event {
	return Event{Name: EventNewMessage, Data: view}
}

func MessageUpdated(view MessageView) Event {
	return Event{Name: EventMessageUpdated, Data: view}
}

func MessageDeleted(messageID, roomID string) Event {
	return Event{Name: EventMessageDeleted, Data: MessageDeletedPayload{MessageID: messageID, RoomID: roomID}}
}

func UserTyping(user Sender, isTyping bool) Event {
	return Event{Name: EventUserTyping, Data: UserTypingPayload{UserID: user.ID, Username: user.Username, IsTyping: isTyping}}
}

func ErrorEvent(message string) Event {
	return Event{Name: EventError, Data: ErrorPayload{Message: message}}
}

// Inbound payloads. Validation tags are checked before dispatch.

type JoinRoomRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}

type LeaveRoomRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}

type SendMessageRequest struct {
	RoomID  string `json:"roomId" validate:"required"`
	Content string `json:"content"`
}

type EditMessageRequest struct {
	MessageID  string `json:"messageId" validate:"required"`
	NewContent string `json:"newContent"`
}

type DeleteMessageRequest struct {
	MessageID string `json:"messageId" validate:"required"`
}

type TypingRequest struct {
	RoomID   string `json:"roomId" validate:"required"`
	IsTyping bool   `json:"isTyping"`
}
