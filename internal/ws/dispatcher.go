package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"roomchat/internal/models"
	"roomchat/internal/observability"
	"roomchat/internal/services"
)

// MessageOps is the message lifecycle used by the dispatcher.
type MessageOps interface {
	Create(ctx context.Context, senderID, roomID, content string) (models.MessageView, error)
	Edit(ctx context.Context, editorID, messageID, newContent string) (models.MessageView, error)
	Delete(ctx context.Context, userID, messageID string) error
}

// HistoryOps streams a room's history into a sink.
type HistoryOps interface {
	Stream(ctx context.Context, roomID string, sink services.HistorySink) (int, error)
}

// inbound is the client frame envelope.
type inbound struct {
	Event models.EventName `json:"event"`
	Data  json.RawMessage  `json:"data"`
}

var errMalformed = &services.Error{Kind: services.KindValidation, Msg: "Malformed event payload"}

// Dispatcher decodes, validates and executes inbound client events. Calls for
// one client are made sequentially from its read loop.
type Dispatcher struct {
	hub      *Hub
	registry *Registry
	messages MessageOps
	history  HistoryOps
	validate *validator.Validate
	tracer   trace.Tracer
}

func NewDispatcher(hub *Hub, registry *Registry, messages MessageOps, history HistoryOps) *Dispatcher {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Dispatcher{
		hub:      hub,
		registry: registry,
		messages: messages,
		history:  history,
		validate: validate,
		tracer:   otel.Tracer("roomchat/ws"),
	}
}

// Dispatch handles one frame. Failures become a scoped error event on c;
// they never close the connection.
func (d *Dispatcher) Dispatch(ctx context.Context, c *Client, frame []byte) {
	var in inbound
	if err := json.Unmarshal(frame, &in); err != nil || in.Event == "" {
		d.fail(c, "", errMalformed, err)
		return
	}

	ctx, span := d.tracer.Start(ctx, "ws."+string(in.Event), trace.WithAttributes(
		attribute.String("ws.conn_id", c.ID()),
		attribute.String("user.id", c.user.ID),
	))
	defer span.End()

	observability.IncWSEvent("room", string(in.Event))
	if err := d.route(ctx, c, in); err != nil {
		span.RecordError(err)
		d.fail(c, in.Event, err, nil)
	}
}

func (d *Dispatcher) route(ctx context.Context, c *Client, in inbound) error {
	switch in.Event {
	case models.EventJoinRoom:
		var req models.JoinRoomRequest
		if err := d.decode(in.Data, &req); err != nil {
			return err
		}
		return d.joinRoom(ctx, c, req.RoomID)
	case models.EventLeaveRoom:
		var req models.LeaveRoomRequest
		if err := d.decode(in.Data, &req); err != nil {
			return err
		}
		return d.leaveRoom(c, req.RoomID)
	case models.EventSendMessage:
		var req models.SendMessageRequest
		if err := d.decode(in.Data, &req); err != nil {
			return err
		}
		_, err := d.messages.Create(ctx, c.user.ID, req.RoomID, req.Content)
		return err
	case models.EventEditMessage:
		var req models.EditMessageRequest
		if err := d.decode(in.Data, &req); err != nil {
			return err
		}
		_, err := d.messages.Edit(ctx, c.user.ID, req.MessageID, req.NewContent)
		return err
	case models.EventDeleteMessage:
		var req models.DeleteMessageRequest
		if err := d.decode(in.Data, &req); err != nil {
			return err
		}
		return d.messages.Delete(ctx, c.user.ID, req.MessageID)
	case models.EventTyping:
		var req models.TypingRequest
		if err := d.decode(in.Data, &req); err != nil {
			return err
		}
		return d.typing(ctx, c, req)
	default:
		return &services.Error{Kind: services.KindValidation, Msg: "Unknown event " + string(in.Event)}
	}
}

func (d *Dispatcher) decode(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return errMalformed
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &services.Error{Kind: services.KindValidation, Msg: errMalformed.Msg, Err: err}
	}
	if err := d.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &services.Error{Kind: services.KindValidation, Msg: verrs[0].Field() + " is required", Err: err}
		}
		return &services.Error{Kind: services.KindValidation, Msg: errMalformed.Msg, Err: err}
	}
	return nil
}

func (d *Dispatcher) requireMember(ctx context.Context, c *Client, roomID string) error {
	ok, err := d.registry.IsMember(ctx, c.user.ID, roomID)
	if err != nil {
		return &services.Error{Kind: services.KindTransientStore, Msg: "Service temporarily unavailable, please retry", Err: err}
	}
	if !ok {
		return &services.Error{Kind: services.KindAuthorization, Msg: "You are not a member of this room"}
	}
	return nil
}

func (d *Dispatcher) joinRoom(ctx context.Context, c *Client, roomID string) error {
	if err := d.requireMember(ctx, c, roomID); err != nil {
		return err
	}

	if prev := d.hub.Subscribe(c, roomID); prev != "" {
		d.announceDeparture(c, prev)
	}
	d.hub.BroadcastExcept(c, roomID, models.UserJoined(c.Sender()))
	d.hub.BroadcastToRoom(roomID, models.RoomUsers(roomID, d.hub.RoomUsers(roomID)))

	streamCtx := c.startHistory()
	go func() {
		sink := roomSink{client: c, room: roomID}
		if _, err := d.history.Stream(streamCtx, roomID, sink); err != nil {
			d.fail(c, models.EventJoinRoom, err, nil)
		}
	}()
	return nil
}

func (d *Dispatcher) leaveRoom(c *Client, roomID string) error {
	if c.ActiveRoom() != roomID {
		return &services.Error{Kind: services.KindValidation, Msg: "You have not joined this room"}
	}
	c.stopHistory()
	d.hub.Unsubscribe(c)
	d.announceDeparture(c, roomID)
	return nil
}

// announceDeparture tells the remaining subscribers of roomID that c left.
func (d *Dispatcher) announceDeparture(c *Client, roomID string) {
	d.hub.BroadcastToRoom(roomID, models.UserLeft(c.Sender()))
	d.hub.BroadcastToRoom(roomID, models.RoomUsers(roomID, d.hub.RoomUsers(roomID)))
}

func (d *Dispatcher) typing(ctx context.Context, c *Client, req models.TypingRequest) error {
	if err := d.requireMember(ctx, c, req.RoomID); err != nil {
		return err
	}
	d.hub.BroadcastExcept(c, req.RoomID, models.UserTyping(c.Sender(), req.IsTyping))
	return nil
}

// fail logs the cause at the boundary and reports a scoped error to c.
func (d *Dispatcher) fail(c *Client, event models.EventName, err error, cause error) {
	kind := "internal"
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		kind = svcErr.Kind.String()
	}
	level := slog.LevelWarn
	if kind == services.KindTransientStore.String() || kind == "internal" {
		level = slog.LevelError
	}
	slog.Log(context.Background(), level, "ws dispatch failed",
		"event", event,
		"conn_id", c.ID(),
		"user_id", c.user.ID,
		"kind", kind,
		"error", err,
		"cause", cause,
	)
	observability.IncWSEvent("room", "error")
	c.Send(models.ErrorEvent(services.ClientMessage(err)))
}
