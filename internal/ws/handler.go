package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"roomchat/internal/auth"
	"roomchat/internal/models"
	"roomchat/internal/observability"
)

// Authenticator validates the credential presented on the upgrade request.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.PublicUser, error)
}

// WebSocketHandler upgrades authenticated requests and runs the connection.
type WebSocketHandler struct {
	hub        *Hub
	registry   *Registry
	dispatcher *Dispatcher
	auth       Authenticator
	sendBuffer int
}

// NewWebSocketHandler constructs a WebSocketHandler.
func NewWebSocketHandler(hub *Hub, registry *Registry, dispatcher *Dispatcher, authenticator Authenticator, sendBuffer int) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, registry: registry, dispatcher: dispatcher, auth: authenticator, sendBuffer: sendBuffer}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates, upgrades and starts the connection's pumps.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("roomchat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	user, err := h.auth.Authenticate(ctx, auth.TokenFromRequest(c.Request))
	if err != nil {
		var authErr *auth.AuthenticationError
		if errors.As(err, &authErr) {
			slog.Info("ws connection rejected", "reason", authErr.Reason, "ip", observability.IPFromRequest(c.Request))
			c.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Message()})
			return
		}
		span.RecordError(err)
		slog.Error("ws authentication failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Debug("ws upgrade failed", "error", err)
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      user.ID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	client := newClient(conn, user, info, h.sendBuffer)
	if prev := h.registry.Activate(ctx, client); prev != nil {
		slog.Info("ws binding superseded", "user_id", user.ID, "prev_conn_id", prev.ID(), "conn_id", info.ConnID)
	}

	observability.IncWSActive("room")
	observability.IncWSEvent("room", "ws_connect")
	publishLifecycle(ctx, info, "ws_connect", "", "")

	go client.writePump()
	go h.readPump(client)
}

// readPump processes the client's frames in arrival order until the socket
// closes, then tears the binding down.
func (h *WebSocketHandler) readPump(client *Client) {
	var closeReason string
	defer func() {
		h.teardown(client, closeReason)
	}()

	conn := client.conn
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && client.Alive() {
				observability.IncWSEvent("room", "ws_error")
				publishLifecycle(client.Context(), client.info, "ws_error", client.ActiveRoom(), closeReason)
			}
			return
		}
		h.dispatcher.Dispatch(client.Context(), client, frame)
	}
}

func (h *WebSocketHandler) teardown(client *Client, reason string) {
	client.Close()
	room := h.hub.Unsubscribe(client)
	if room != "" {
		h.hub.BroadcastToRoom(room, models.RoomUsers(room, h.hub.RoomUsers(room)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rooms, ok := h.registry.Deactivate(ctx, client)
	if ok {
		left := models.UserLeft(client.Sender())
		for _, roomID := range rooms {
			h.hub.BroadcastToRoom(roomID, left)
		}
	}

	observability.DecWSActive("room")
	observability.IncWSEvent("room", "ws_disconnect")
	publishLifecycle(ctx, client.info, "ws_disconnect", room, reason)
}
