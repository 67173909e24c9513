package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"roomchat/internal/auth"
	"roomchat/internal/mocks"
	"roomchat/internal/models"
)

type tokenTable map[string]models.PublicUser

func (t tokenTable) Authenticate(_ context.Context, token string) (models.PublicUser, error) {
	if token == "" {
		return models.PublicUser{}, &auth.AuthenticationError{Reason: auth.ReasonMissingToken}
	}
	user, ok := t[token]
	if !ok {
		return models.PublicUser{}, &auth.AuthenticationError{Reason: auth.ReasonInvalidToken}
	}
	return user, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *mocks.RoomRepositoryMock, *mocks.UserRepositoryMock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rooms := new(mocks.RoomRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	rooms.On("IsParticipant", mock.Anything, "r1", mock.Anything).Return(true, nil)
	rooms.On("ListRoomIDsForUser", mock.Anything, mock.Anything).Return([]string{"r1"}, nil)
	users.On("SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	hub := NewHub()
	reg := NewRegistry(rooms, users)
	dispatcher := NewDispatcher(hub, reg, &fakeMessages{hub: hub}, completingHistory{})
	tokens := tokenTable{
		"t1": {ID: "u1", Username: "alice"},
		"t2": {ID: "u2", Username: "bob"},
	}
	handler := NewWebSocketHandler(hub, reg, dispatcher, tokens, 16)

	r := gin.New()
	r.GET("/ws", handler.Handle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, rooms, users
}

func wsURL(srv *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func readUntil(t *testing.T, conn *websocket.Conn, want models.EventName) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		if f.Event == want {
			return f
		}
	}
}

func TestHandleRejectsUnauthenticated(t *testing.T) {
	srv, _, users := newTestServer(t)

	for _, token := range []string{"", "forged"} {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	users.AssertNotCalled(t, "SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleAcceptsBearerHeader(t *testing.T) {
	srv, _, _ := newTestServer(t)

	header := http.Header{"Authorization": []string{"Bearer t1"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"event": "joinRoom", "data": map[string]string{"roomId": "r1"}}))
	readUntil(t, conn, models.EventMessageHistoryComplete)
}

func TestDisconnectAnnouncesDeparture(t *testing.T) {
	srv, _, users := newTestServer(t)

	alice, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "t1"), nil)
	require.NoError(t, err)
	bob, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "t2"), nil)
	require.NoError(t, err)
	defer bob.Close()

	join := map[string]any{"event": "joinRoom", "data": map[string]string{"roomId": "r1"}}
	require.NoError(t, alice.WriteJSON(join))
	readUntil(t, alice, models.EventMessageHistoryComplete)
	require.NoError(t, bob.WriteJSON(join))
	readUntil(t, bob, models.EventMessageHistoryComplete)

	require.NoError(t, alice.WriteJSON(map[string]any{"event": "sendMessage", "data": map[string]string{"roomId": "r1", "content": "hi"}}))
	msg := readUntil(t, bob, models.EventNewMessage)
	var view models.MessageView
	require.NoError(t, json.Unmarshal(msg.Data, &view))
	assert.Equal(t, "hi", view.Content)

	require.NoError(t, alice.Close())
	left := readUntil(t, bob, models.EventUserLeft)
	var payload models.UserLeftPayload
	require.NoError(t, json.Unmarshal(left.Data, &payload))
	assert.Equal(t, "u1", payload.UserID)
	assert.Equal(t, "alice has left the chat", payload.Message)

	// presence is written before the departure is broadcast
	users.AssertCalled(t, "SetPresence", mock.Anything, "u1", false, mock.Anything)
}
