package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomchat/internal/models"
)

type frame struct {
	Event models.EventName `json:"event"`
	Data  json.RawMessage  `json:"data"`
}

func testClient(userID string, buffer int) *Client {
	user := models.PublicUser{ID: userID, Username: "user-" + userID, Avatar: models.DefaultAvatar}
	return newClient(nil, user, ConnInfo{ConnID: "conn-" + userID, UserID: userID}, buffer)
}

// drain returns the frames queued on c without blocking.
func drain(t *testing.T, c *Client) []frame {
	t.Helper()
	var out []frame
	for {
		select {
		case payload := <-c.send:
			var f frame
			require.NoError(t, json.Unmarshal(payload, &f))
			out = append(out, f)
		default:
			return out
		}
	}
}

func names(frames []frame) []models.EventName {
	out := make([]models.EventName, len(frames))
	for i, f := range frames {
		out[i] = f.Event
	}
	return out
}

func TestHubSubscribeAndUnsubscribe(t *testing.T) {
	hub := NewHub()
	c := testClient("u1", 8)

	hub.Subscribe(c, "r1")
	assert.Equal(t, 1, hub.Rooms())
	assert.Equal(t, "r1", c.ActiveRoom())

	assert.Equal(t, "r1", hub.Unsubscribe(c))
	assert.Zero(t, hub.Rooms())
	assert.Equal(t, "", c.ActiveRoom())
	assert.Equal(t, "", hub.Unsubscribe(c))
}

func TestHubSubscribeLeavesPreviousRoom(t *testing.T) {
	hub := NewHub()
	c := testClient("u1", 8)

	assert.Equal(t, "", hub.Subscribe(c, "r1"))
	assert.Equal(t, "", hub.Subscribe(c, "r1"))
	assert.Equal(t, "r1", hub.Subscribe(c, "r2"))

	assert.Empty(t, hub.RoomSubscribers("r1"))
	assert.Len(t, hub.RoomSubscribers("r2"), 1)

	hub.BroadcastToRoom("r1", models.ErrorEvent("not for you"))
	assert.Empty(t, drain(t, c))
}

func TestHubBroadcastOnlyReachesSubscribers(t *testing.T) {
	hub := NewHub()
	in1, in2, out := testClient("u1", 8), testClient("u2", 8), testClient("u3", 8)
	hub.Subscribe(in1, "r1")
	hub.Subscribe(in2, "r1")
	hub.Subscribe(out, "r2")

	hub.BroadcastToRoom("r1", models.MessageDeleted("m1", "r1"))

	assert.Equal(t, []models.EventName{models.EventMessageDeleted}, names(drain(t, in1)))
	assert.Equal(t, []models.EventName{models.EventMessageDeleted}, names(drain(t, in2)))
	assert.Empty(t, drain(t, out))
}

func TestHubBroadcastExceptSkipsOrigin(t *testing.T) {
	hub := NewHub()
	origin, other := testClient("u1", 8), testClient("u2", 8)
	hub.Subscribe(origin, "r1")
	hub.Subscribe(other, "r1")

	hub.BroadcastExcept(origin, "r1", models.UserTyping(origin.Sender(), true))

	assert.Empty(t, drain(t, origin))
	got := drain(t, other)
	require.Len(t, got, 1)
	var payload models.UserTypingPayload
	require.NoError(t, json.Unmarshal(got[0].Data, &payload))
	assert.Equal(t, "u1", payload.UserID)
	assert.True(t, payload.IsTyping)
}

func TestHubSendToConnection(t *testing.T) {
	hub := NewHub()
	c := testClient("u1", 8)
	assert.True(t, hub.SendToConnection(c, models.ErrorEvent("boom")))

	c.Close()
	assert.False(t, hub.SendToConnection(c, models.ErrorEvent("late")))
	assert.Len(t, drain(t, c), 1)
}

func TestHubClosesSlowClientWithoutBlocking(t *testing.T) {
	hub := NewHub()
	slow, fast := testClient("u1", 1), testClient("u2", 8)
	hub.Subscribe(slow, "r1")
	hub.Subscribe(fast, "r1")

	for i := 0; i < 3; i++ {
		hub.BroadcastToRoom("r1", models.ErrorEvent(fmt.Sprint(i)))
	}

	assert.False(t, slow.Alive())
	assert.Len(t, drain(t, fast), 3)
}

func TestHubPreservesPerRoomOrder(t *testing.T) {
	hub := NewHub()
	readers := []*Client{testClient("u1", 512), testClient("u2", 512), testClient("u3", 512)}
	for _, c := range readers {
		hub.Subscribe(c, "r1")
	}

	var order sync.Mutex
	var issued []string
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("%d-%d", w, i)
				order.Lock()
				issued = append(issued, id)
				hub.BroadcastToRoom("r1", models.MessageDeleted(id, "r1"))
				order.Unlock()
			}
		}(w)
	}
	wg.Wait()

	for _, c := range readers {
		var seen []string
		for _, f := range drain(t, c) {
			var payload models.MessageDeletedPayload
			require.NoError(t, json.Unmarshal(f.Data, &payload))
			seen = append(seen, payload.MessageID)
		}
		assert.Equal(t, issued, seen)
	}
}

func TestHubRoomUsersDedupesIdentities(t *testing.T) {
	hub := NewHub()
	a1, a2, b := testClient("u1", 8), testClient("u1", 8), testClient("u2", 8)
	for _, c := range []*Client{a1, a2, b} {
		hub.Subscribe(c, "r1")
	}

	users := hub.RoomUsers("r1")
	assert.Len(t, users, 2)
	assert.Empty(t, hub.RoomUsers("nowhere"))
}
