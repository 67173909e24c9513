package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"roomchat/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is one live websocket connection bound to an authenticated user.
// Outbound frames go through a buffered queue drained by writePump; a client
// that cannot keep up is closed rather than blocking the room.
type Client struct {
	conn *websocket.Conn
	user models.PublicUser
	info ConnInfo
	send chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	mu            sync.Mutex
	room          string
	cancelHistory context.CancelFunc
}

func newClient(conn *websocket.Conn, user models.PublicUser, info ConnInfo, buffer int) *Client {
	if buffer <= 0 {
		buffer = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:   conn,
		user:   user,
		info:   info,
		send:   make(chan []byte, buffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.info.ConnID }

func (c *Client) User() models.PublicUser { return c.user }

func (c *Client) Sender() models.Sender { return c.user.Sender() }

// Context is cancelled when the client closes.
func (c *Client) Context() context.Context { return c.ctx }

func (c *Client) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Send queues event for delivery. It reports false when the client is gone
// or was closed because its queue overflowed.
func (c *Client) Send(event models.Event) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("encode event failed", "event", event.Name, "error", err)
		return false
	}
	return c.enqueue(payload)
}

func (c *Client) enqueue(payload []byte) bool {
	if !c.Alive() {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		slog.Warn("ws send queue full, closing", "conn_id", c.info.ConnID, "user_id", c.info.UserID)
		c.Close()
		return false
	}
}

// Close marks the client dead and stops its history stream. Safe to call repeatedly.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.done)
	})
}

// ActiveRoom returns the room the client is currently subscribed to.
func (c *Client) ActiveRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) swapRoom(room string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.room
	c.room = room
	return prev
}

// clearRoom unsets the active room if it is still room.
func (c *Client) clearRoom(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room != room {
		return false
	}
	c.room = ""
	return true
}

// startHistory cancels any running history stream and returns the context
// for the next one.
func (c *Client) startHistory() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelHistory != nil {
		c.cancelHistory()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelHistory = cancel
	return ctx
}

func (c *Client) stopHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelHistory != nil {
		c.cancelHistory()
		c.cancelHistory = nil
	}
}

// writePump drains the send queue onto the socket and keeps it alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				slog.Debug("ws write failed", "conn_id", c.info.ConnID, "error", err)
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// roomSink feeds a history stream to a client while it stays in room.
type roomSink struct {
	client *Client
	room   string
}

func (s roomSink) Alive() bool {
	return s.client.Alive() && s.client.ActiveRoom() == s.room
}

func (s roomSink) Send(event models.Event) bool {
	return s.client.Send(event)
}
