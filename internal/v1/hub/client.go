package hub

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mazehunt/server/internal/v1/codec"
	"github.com/mazehunt/server/internal/v1/logging"
	"github.com/mazehunt/server/internal/v1/metrics"
)

// wsConnection is the subset of the websocket connection the client uses.
// Tests substitute a mock.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
}

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
)

// Client is one websocket connection. The socket id is ephemeral; the room
// runtime keys everything by persistent player id and only the hub maps
// between the two.
type Client struct {
	id   string
	conn wsConnection
	hub  *Hub

	mu     sync.RWMutex
	closed bool

	send chan []byte
}

func newClient(id string, conn wsConnection, h *Hub) *Client {
	return &Client{
		id:   id,
		conn: conn,
		hub:  h,
		send: make(chan []byte, sendBufferSize),
	}
}

// Send queues an encoded frame for delivery. Slow consumers shed frames
// rather than stall the room.
func (c *Client) Send(data []byte) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	c.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			logging.Warn(context.Background(), "Recovered from send to closing client",
				zap.String("socketId", c.id), zap.Any("panic", r))
		}
	}()

	select {
	case c.send <- data:
	default:
		logging.Warn(context.Background(), "Client send channel full, dropping frame",
			zap.String("socketId", c.id))
		metrics.WebsocketEvents.WithLabelValues("outbound", "dropped").Inc()
	}
}

// Disconnect closes the send channel, which drains the write pump and closes
// the connection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	close(c.send)
}

// readPump reads frames until the socket dies, forwarding decoded messages
// to the hub router.
func (c *Client) readPump() {
	defer func() {
		c.hub.dropClient(c)
		c.conn.Close()
		metrics.DecConnection()
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		msg, err := codec.Decode(data)
		if err != nil {
			logging.Warn(context.Background(), "Failed to decode frame",
				zap.String("socketId", c.id), zap.Error(err))
			metrics.WebsocketEvents.WithLabelValues("inbound", "malformed").Inc()
			continue
		}
		c.hub.route(c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logging.Error(context.Background(), "error writing message",
				zap.String("socketId", c.id), zap.Error(err))
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
