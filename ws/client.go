package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second

	// Three missed 30s heartbeats close the connection.
	pongWait = 90 * time.Second

	maxMessageSize = 1024
	sendBufferSize = 256
)

// Client is one websocket connection. ReadPump and WritePump each run in
// their own goroutine; gorilla/websocket allows one reader and one writer.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	send   chan []byte
	mu     sync.Mutex
}

// ReadPump reads heartbeats until the connection fails, then unregisters.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("unexpected close", zap.Int64("user_id", c.userID), zap.Error(err))
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.hub.logger.Debug("invalid message", zap.Int64("user_id", c.userID), zap.Error(err))
			continue
		}

		switch event.Op {
		case OpHeartbeat:
			if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
				return
			}
			c.sendEvent(Event{Op: OpHeartbeatAck})
		default:
			c.hub.logger.Debug("unknown op", zap.Int64("user_id", c.userID), zap.String("op", event.Op))
		}
	}
}

// sendEvent queues a reply to this client only. The membership check under
// the hub lock guards against writing to a send channel the hub closed.
func (c *Client) sendEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c.userID][c] {
		return
	}

	select {
	case c.send <- data:
	default:
		go c.hub.drop(c)
	}
}

// WritePump drains send until the hub closes it.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.writeMessage(websocket.CloseMessage, nil)
}

func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
