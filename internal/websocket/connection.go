package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"advisorsql-backend/internal/messages"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Connection represents a WebSocket connection
type Connection struct {
	// WebSocket connection
	ws *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// ID identifies the connection and is its default chat session
	ID string

	hub     *Hub
	handler *Handler
	logger  *zap.Logger

	// Guards send against writes after close
	mutex  sync.Mutex
	closed bool
}

// NewConnection creates a new connection instance
func NewConnection(ws *websocket.Conn, hub *Hub, handler *Handler) *Connection {
	id := uuid.New().String()
	return &Connection{
		ws:      ws,
		send:    make(chan []byte, sendBuffer),
		ID:      id,
		hub:     hub,
		handler: handler,
		logger:  handler.logger.With(zap.String("connection_id", id)),
	}
}

// ReadPump reads client frames until the socket closes. Frames are handled
// in order on this goroutine.
func (c *Connection) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.closeSendChannel()
		c.ws.Close()
	}()

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var message messages.IncomingMessage
		if err := json.Unmarshal(data, &message); err != nil {
			c.sendError("", messages.CodeInvalidMessage, "message is not valid JSON")
			continue
		}

		switch message.Type {
		case messages.TypeUserMessage:
			c.handler.handleUserMessage(c, &message)
		case messages.TypeClearHistory:
			c.handler.handleClearHistory(c, &message)
		case messages.TypePing:
			c.handlePing(&message)
		default:
			c.logger.Debug("unhandled message type", zap.String("type", message.Type))
			c.sendError(message.ID, messages.CodeUnknownType, "unknown message type: "+message.Type)
		}

		c.ws.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// WritePump writes queued messages and keepalive pings
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) handlePing(message *messages.IncomingMessage) {
	c.hub.SendToConnection(c, messages.NewWebSocketMessage(messages.TypePong, messages.PongData{
		Timestamp: time.Now().UnixMilli(),
	}, message.ID))
}

func (c *Connection) sendError(id, code, text string) {
	c.hub.SendToConnection(c, messages.NewWebSocketMessage(messages.TypeError, messages.ErrorData{
		Error: text,
		Code:  code,
	}, id))
}

// enqueue queues data unless the connection is closed or its buffer is full
func (c *Connection) enqueue(data []byte) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSendChannel safely closes the send channel if not already closed
func (c *Connection) closeSendChannel() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
