package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"advisorsql-backend/internal/messages"
)

// Hub owns the set of live chat connections. Membership changes go through
// Run so a connection's send channel is closed exactly once.
type Hub struct {
	mu    sync.RWMutex
	conns map[*Connection]struct{}

	register   chan *Connection
	unregister chan *Connection
	done       chan struct{}

	logger *zap.Logger
}

// NewHub returns a hub; call Run to start it
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		conns:      make(map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves membership changes until ctx ends, then closes every
// connection still registered
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.conns[conn] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("connection registered", zap.String("connection_id", conn.ID))

		case conn := <-h.unregister:
			if h.drop(conn) {
				h.logger.Info("connection unregistered", zap.String("connection_id", conn.ID))
			}

		case <-ctx.Done():
			h.mu.RLock()
			open := make([]*Connection, 0, len(h.conns))
			for conn := range h.conns {
				open = append(open, conn)
			}
			h.mu.RUnlock()

			for _, conn := range open {
				h.drop(conn)
			}
			h.logger.Info("hub stopped", zap.Int("closed", len(open)))
			return
		}
	}
}

// drop removes conn and closes its send channel if it was registered
func (h *Hub) drop(conn *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn]; !ok {
		return false
	}
	delete(h.conns, conn)
	conn.closeSendChannel()
	return true
}

// Register adds conn unless the hub has stopped
func (h *Hub) Register(conn *Connection) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes conn and closes its send channel
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// SendToConnection queues message for conn. Messages for a closed or backed
// up connection are dropped and logged.
func (h *Hub) SendToConnection(conn *Connection, message *messages.WebSocketMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", zap.String("type", message.Type), zap.Error(err))
		return
	}

	if !conn.enqueue(data) {
		h.logger.Warn("dropping message for connection",
			zap.String("connection_id", conn.ID),
			zap.String("type", message.Type),
		)
	}
}

// GetConnectionCount returns the number of registered connections
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
