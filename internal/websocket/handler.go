package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"advisorsql-backend/internal/chat"
	"advisorsql-backend/internal/messages"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// origins are enforced by the CORS middleware on the HTTP router
		return true
	},
}

// Handler manages WebSocket connections
type Handler struct {
	hub         *Hub
	chatService chat.ChatService
	logger      *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, chatService chat.ChatService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:         hub,
		chatService: chatService,
		logger:      logger,
	}
}

// HandleWebSocket upgrades the request and starts the connection pumps
func (h *Handler) HandleWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := NewConnection(ws, h.hub, h)
	if !h.hub.Register(conn) {
		ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		ws.Close()
		return
	}

	go conn.WritePump()
	go conn.ReadPump()

	conn.logger.Info("websocket connection established")
}

// handleUserMessage runs the question through the agent and replies on conn
func (h *Handler) handleUserMessage(conn *Connection, message *messages.IncomingMessage) {
	data, ok := decodeUserMessage(conn, message)
	if !ok {
		return
	}

	sessionID := data.SessionID
	if sessionID == "" {
		sessionID = conn.ID
	}

	resp, err := h.chatService.ProcessUserMessage(context.Background(), &chat.ChatRequest{
		SessionID: sessionID,
		Content:   data.Content,
	})
	if err != nil {
		conn.logger.Error("failed to process user message", zap.Error(err))
		text := "Failed to process message"
		if errors.Is(err, chat.ErrEmptyMessage) {
			text = err.Error()
		}
		conn.sendError(message.ID, messages.CodeChatFailed, text)
		return
	}

	h.hub.SendToConnection(conn, messages.NewWebSocketMessage(messages.TypeAssistantMessage, resp, message.ID))
}

func (h *Handler) handleClearHistory(conn *Connection, message *messages.IncomingMessage) {
	data, ok := decodeUserMessage(conn, message)
	if !ok {
		return
	}

	sessionID := data.SessionID
	if sessionID == "" {
		sessionID = conn.ID
	}
	h.chatService.ClearHistory(sessionID)

	h.hub.SendToConnection(conn, messages.NewWebSocketMessage(messages.TypeHistoryCleared, gin.H{
		"session_id": sessionID,
	}, message.ID))
}

func decodeUserMessage(conn *Connection, message *messages.IncomingMessage) (messages.UserMessageData, bool) {
	var data messages.UserMessageData
	if len(message.Data) == 0 {
		return data, true
	}
	if err := json.Unmarshal(message.Data, &data); err != nil {
		conn.sendError(message.ID, messages.CodeInvalidMessage, "invalid "+message.Type+" data")
		return data, false
	}
	return data, true
}
