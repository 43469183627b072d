package messages

import (
	"encoding/json"
	"time"
)

// Message types exchanged on /ws/chat
const (
	TypeUserMessage      = "user_message"
	TypeAssistantMessage = "assistant_message"
	TypeClearHistory     = "clear_history"
	TypeHistoryCleared   = "history_cleared"
	TypePing             = "ping"
	TypePong             = "pong"
	TypeError            = "error"
)

// Error codes carried in ErrorData
const (
	CodeInvalidMessage = "INVALID_MESSAGE"
	CodeUnknownType    = "UNKNOWN_TYPE"
	CodeChatFailed     = "CHAT_FAILED"
)

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
	ID        string      `json:"id,omitempty"`
}

// IncomingMessage is a client frame with its data left undecoded
type IncomingMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	ID   string          `json:"id,omitempty"`
}

// UserMessageData represents data for user_message and clear_history
type UserMessageData struct {
	Content   string `json:"content"`
	SessionID string `json:"session_id,omitempty"`
}

// ErrorData represents data for error type
type ErrorData struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// PongData represents data for pong type
type PongData struct {
	Timestamp int64 `json:"timestamp"`
}

// NewWebSocketMessage creates a timestamped message replying to id
func NewWebSocketMessage(messageType string, data interface{}, id string) *WebSocketMessage {
	return &WebSocketMessage{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
		ID:        id,
	}
}
