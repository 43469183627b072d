package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message roles kept in conversation memory
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StopMessage is returned when the agent runs out of iterations
const StopMessage = "Agent stopped due to iteration limit or time limit."

// Message represents a chat message
type Message struct {
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Step records one tool call made while answering
type Step struct {
	Tool   string                 `json:"tool"`
	CallID string                 `json:"call_id"`
	Input  map[string]interface{} `json:"input"`
	Output string                 `json:"output"`
	Status string                 `json:"status"` // completed, failed
	TimeMs int                    `json:"time_ms"`
}

// ChatRequest represents an incoming question
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"message" binding:"required"`
}

// ChatResponse is the agent's final answer and the steps that led to it
type ChatResponse struct {
	SessionID  string `json:"session_id"`
	Response   string `json:"response"`
	Steps      []Step `json:"steps"`
	Iterations int    `json:"iterations"`
	Stopped    bool   `json:"stopped"`
}

// NewSessionID creates a new session identifier
func NewSessionID() string {
	return uuid.New().String()
}
