package chat

import (
	"sync"
)

// Memory stores conversation history per session
type Memory interface {
	History(sessionID string) []Message
	Append(sessionID string, messages ...Message)
	Clear(sessionID string)
}

// InMemoryHistory keeps history for the lifetime of the process
type InMemoryHistory struct {
	sessions map[string][]Message
	mutex    sync.RWMutex
}

// NewInMemoryHistory creates an empty history store
func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{sessions: make(map[string][]Message)}
}

// History returns a copy of the session's messages
func (m *InMemoryHistory) History(sessionID string) []Message {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	history := m.sessions[sessionID]
	out := make([]Message, len(history))
	copy(out, history)
	return out
}

// Append adds messages to the end of the session
func (m *InMemoryHistory) Append(sessionID string, messages ...Message) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.sessions[sessionID] = append(m.sessions[sessionID], messages...)
}

// Clear drops the session
func (m *InMemoryHistory) Clear(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.sessions, sessionID)
}
