package chatlog

import (
	"context"
	"sync"

	"github.com/minirag/minirag/internal/llm"
)

// Memory is an in-process chat log for the memory storage backend.
// History is lost on restart. Safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]llm.Message
}

// NewMemory creates an empty in-memory chat log.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string][]llm.Message)}
}

func sessionKey(userID, sessionID string) string {
	return userID + "\x00" + sessionID
}

// History returns the stored messages for (userID, sessionID) in append
// order. found is false when the session does not exist, which is
// distinct from an existing empty session.
func (m *Memory) History(_ context.Context, userID, sessionID string) ([]llm.Message, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.sessions[sessionKey(userID, sessionID)]
	if !ok {
		return nil, false, nil
	}
	out := make([]llm.Message, len(stored))
	copy(out, stored)
	return out, true, nil
}

// Append appends delta to the session, creating it on first write.
// An empty delta is a no-op and does not create the session.
func (m *Memory) Append(_ context.Context, userID, sessionID string, delta []llm.Message) error {
	if len(delta) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(userID, sessionID)
	m.sessions[key] = append(m.sessions[key], delta...)
	return nil
}
