// Package session keeps short per-conversation history so follow-up
// questions can reference earlier exchanges. History is bounded: only
// the most recent exchanges survive, older ones are evicted FIFO.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/datatypes"
)

// Session holds the bounded exchange history for one conversation. Its
// mutex serialises concurrent queries on the same session id; distinct
// sessions never contend.
type Session struct {
	mu        sync.Mutex
	exchanges []datatypes.Exchange
}

// Manager owns all live sessions. Sessions are created lazily on first
// use and live until explicitly cleared or the process exits.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	maxHistory int
}

// NewManager creates a Manager that retains at most maxHistory
// exchanges per session.
func NewManager(maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = 2
	}
	return &Manager{
		sessions:   make(map[string]*Session),
		maxHistory: maxHistory,
	}
}

// Create allocates a new empty session and returns its id.
func (m *Manager) Create() string {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = &Session{}
	return id
}

// get returns the session for id, creating it if unknown. An id the
// manager has never seen simply starts with empty history.
func (m *Manager) get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.sessions[id]; ok {
		return s
	}
	s = &Session{}
	m.sessions[id] = s
	return s
}

// AddExchange appends a completed question/answer pair to the session,
// evicting the oldest exchange once the history cap is exceeded. Only
// called after a query fully succeeds, so failed queries leave no trace.
func (m *Manager) AddExchange(id, question, answer string) {
	s := m.get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanges = append(s.exchanges, datatypes.Exchange{Query: question, Answer: answer})
	if overflow := len(s.exchanges) - m.maxHistory; overflow > 0 {
		s.exchanges = s.exchanges[overflow:]
	}
}

// FormatHistory renders the session history as a chronological text
// block for inclusion in a reasoning-service prompt. Empty history
// renders as the empty string.
func (m *Manager) FormatHistory(id string) string {
	s := m.get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.exchanges) == 0 {
		return ""
	}
	var b strings.Builder
	for i, ex := range s.exchanges {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "User: %s\nAssistant: %s", ex.Query, ex.Answer)
	}
	return b.String()
}

// Clear removes the session entirely. Clearing an unknown id is a no-op.
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
