package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned for an unknown session id.
	ErrNotFound = errors.New("session not found")

	// ErrTooManySessions is returned when the session limit is reached.
	ErrTooManySessions = errors.New("too many sessions")
)

// Manager manages all active sessions
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	cfg         Config
}

// NewManager creates a session manager. A non-positive limit means no
// limit.
func NewManager(maxSessions int, cfg Config) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		cfg:         cfg,
	}
}

// Config returns the configuration given to new sessions.
func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// SetConfig replaces the configuration given to new sessions. Running
// sessions keep theirs.
func (m *Manager) SetConfig(cfg Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// CreateSession registers a new idle session sending to sink.
func (m *Manager) CreateSession(sink Sink) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("limit %d: %w", m.maxSessions, ErrTooManySessions)
	}

	sess := NewSession(sink, m.cfg)
	m.sessions[sess.ID] = sess
	return sess, nil
}

// GetSession returns a session by ID
func (m *Manager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	return sess, nil
}

// CloseSession terminates and removes a session
func (m *Manager) CloseSession(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	sess.Close()
	return nil
}

// CloseAll terminates all sessions
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

// ListSessions returns all sessions, oldest first.
func (m *Manager) ListSessions() []*Session {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}

// Count returns the number of sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
