package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"linkchat/internal/chat"
	"linkchat/internal/model"
	"linkchat/internal/stream"
)

// Session is the only durable carrier of state between requests: the
// conversation log, the generation settings and the streaming slot all
// live here and die with the session.
type Session struct {
	ID        string
	Log       *chat.Log
	CreatedAt time.Time

	mu            sync.Mutex
	authenticated bool
	config        model.GenerationConfig
	stream        *stream.State
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func (s *Session) Authenticate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
}

func (s *Session) Config() model.GenerationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// UpdateConfig applies a partial settings change under the session lock.
func (s *Session) UpdateConfig(apply func(*model.GenerationConfig)) model.GenerationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(&s.config)
	return s.config
}

// Stream returns the session's current streaming state, if any.
func (s *Session) Stream() *stream.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

func (s *Session) SetStream(st *stream.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = st
}

// Manager is the process-wide registry of live sessions, keyed by the id
// carried in the signed cookie.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	defaults model.GenerationConfig
}

func NewManager(defaults model.GenerationConfig) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		defaults: defaults,
	}
}

// Create starts an empty session with the configured defaults.
func (m *Manager) Create() *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		Log:       chat.NewLog(),
		CreatedAt: time.Now(),
		config:    m.defaults,
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	return sess
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	return sess, ok
}

// Invalidate drops the session and everything it owns.
func (m *Manager) Invalidate(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
