// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/andarbahar/network"
)

// Role of an authenticated connection.
type Role string

const (
	RoleNone   Role = ""
	RolePlayer Role = "player"
	RoleAdmin  Role = "admin"
)

// Session is one client connection. UserID and Role are zero until the
// authenticate message arrives; GameID is set by subscribe_game.
type Session struct {
	ID         string
	Conn       network.Connection
	UserID     int64
	Role       Role
	GameID     string
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

func (s *Session) Authenticate(userID int64, role Role) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.UserID = userID
	s.Role = role
}

func (s *Session) Authenticated() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Role != RoleNone
}

func (s *Session) IsAdmin() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Role == RoleAdmin
}

func (s *Session) GetUserID() int64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.UserID
}

func (s *Session) Subscribe(gameID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.GameID = gameID
}

func (s *Session) SubscribedGame() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.GameID
}

func (s *Session) Send(env *network.Envelope) error {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
	return s.Conn.Send(env)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager tracks all live sessions.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByGame returns every session subscribed to a game.
func (m *Manager) GetByGame(gameID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.SubscribedGame() == gameID {
			result = append(result, session)
		}
	}
	return result
}

func (m *Manager) GetByUserID(userID int64) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.GetUserID() == userID {
			result = append(result, session)
		}
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
