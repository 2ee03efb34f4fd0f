// Package game tracks live game sessions. A Session here is the
// server-side handle for one gameID: its serialization lock, its phase
// machine, and its countdown timer task. The authoritative GameState
// itself lives in the store so multiple server instances can share it.
package game

import (
	"sync"
	"time"

	"github.com/wfunc/andarbahar/models"
	"github.com/wfunc/andarbahar/state"
)

// Session is one live game. Every mutating engine operation for the
// game runs under mu, so no two read-modify-write sequences on the same
// gameID can interleave.
type Session struct {
	ID        string
	Phase     *state.Machine
	CreatedAt time.Time

	mu      sync.Mutex
	timerID int64
}

// Lock serializes a mutating operation on this game.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// SetTimerID records the countdown task for this game. Guarded by the
// session lock since the timer goroutine and the router both touch it.
func (s *Session) SetTimerID(id int64) {
	s.mu.Lock()
	s.timerID = id
	s.mu.Unlock()
}

// TimerID returns the countdown task ID, zero when none is scheduled.
func (s *Session) TimerID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timerID
}

// Manager is the registry of live games on this server instance.
type Manager struct {
	games map[string]*Session
	mutex sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		games: make(map[string]*Session),
	}
}

// Create registers a new live game starting in the given phase.
func (m *Manager) Create(gameID string, phase models.Phase) *Session {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	sess := &Session{
		ID:        gameID,
		Phase:     state.NewMachine(phase),
		CreatedAt: time.Now(),
	}
	m.games[gameID] = sess
	return sess
}

func (m *Manager) Get(gameID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	sess, exists := m.games[gameID]
	return sess, exists
}

// GetOrCreate returns the live session for a game, registering one when
// this instance has not seen the game yet (another instance may have
// created it in the shared store).
func (m *Manager) GetOrCreate(gameID string, phase models.Phase) *Session {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if sess, exists := m.games[gameID]; exists {
		return sess
	}
	sess := &Session{
		ID:        gameID,
		Phase:     state.NewMachine(phase),
		CreatedAt: time.Now(),
	}
	m.games[gameID] = sess
	return sess
}

func (m *Manager) Remove(gameID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.games, gameID)
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.games)
}

// IDs returns the identifiers of all live games.
func (m *Manager) IDs() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	ids := make([]string, 0, len(m.games))
	for id := range m.games {
		ids = append(ids, id)
	}
	return ids
}
