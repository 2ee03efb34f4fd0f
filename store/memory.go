package store

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/andarbahar/models"
)

// MemoryStore is the single-process backend: mutex-guarded maps with a
// background sweeper evicting expired entries. Lost on restart.
type MemoryStore struct {
	ttl       time.Duration
	now       clock
	mutex     sync.RWMutex
	games     map[string]*memoryEntry[*models.GameState]
	bets      map[string]*memoryEntry[*models.Bet]
	gameBets  map[string]map[string]bool // gameID -> betID set
	players   map[string]map[int64]bool  // gameID -> userID set
	closeChan chan struct{}
	closeOnce sync.Once
}

type memoryEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		ttl:       ttl,
		now:       time.Now,
		games:     make(map[string]*memoryEntry[*models.GameState]),
		bets:      make(map[string]*memoryEntry[*models.Bet]),
		gameBets:  make(map[string]map[string]bool),
		players:   make(map[string]map[int64]bool),
		closeChan: make(chan struct{}),
	}
	go s.sweep()
	return s
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.closeChan:
			return
		}
	}
}

func (s *MemoryStore) evictExpired() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	for gameID, entry := range s.games {
		if entry.expiresAt.Before(now) {
			delete(s.games, gameID)
			delete(s.gameBets, gameID)
			delete(s.players, gameID)
		}
	}
	for betID, entry := range s.bets {
		if entry.expiresAt.Before(now) {
			delete(s.bets, betID)
		}
	}
}

func (s *MemoryStore) GetGameState(ctx context.Context, gameID string) (*models.GameState, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entry, exists := s.games[gameID]
	if !exists || entry.expiresAt.Before(s.now()) {
		return nil, ErrGameNotFound
	}
	state := *entry.value
	return &state, nil
}

func (s *MemoryStore) SetGameState(ctx context.Context, gameID string, state *models.GameState) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	copied := *state
	s.games[gameID] = &memoryEntry[*models.GameState]{
		value:     &copied,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) UpdateGameState(ctx context.Context, gameID string, fn func(state *models.GameState) error) (*models.GameState, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, exists := s.games[gameID]
	if !exists || entry.expiresAt.Before(s.now()) {
		return nil, ErrGameNotFound
	}
	state := *entry.value
	if err := fn(&state); err != nil {
		return nil, err
	}
	copied := state
	s.games[gameID] = &memoryEntry[*models.GameState]{
		value:     &copied,
		expiresAt: s.now().Add(s.ttl),
	}
	return &state, nil
}

func (s *MemoryStore) DeleteGameState(ctx context.Context, gameID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.games, gameID)
	delete(s.gameBets, gameID)
	delete(s.players, gameID)
	return nil
}

func (s *MemoryStore) AddBet(ctx context.Context, betID string, bet *models.Bet) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	copied := *bet
	s.bets[betID] = &memoryEntry[*models.Bet]{
		value:     &copied,
		expiresAt: s.now().Add(s.ttl),
	}
	if _, exists := s.gameBets[bet.GameID]; !exists {
		s.gameBets[bet.GameID] = make(map[string]bool)
	}
	s.gameBets[bet.GameID][betID] = true
	return nil
}

func (s *MemoryStore) GetBet(ctx context.Context, betID string) (*models.Bet, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entry, exists := s.bets[betID]
	if !exists || entry.expiresAt.Before(s.now()) {
		return nil, ErrBetNotFound
	}
	bet := *entry.value
	return &bet, nil
}

func (s *MemoryStore) GetAllBets(ctx context.Context, gameID string) ([]*models.Bet, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := s.now()
	bets := make([]*models.Bet, 0, len(s.gameBets[gameID]))
	for betID := range s.gameBets[gameID] {
		entry, exists := s.bets[betID]
		if !exists || entry.expiresAt.Before(now) {
			continue
		}
		bet := *entry.value
		bets = append(bets, &bet)
	}
	return bets, nil
}

func (s *MemoryStore) DeleteBet(ctx context.Context, betID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if entry, exists := s.bets[betID]; exists {
		if set, ok := s.gameBets[entry.value.GameID]; ok {
			delete(set, betID)
		}
	}
	delete(s.bets, betID)
	return nil
}

func (s *MemoryStore) AddPlayer(ctx context.Context, gameID string, userID int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.players[gameID]; !exists {
		s.players[gameID] = make(map[int64]bool)
	}
	s.players[gameID][userID] = true
	return nil
}

func (s *MemoryStore) RemovePlayer(ctx context.Context, gameID string, userID int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if set, exists := s.players[gameID]; exists {
		delete(set, userID)
	}
	return nil
}

func (s *MemoryStore) GetPlayers(ctx context.Context, gameID string) ([]int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	players := make([]int64, 0, len(s.players[gameID]))
	for userID := range s.players[gameID] {
		players = append(players, userID)
	}
	return players, nil
}

func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.closeChan)
	})
	return nil
}
