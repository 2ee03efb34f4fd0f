package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/andarbahar/config"
	"github.com/wfunc/andarbahar/game"
	"github.com/wfunc/andarbahar/logger"
	"github.com/wfunc/andarbahar/models"
	"github.com/wfunc/andarbahar/persistence"
	"github.com/wfunc/andarbahar/services"
	"github.com/wfunc/andarbahar/store"
)

func init() {
	logger.Init()
}

// fakeDatabase is an in-memory persistence.Database for engine tests.
type fakeDatabase struct {
	mu          sync.Mutex
	users       map[int64]*models.User
	ledger      []ledgerEntry
	betRecords  map[string]*models.Bet
	gameRecords map[string]*models.GameState
	dealtCards  []*models.DealtCard

	// failCreditsFor makes AdjustBalance fail for positive deltas on
	// the given user, to exercise settlement partial failures.
	failCreditsFor map[int64]bool
}

type ledgerEntry struct {
	userID int64
	delta  int64
	reason string
	refID  string
}

func newFakeDatabase() *fakeDatabase {
	return &fakeDatabase{
		users:          make(map[int64]*models.User),
		betRecords:     make(map[string]*models.Bet),
		gameRecords:    make(map[string]*models.GameState),
		failCreditsFor: make(map[int64]bool),
	}
}

func (f *fakeDatabase) addUser(userID, balance int64, isAdmin bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[userID] = &models.User{ID: userID, Name: "user", Balance: balance, IsAdmin: isAdmin}
}

func (f *fakeDatabase) balance(userID int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[userID].Balance
}

func (f *fakeDatabase) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, exists := f.users[userID]
	if !exists {
		return nil, persistence.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeDatabase) AdjustBalance(ctx context.Context, userID int64, delta int64, reason, refID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, exists := f.users[userID]
	if !exists {
		return 0, persistence.ErrRecordNotFound
	}
	if delta > 0 && f.failCreditsFor[userID] {
		return 0, errors.New("simulated credit failure")
	}
	if delta < 0 && user.Balance+delta < 0 {
		return 0, persistence.ErrInsufficientBalance
	}

	user.Balance += delta
	f.ledger = append(f.ledger, ledgerEntry{userID: userID, delta: delta, reason: reason, refID: refID})
	return user.Balance, nil
}

func (f *fakeDatabase) SaveBetRecord(ctx context.Context, bet *models.Bet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *bet
	f.betRecords[bet.ID] = &copied
	return nil
}

func (f *fakeDatabase) SaveGameRecord(ctx context.Context, state *models.GameState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *state
	f.gameRecords[state.GameID] = &copied
	return nil
}

func (f *fakeDatabase) SaveDealtCard(ctx context.Context, dealt *models.DealtCard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *dealt
	f.dealtCards = append(f.dealtCards, &copied)
	return nil
}

func (f *fakeDatabase) Close() error { return nil }

// recordedEvent is one Events call captured in emission order.
type recordedEvent struct {
	gameID string
	kind   string
	andar  int64
	bahar  int64
	phase  models.Phase
	card   models.Card
	side   models.Side
	timer  int
}

// eventRecorder captures engine events in the order they are emitted.
// Engines emit under the game lock, so the slice order is the order
// the state changes were applied.
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) record(ev recordedEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) GameState(gameID string, state *models.GameState) {
	r.record(recordedEvent{gameID: gameID, kind: "sync_game_state", phase: state.Phase})
}

func (r *eventRecorder) TimerUpdate(gameID string, timer int, phase models.Phase) {
	r.record(recordedEvent{gameID: gameID, kind: "timer_update", timer: timer, phase: phase})
}

func (r *eventRecorder) CardDealt(gameID string, card models.Card, side models.Side, position int) {
	r.record(recordedEvent{gameID: gameID, kind: "card_dealt", card: card, side: side})
}

func (r *eventRecorder) BettingStats(gameID string, andar, bahar int64) {
	r.record(recordedEvent{gameID: gameID, kind: "betting_stats", andar: andar, bahar: bahar})
}

func (r *eventRecorder) PhaseChange(gameID string, phase models.Phase, message string) {
	r.record(recordedEvent{gameID: gameID, kind: "phase_change", phase: phase})
}

func (r *eventRecorder) GameComplete(gameID string, winner models.Side, winningCard models.Card, totalCards int) {
	r.record(recordedEvent{gameID: gameID, kind: "game_complete", side: winner, card: winningCard})
}

// kinds returns the event names recorded for one game, in order.
func (r *eventRecorder) kinds(gameID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kinds []string
	for _, ev := range r.events {
		if ev.gameID == gameID {
			kinds = append(kinds, ev.kind)
		}
	}
	return kinds
}

// byKind returns the recorded events of one kind for one game.
func (r *eventRecorder) byKind(gameID, kind string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []recordedEvent
	for _, ev := range r.events {
		if ev.gameID == gameID && ev.kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

var testRules = config.GameConfig{
	MinBet:           1000,
	MaxBet:           100000,
	PayoutMultiplier: 2.0,
	CountdownSeconds: 30,
	StateTTLSeconds:  3600,
}

// testEngines bundles a fully wired engine set over fakes.
type testEngines struct {
	db         *fakeDatabase
	store      store.StateStore
	games      *game.Manager
	events     *eventRecorder
	betting    *BettingEngine
	dealing    *DealingEngine
	settlement *SettlementEngine
}

func newTestEngines() *testEngines {
	return newTestEnginesOn(store.NewMemoryStore(time.Hour))
}

// newTestEnginesOn wires an engine set over the given store, so tests
// can share one store between several engine sets the way separate
// server processes share one Redis.
func newTestEnginesOn(st store.StateStore) *testEngines {
	db := newFakeDatabase()
	games := game.NewManager()
	wallet := services.NewWalletService(db)
	events := &eventRecorder{}

	settlement := NewSettlementEngine(st, db, wallet, games, testRules)
	return &testEngines{
		db:         db,
		store:      st,
		games:      games,
		events:     events,
		betting:    NewBettingEngine(st, db, wallet, games, events, testRules),
		dealing:    NewDealingEngine(st, db, wallet, games, events, testRules, settlement),
		settlement: settlement,
	}
}

// errCode unwraps the typed engine code from an error, failing the
// test when the error is untyped.
func errCode(t *testing.T, err error) Code {
	t.Helper()
	typed, ok := AsError(err)
	if !ok {
		t.Fatalf("expected typed engine error, got %v", err)
	}
	return typed.Code
}

// startGame seeds a running game directly in the store.
func (e *testEngines) startGame(gameID string, phase models.Phase, openingCard models.Card) *models.GameState {
	now := time.Now().UTC()
	gs := &models.GameState{
		GameID:       gameID,
		Phase:        phase,
		OpeningCard:  openingCard,
		AndarCards:   []models.Card{},
		BaharCards:   []models.Card{},
		CurrentRound: 1,
		Countdown:    testRules.CountdownSeconds,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.SetGameState(context.Background(), gameID, gs); err != nil {
		panic(err)
	}
	e.games.Create(gameID, phase)
	return gs
}
