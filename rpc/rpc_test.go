package rpc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/andarbahar/config"
	"github.com/wfunc/andarbahar/engine"
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

// opsDB is the minimal persistence.Database the admin service tests
// need: balances plus a switch that fails credits to model the partial
// settlement Resettle exists to repair.
type opsDB struct {
	mu          sync.Mutex
	balances    map[int64]int64
	failCredits bool
}

func newOpsDB() *opsDB {
	return &opsDB{balances: make(map[int64]int64)}
}

func (d *opsDB) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	balance, exists := d.balances[userID]
	if !exists {
		return nil, persistence.ErrRecordNotFound
	}
	return &models.User{ID: userID, Balance: balance}, nil
}

func (d *opsDB) AdjustBalance(ctx context.Context, userID int64, delta int64, reason, refID string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.balances[userID]; !exists {
		return 0, persistence.ErrRecordNotFound
	}
	if delta > 0 && d.failCredits {
		return 0, persistence.ErrRecordNotFound
	}
	d.balances[userID] += delta
	return d.balances[userID], nil
}

func (d *opsDB) SaveBetRecord(ctx context.Context, bet *models.Bet) error          { return nil }
func (d *opsDB) SaveGameRecord(ctx context.Context, state *models.GameState) error { return nil }
func (d *opsDB) SaveDealtCard(ctx context.Context, dealt *models.DealtCard) error  { return nil }
func (d *opsDB) Close() error                                                      { return nil }

type nopEvents struct{}

func (nopEvents) GameState(string, *models.GameState)                {}
func (nopEvents) TimerUpdate(string, int, models.Phase)              {}
func (nopEvents) CardDealt(string, models.Card, models.Side, int)    {}
func (nopEvents) BettingStats(string, int64, int64)                  {}
func (nopEvents) PhaseChange(string, models.Phase, string)           {}
func (nopEvents) GameComplete(string, models.Side, models.Card, int) {}

func newAdminFixture(db *opsDB) (*AdminService, store.StateStore) {
	rules := config.GameConfig{MinBet: 1000, MaxBet: 100000, PayoutMultiplier: 2.0, CountdownSeconds: 30}
	st := store.NewMemoryStore(time.Hour)
	games := game.NewManager()
	wallet := services.NewWalletService(db)

	settlement := engine.NewSettlementEngine(st, db, wallet, games, rules)
	dealing := engine.NewDealingEngine(st, db, wallet, games, nopEvents{}, rules, settlement)
	return NewAdminService(st, games, dealing, settlement), st
}

func seedCompletedGame(t *testing.T, st store.StateStore, gameID string, winner models.Side) {
	t.Helper()
	now := time.Now().UTC()
	gs := &models.GameState{
		GameID:       gameID,
		Phase:        models.PhaseComplete,
		OpeningCard:  "A♠",
		AndarCards:   []models.Card{"A♦"},
		BaharCards:   []models.Card{"K♥"},
		Winner:       winner,
		WinningCard:  "A♦",
		CurrentRound: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := st.SetGameState(context.Background(), gameID, gs); err != nil {
		t.Fatalf("seed game state: %v", err)
	}
}

func TestResettlePaysLeftoverBets(t *testing.T) {
	db := newOpsDB()
	db.balances[1] = 4000
	admin, st := newAdminFixture(db)
	seedCompletedGame(t, st, "g1", models.SideAndar)

	// A winning bet the first settlement pass could not credit.
	bet := &models.Bet{
		ID:       "bet-1",
		UserID:   1,
		GameID:   "g1",
		Side:     models.SideAndar,
		Amount:   1000,
		Round:    1,
		Status:   models.BetStatusPending,
		PlacedAt: time.Now().UTC(),
	}
	if err := st.AddBet(context.Background(), bet.ID, bet); err != nil {
		t.Fatalf("seed bet: %v", err)
	}

	var reply ResettleReply
	if err := admin.Resettle(&ResettleArgs{GameID: "g1"}, &reply); err != nil {
		t.Fatalf("Resettle: %v", err)
	}

	if reply.BetsSettled != 1 || reply.WinnersPaid != 1 {
		t.Fatalf("reply = %+v, want 1 bet settled and 1 winner paid", reply)
	}
	if reply.TotalPayout != 2000 || reply.Failures != 0 {
		t.Fatalf("reply = %+v, want payout 2000 with no failures", reply)
	}
	if got := db.balances[1]; got != 6000 {
		t.Fatalf("balance = %d, want 6000", got)
	}

	settled, err := st.GetBet(context.Background(), "bet-1")
	if err != nil {
		t.Fatalf("GetBet: %v", err)
	}
	if !settled.Status.Terminal() || settled.Payout != 2000 || settled.PayoutTxID == "" {
		t.Fatalf("bet not closed out after resettle: %+v", settled)
	}
}

func TestResettleSkipsSettledBets(t *testing.T) {
	db := newOpsDB()
	db.balances[1] = 6000
	admin, st := newAdminFixture(db)
	seedCompletedGame(t, st, "g1", models.SideAndar)

	now := time.Now().UTC()
	bet := &models.Bet{
		ID:         "bet-1",
		UserID:     1,
		GameID:     "g1",
		Side:       models.SideAndar,
		Amount:     1000,
		Round:      1,
		Status:     models.BetStatusCompleted,
		Payout:     2000,
		PayoutTxID: "tx-1",
		PlacedAt:   now,
		SettledAt:  &now,
	}
	if err := st.AddBet(context.Background(), bet.ID, bet); err != nil {
		t.Fatalf("seed bet: %v", err)
	}

	var reply ResettleReply
	if err := admin.Resettle(&ResettleArgs{GameID: "g1"}, &reply); err != nil {
		t.Fatalf("Resettle: %v", err)
	}
	if reply.BetsSettled != 0 || reply.WinnersPaid != 0 || reply.TotalPayout != 0 {
		t.Fatalf("reply = %+v, want nothing settled on a second pass", reply)
	}
	if got := db.balances[1]; got != 6000 {
		t.Fatalf("balance = %d, want 6000 (no double credit)", got)
	}
}

func TestResettleRejectsGameWithoutWinner(t *testing.T) {
	db := newOpsDB()
	admin, st := newAdminFixture(db)

	now := time.Now().UTC()
	gs := &models.GameState{
		GameID:       "g1",
		Phase:        models.PhaseBetting,
		OpeningCard:  "A♠",
		AndarCards:   []models.Card{},
		BaharCards:   []models.Card{},
		CurrentRound: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := st.SetGameState(context.Background(), "g1", gs); err != nil {
		t.Fatalf("seed game state: %v", err)
	}

	var reply ResettleReply
	if err := admin.Resettle(&ResettleArgs{GameID: "g1"}, &reply); err == nil {
		t.Fatal("Resettle accepted a game with no winner")
	}
}
