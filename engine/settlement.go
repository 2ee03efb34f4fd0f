package engine

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/wfunc/andarbahar/config"
	"github.com/wfunc/andarbahar/game"
	"github.com/wfunc/andarbahar/logger"
	"github.com/wfunc/andarbahar/models"
	"github.com/wfunc/andarbahar/persistence"
	"github.com/wfunc/andarbahar/services"
	"github.com/wfunc/andarbahar/store"
)

// SettlementEngine credits winners and closes out every bet once a
// game's winner is known.
type SettlementEngine struct {
	deps
}

// SettlementSummary reports one settlement pass.
type SettlementSummary struct {
	GameID      string
	WinningSide models.Side
	BetsSettled int
	WinnersPaid int
	TotalPayout int64
	Failures    int
}

func NewSettlementEngine(st store.StateStore, db persistence.Database, wallet *services.WalletService, games *game.Manager, rules config.GameConfig) *SettlementEngine {
	return &SettlementEngine{deps: deps{store: st, db: db, wallet: wallet, games: games, rules: rules}}
}

// Settle runs a settlement pass for a completed game. Safe to invoke
// again after a partial failure: terminal bets are skipped, so no user
// is ever credited twice.
func (e *SettlementEngine) Settle(ctx context.Context, gameID string, winningSide models.Side) (*SettlementSummary, error) {
	sess := e.games.GetOrCreate(gameID, models.PhaseComplete)
	sess.Lock()
	defer sess.Unlock()

	gs, err := e.getGameState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return e.settleLocked(ctx, gs, winningSide), nil
}

// settleLocked is the pass itself; the caller holds the game lock.
// Individual credit failures are logged and counted but never abort the
// pass: a bad account must not freeze payouts for the rest of the game.
// Failed bets stay non-terminal so a retry pass picks them up.
func (e *SettlementEngine) settleLocked(ctx context.Context, gs *models.GameState, winningSide models.Side) *SettlementSummary {
	summary := &SettlementSummary{GameID: gs.GameID, WinningSide: winningSide}

	bets, err := e.getAllBets(ctx, gs.GameID)
	if err != nil {
		logger.Log.Errorf("settlement of game %s could not list bets: %v", gs.GameID, err)
		summary.Failures++
		return summary
	}

	now := nowUTC()
	for _, bet := range bets {
		if bet.Status.Terminal() {
			continue
		}

		if bet.Side == winningSide {
			payout := int64(math.Round(float64(bet.Amount) * e.rules.PayoutMultiplier))
			txID := uuid.New().String()
			if _, err := e.wallet.CreditPayout(ctx, bet.UserID, payout, txID); err != nil {
				logger.Log.Errorf("payout of %d to user %d for bet %s failed: %v", payout, bet.UserID, bet.ID, err)
				summary.Failures++
				continue
			}
			bet.Payout = payout
			bet.PayoutTxID = txID
			summary.WinnersPaid++
			summary.TotalPayout += payout
		} else {
			bet.Payout = 0
		}

		bet.Status = models.BetStatusCompleted
		bet.SettledAt = &now
		if err := e.store.AddBet(ctx, bet.ID, bet); err != nil {
			// The credit landed but the terminal status did not persist;
			// the payout tx id on the ledger is the guard a retry
			// reconciles against.
			logger.Log.Errorf("persisting settled bet %s failed: %v", bet.ID, err)
			summary.Failures++
			continue
		}
		if err := e.db.SaveBetRecord(ctx, bet); err != nil {
			logger.Log.Errorf("archiving settled bet %s failed: %v", bet.ID, err)
		}
		summary.BetsSettled++
	}

	return summary
}
