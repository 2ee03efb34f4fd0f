package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wfunc/andarbahar/config"
	"github.com/wfunc/andarbahar/game"
	"github.com/wfunc/andarbahar/logger"
	"github.com/wfunc/andarbahar/models"
	"github.com/wfunc/andarbahar/persistence"
	"github.com/wfunc/andarbahar/services"
	"github.com/wfunc/andarbahar/store"
)

// BettingEngine validates and records player bets.
type BettingEngine struct {
	deps
}

// BetResult is what a successful placement returns; the caller uses it
// for the per-user confirmation (game-wide stats are already emitted).
type BetResult struct {
	Bet        *models.Bet
	NewBalance int64
	State      *models.GameState
	Message    string
}

func NewBettingEngine(st store.StateStore, db persistence.Database, wallet *services.WalletService, games *game.Manager, events Events, rules config.GameConfig) *BettingEngine {
	return &BettingEngine{deps: deps{store: st, db: db, wallet: wallet, games: games, events: events, rules: rules}}
}

// PlaceBet runs the full placement sequence: user and game lookup,
// phase gating, side and amount validation, duplicate check, atomic
// debit, then bet and totals persistence. A failure at any step leaves
// the user's balance and the game state exactly as they were.
func (e *BettingEngine) PlaceBet(ctx context.Context, userID int64, gameID string, side models.Side, amount int64, round int) (*BetResult, error) {
	if _, err := e.lookupUser(ctx, userID); err != nil {
		return nil, err
	}

	// Serialize against deals and other bets on this game.
	sess := e.games.GetOrCreate(gameID, models.PhaseIdle)
	sess.Lock()
	defer sess.Unlock()

	state, err := e.getGameState(ctx, gameID)
	if err != nil {
		return nil, err
	}

	if state.Phase != models.PhaseBetting {
		return nil, NewError(CodeBettingClosed, "betting is closed for this game")
	}
	if !side.Valid() {
		return nil, NewError(CodeInvalidSide, fmt.Sprintf("side must be andar or bahar, got %q", side))
	}
	if amount <= 0 {
		return nil, NewError(CodeInvalidAmount, "bet amount must be positive")
	}
	if amount < e.rules.MinBet {
		return nil, NewError(CodeBelowMinimum, fmt.Sprintf("minimum bet is %d", e.rules.MinBet))
	}
	if amount > e.rules.MaxBet {
		return nil, NewError(CodeAboveMaximum, fmt.Sprintf("maximum bet is %d", e.rules.MaxBet))
	}

	existing, err := e.getAllBets(ctx, gameID)
	if err != nil {
		return nil, err
	}
	for _, bet := range existing {
		if bet.UserID == userID && bet.Round == round && bet.Side == side && !bet.Status.Terminal() {
			return nil, NewError(CodeDuplicateBet,
				fmt.Sprintf("a %s bet for round %d already exists", side, round))
		}
	}

	betID := uuid.New().String()
	newBalance, err := e.wallet.DebitBet(ctx, userID, amount, betID)
	if err == persistence.ErrInsufficientBalance {
		return nil, NewError(CodeInsufficientBalance, "insufficient balance")
	}
	if err == persistence.ErrRecordNotFound {
		return nil, NewError(CodeUserNotFound, "user not found")
	}
	if err != nil {
		return nil, NewError(CodeServiceUnavailable, "balance debit failed")
	}

	bet := &models.Bet{
		ID:       betID,
		UserID:   userID,
		GameID:   gameID,
		Side:     side,
		Amount:   amount,
		Round:    round,
		Status:   models.BetStatusPending,
		PlacedAt: nowUTC(),
	}
	if err := e.store.AddBet(ctx, betID, bet); err != nil {
		e.rollbackDebit(ctx, userID, amount, betID)
		return nil, NewError(CodeServiceUnavailable, "bet could not be recorded")
	}

	// Atomic against updaters in other processes, which the session
	// lock cannot see. The phase is re-checked inside because another
	// instance may have closed betting since the read above.
	updated, err := e.updateGameState(ctx, gameID, func(gs *models.GameState) error {
		if gs.Phase != models.PhaseBetting {
			return NewError(CodeBettingClosed, "betting is closed for this game")
		}
		switch side {
		case models.SideAndar:
			gs.TotalAndarBets += amount
		case models.SideBahar:
			gs.TotalBaharBets += amount
		}
		gs.UpdatedAt = nowUTC()
		return nil
	})
	if err != nil {
		// Undo the bet so no state is left half-applied.
		if delErr := e.store.DeleteBet(ctx, betID); delErr != nil {
			logger.Log.Errorf("failed to delete bet %s during rollback: %v", betID, delErr)
		}
		e.rollbackDebit(ctx, userID, amount, betID)
		return nil, err
	}

	e.events.BettingStats(gameID, updated.TotalAndarBets, updated.TotalBaharBets)

	return &BetResult{
		Bet:        bet,
		NewBalance: newBalance,
		State:      updated,
		Message:    fmt.Sprintf("bet of %d on %s accepted for round %d", amount, side, round),
	}, nil
}

func (e *BettingEngine) rollbackDebit(ctx context.Context, userID, amount int64, betID string) {
	if _, err := e.wallet.RefundBet(ctx, userID, amount, betID); err != nil {
		// A stranded debit is reconciled from the balance ledger.
		logger.Log.Errorf("refund of %d to user %d for bet %s failed: %v", amount, userID, betID, err)
	}
}
