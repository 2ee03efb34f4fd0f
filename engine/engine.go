// Package engine implements the betting, dealing and settlement rules
// of an Andar Bahar round. Engines mutate authoritative state through
// the store's atomic update primitive under the per-game lock, debit
// and credit balances through the wallet service, and emit state-change
// events through an Events sink while the lock is still held, so
// subscribers observe changes in the order they were applied.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/andarbahar/config"
	"github.com/wfunc/andarbahar/game"
	"github.com/wfunc/andarbahar/models"
	"github.com/wfunc/andarbahar/persistence"
	"github.com/wfunc/andarbahar/services"
	"github.com/wfunc/andarbahar/store"
)

// storeReadRetries bounds retries of idempotent store reads when the
// backing store is remote and flaky. Mutations are never retried.
const storeReadRetries = 3

func nowUTC() time.Time {
	return time.Now().UTC()
}

// Events receives state-change notifications. Engines call it while
// still holding the game lock, which is what carries per-game ordering
// from the state mutation all the way to the subscribers.
type Events interface {
	GameState(gameID string, state *models.GameState)
	TimerUpdate(gameID string, timer int, phase models.Phase)
	CardDealt(gameID string, card models.Card, side models.Side, position int)
	BettingStats(gameID string, andar, bahar int64)
	PhaseChange(gameID string, phase models.Phase, message string)
	GameComplete(gameID string, winner models.Side, winningCard models.Card, totalCards int)
}

type deps struct {
	store  store.StateStore
	db     persistence.Database
	wallet *services.WalletService
	games  *game.Manager
	events Events
	rules  config.GameConfig
}

func (d *deps) getGameState(ctx context.Context, gameID string) (*models.GameState, error) {
	var (
		state *models.GameState
		err   error
	)
	for attempt := 0; attempt < storeReadRetries; attempt++ {
		state, err = d.store.GetGameState(ctx, gameID)
		if err == nil {
			return state, nil
		}
		if err == store.ErrGameNotFound {
			return nil, NewError(CodeGameNotFound, "game not found")
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return nil, NewError(CodeServiceUnavailable, "state store unavailable")
}

func (d *deps) getAllBets(ctx context.Context, gameID string) ([]*models.Bet, error) {
	var (
		bets []*models.Bet
		err  error
	)
	for attempt := 0; attempt < storeReadRetries; attempt++ {
		bets, err = d.store.GetAllBets(ctx, gameID)
		if err == nil {
			return bets, nil
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return nil, NewError(CodeServiceUnavailable, "state store unavailable")
}

// updateGameState applies fn atomically against the stored state, so
// concurrent server processes sharing one store cannot lose updates.
// An *Error returned by fn passes through untouched.
func (d *deps) updateGameState(ctx context.Context, gameID string, fn func(state *models.GameState) error) (*models.GameState, error) {
	state, err := d.store.UpdateGameState(ctx, gameID, fn)
	if err == nil {
		return state, nil
	}
	if err == store.ErrGameNotFound {
		return nil, NewError(CodeGameNotFound, "game not found")
	}
	var typed *Error
	if errors.As(err, &typed) {
		return nil, typed
	}
	return nil, NewError(CodeServiceUnavailable, "game state update failed")
}

// lookupUser maps persistence errors onto the engine taxonomy.
func (d *deps) lookupUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := d.db.GetUser(ctx, userID)
	if err == persistence.ErrRecordNotFound {
		return nil, NewError(CodeUserNotFound, "user not found")
	}
	if err != nil {
		return nil, NewError(CodeServiceUnavailable, "user lookup failed")
	}
	return user, nil
}
