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
	"github.com/wfunc/andarbahar/state"
	"github.com/wfunc/andarbahar/store"
)

// DealingEngine validates and records admin card deals and owns the
// admin-triggered phase transitions.
type DealingEngine struct {
	deps
	settlement *SettlementEngine
}

// DealResult is returned to the caller for broadcast.
type DealResult struct {
	State      *models.GameState
	Dealt      *models.DealtCard
	Settlement *SettlementSummary // non-nil when this deal completed the game
}

func NewDealingEngine(st store.StateStore, db persistence.Database, wallet *services.WalletService, games *game.Manager, events Events, rules config.GameConfig, settlement *SettlementEngine) *DealingEngine {
	return &DealingEngine{
		deps:       deps{store: st, db: db, wallet: wallet, games: games, events: events, rules: rules},
		settlement: settlement,
	}
}

// authorize rejects callers without the admin role.
func (e *DealingEngine) authorize(ctx context.Context, adminID int64) error {
	user, err := e.lookupUser(ctx, adminID)
	if err != nil {
		return err
	}
	if !user.IsAdmin {
		return NewError(CodeUnauthorized, "admin role required")
	}
	return nil
}

// StartGame creates a fresh game: new gameID, the admin's opening card,
// phase betting, countdown from the table rules.
func (e *DealingEngine) StartGame(ctx context.Context, openingCard string, adminID int64) (*models.GameState, error) {
	if err := e.authorize(ctx, adminID); err != nil {
		return nil, err
	}

	card, err := models.ParseCard(openingCard)
	if err != nil {
		return nil, NewError(CodeInvalidCard, err.Error())
	}

	gameID := uuid.New().String()
	now := nowUTC()
	gs := &models.GameState{
		GameID:       gameID,
		Phase:        models.PhaseBetting,
		OpeningCard:  card,
		AndarCards:   []models.Card{},
		BaharCards:   []models.Card{},
		CurrentRound: 1,
		Countdown:    e.rules.CountdownSeconds,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.SetGameState(ctx, gameID, gs); err != nil {
		return nil, NewError(CodeServiceUnavailable, "game state could not be stored")
	}

	e.games.Create(gameID, models.PhaseBetting)
	e.events.PhaseChange(gameID, models.PhaseBetting, "betting is open")
	return gs, nil
}

// DealCard appends a card to one side, records the deal, and when the
// card's rank matches the opening card settles the game before
// returning.
func (e *DealingEngine) DealCard(ctx context.Context, gameID string, cardToken string, side models.Side, position int, adminID int64) (*DealResult, error) {
	if err := e.authorize(ctx, adminID); err != nil {
		return nil, err
	}

	card, err := models.ParseCard(cardToken)
	if err != nil {
		return nil, NewError(CodeInvalidCard, err.Error())
	}
	if !side.Valid() {
		return nil, NewError(CodeInvalidSide, fmt.Sprintf("side must be andar or bahar, got %q", side))
	}

	sess := e.games.GetOrCreate(gameID, models.PhaseIdle)
	sess.Lock()
	defer sess.Unlock()

	// The append and the winner decision commit atomically, so another
	// instance dealing or accepting a late bet cannot interleave with
	// them. Once the phase flips to complete here, every other writer's
	// phase re-check fails.
	gs, err := e.updateGameState(ctx, gameID, func(gs *models.GameState) error {
		if gs.Phase != models.PhaseDealing {
			return NewError(CodeWrongPhase, fmt.Sprintf("cannot deal while phase is %s", gs.Phase))
		}
		switch side {
		case models.SideAndar:
			gs.AndarCards = append(gs.AndarCards, card)
		case models.SideBahar:
			gs.BaharCards = append(gs.BaharCards, card)
		}
		if card.MatchesRank(gs.OpeningCard) {
			gs.Winner = side
			gs.WinningCard = card
			gs.Phase = models.PhaseComplete
		}
		gs.UpdatedAt = nowUTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	dealt := &models.DealtCard{
		GameID:   gameID,
		Card:     card,
		Side:     side,
		Position: position,
		Winning:  card.MatchesRank(gs.OpeningCard),
		DealtAt:  nowUTC(),
	}
	result := &DealResult{State: gs, Dealt: dealt}

	if err := e.db.SaveDealtCard(ctx, dealt); err != nil {
		logger.Log.Errorf("archiving dealt card for game %s failed: %v", gameID, err)
	}
	e.events.CardDealt(gameID, card, side, position)

	if dealt.Winning {
		sess.Phase.Set(models.PhaseComplete)

		// Settle while still holding the game lock so no bet can slip
		// in between the winning deal and the payout pass.
		summary := e.settlement.settleLocked(ctx, gs, side)
		result.Settlement = summary

		if err := e.db.SaveGameRecord(ctx, gs); err != nil {
			logger.Log.Errorf("archiving game %s failed: %v", gameID, err)
		}
		e.events.PhaseChange(gameID, models.PhaseComplete, fmt.Sprintf("%s wins", side))
		e.events.GameComplete(gameID, side, card, gs.TotalCards())
	}
	return result, nil
}

// AdvanceRound reopens betting after a dealing stretch produced no
// winner. Only transition that re-enters betting; complete games stay
// complete.
func (e *DealingEngine) AdvanceRound(ctx context.Context, gameID string, adminID int64) (*models.GameState, error) {
	if err := e.authorize(ctx, adminID); err != nil {
		return nil, err
	}

	sess := e.games.GetOrCreate(gameID, models.PhaseIdle)
	sess.Lock()
	defer sess.Unlock()

	gs, err := e.updateGameState(ctx, gameID, func(gs *models.GameState) error {
		if !state.Allowed(gs.Phase, models.PhaseBetting) {
			return NewError(CodeWrongPhase, fmt.Sprintf("cannot reopen betting from phase %s", gs.Phase))
		}
		gs.CurrentRound++
		gs.Countdown = e.rules.CountdownSeconds
		gs.Phase = models.PhaseBetting
		gs.UpdatedAt = nowUTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sess.Phase.Set(models.PhaseBetting)
	e.events.PhaseChange(gameID, models.PhaseBetting, fmt.Sprintf("betting reopened for round %d", gs.CurrentRound))
	e.events.GameState(gameID, gs)
	return gs, nil
}

// Tick decrements the betting countdown by one second and flips the
// game into dealing when it reaches zero. The countdown is advisory:
// bets are gated on phase, never on the timer itself.
func (e *DealingEngine) Tick(ctx context.Context, gameID string) (*models.GameState, error) {
	sess := e.games.GetOrCreate(gameID, models.PhaseIdle)
	sess.Lock()
	defer sess.Unlock()

	var ticked, flipped bool
	gs, err := e.updateGameState(ctx, gameID, func(gs *models.GameState) error {
		ticked, flipped = false, false
		if gs.Phase != models.PhaseBetting {
			return nil
		}
		ticked = true
		if gs.Countdown > 0 {
			gs.Countdown--
		}
		if gs.Countdown == 0 {
			gs.Phase = models.PhaseDealing
			flipped = true
		}
		gs.UpdatedAt = nowUTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ticked {
		e.events.TimerUpdate(gameID, gs.Countdown, gs.Phase)
	}
	if flipped {
		sess.Phase.Set(models.PhaseDealing)
		e.events.PhaseChange(gameID, models.PhaseDealing, "betting closed, dealing begins")
	}
	return gs, nil
}

// SetCountdown overrides the remaining betting window, for the admin
// timer endpoint.
func (e *DealingEngine) SetCountdown(ctx context.Context, gameID string, seconds int) (*models.GameState, error) {
	if seconds < 0 {
		seconds = 0
	}

	sess := e.games.GetOrCreate(gameID, models.PhaseIdle)
	sess.Lock()
	defer sess.Unlock()

	var flipped bool
	gs, err := e.updateGameState(ctx, gameID, func(gs *models.GameState) error {
		flipped = false
		if gs.Phase != models.PhaseBetting {
			return NewError(CodeWrongPhase, fmt.Sprintf("no betting window to adjust in phase %s", gs.Phase))
		}
		gs.Countdown = seconds
		if gs.Countdown == 0 {
			gs.Phase = models.PhaseDealing
			flipped = true
		}
		gs.UpdatedAt = nowUTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.events.TimerUpdate(gameID, gs.Countdown, gs.Phase)
	if flipped {
		sess.Phase.Set(models.PhaseDealing)
		e.events.PhaseChange(gameID, models.PhaseDealing, "betting closed, dealing begins")
	}
	return gs, nil
}

// ResetGame cancels a game: every non-terminal bet is refunded and
// marked cancelled, then the live state is dropped.
func (e *DealingEngine) ResetGame(ctx context.Context, gameID string) error {
	sess := e.games.GetOrCreate(gameID, models.PhaseIdle)
	sess.Lock()
	defer sess.Unlock()

	bets, err := e.getAllBets(ctx, gameID)
	if err != nil {
		return err
	}
	now := nowUTC()
	for _, bet := range bets {
		if bet.Status.Terminal() {
			continue
		}
		if _, err := e.wallet.RefundBet(ctx, bet.UserID, bet.Amount, bet.ID); err != nil {
			logger.Log.Errorf("refund for cancelled bet %s failed: %v", bet.ID, err)
			continue
		}
		bet.Status = models.BetStatusCancelled
		bet.SettledAt = &now
		if err := e.store.AddBet(ctx, bet.ID, bet); err != nil {
			logger.Log.Errorf("marking bet %s cancelled failed: %v", bet.ID, err)
		}
		if err := e.db.SaveBetRecord(ctx, bet); err != nil {
			logger.Log.Errorf("archiving cancelled bet %s failed: %v", bet.ID, err)
		}
	}

	if err := e.store.DeleteGameState(ctx, gameID); err != nil {
		return NewError(CodeServiceUnavailable, "game state could not be deleted")
	}
	e.games.Remove(gameID)
	e.events.PhaseChange(gameID, models.PhaseIdle, "game reset")
	return nil
}
