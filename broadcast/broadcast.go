// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/andarbahar/logger"
	"github.com/wfunc/andarbahar/models"
	"github.com/wfunc/andarbahar/network"
	"github.com/wfunc/andarbahar/session"
)

// Broadcaster fans state changes out to subscribed clients. Delivery is
// best-effort per connection: a failed send drops nothing server-side,
// the client re-subscribes and requests a snapshot on reconnect.
// Per-game ordering holds because engines emit while holding the game
// lock and each connection serializes its writes.
type Broadcaster interface {
	BroadcastToGame(gameID string, env *network.Envelope)
	BroadcastToUsers(userIDs []int64, env *network.Envelope)

	GameState(gameID string, state *models.GameState)
	TimerUpdate(gameID string, timer int, phase models.Phase)
	CardDealt(gameID string, card models.Card, side models.Side, position int)
	BettingStats(gameID string, andar, bahar int64)
	PhaseChange(gameID string, phase models.Phase, message string)
	GameComplete(gameID string, winner models.Side, winningCard models.Card, totalCards int)
}

// GameBroadcaster delivers over the session manager's subscriber sets.
type GameBroadcaster struct {
	sessions *session.Manager
}

func NewGameBroadcaster(sessions *session.Manager) *GameBroadcaster {
	return &GameBroadcaster{sessions: sessions}
}

func (b *GameBroadcaster) BroadcastToGame(gameID string, env *network.Envelope) {
	for _, s := range b.sessions.GetByGame(gameID) {
		if err := s.Send(env); err != nil {
			logger.Log.Debugf("dropping send to session %s: %v", s.GetID(), err)
		}
	}
}

func (b *GameBroadcaster) BroadcastToUsers(userIDs []int64, env *network.Envelope) {
	for _, userID := range userIDs {
		for _, s := range b.sessions.GetByUserID(userID) {
			if err := s.Send(env); err != nil {
				logger.Log.Debugf("dropping send to session %s: %v", s.GetID(), err)
			}
		}
	}
}

func (b *GameBroadcaster) GameState(gameID string, state *models.GameState) {
	env, err := network.NewEnvelope(network.MsgSyncGameState, network.SyncGameStatePayload{GameState: state})
	if err != nil {
		logger.Log.Errorf("encode sync_game_state: %v", err)
		return
	}
	b.BroadcastToGame(gameID, env)
}

func (b *GameBroadcaster) TimerUpdate(gameID string, timer int, phase models.Phase) {
	env, err := network.NewEnvelope(network.MsgTimerUpdate, network.TimerUpdatePayload{Timer: timer, Phase: phase})
	if err != nil {
		logger.Log.Errorf("encode timer_update: %v", err)
		return
	}
	b.BroadcastToGame(gameID, env)
}

func (b *GameBroadcaster) CardDealt(gameID string, card models.Card, side models.Side, position int) {
	env, err := network.NewEnvelope(network.MsgCardDealt, network.CardDealtPayload{Card: card, Side: side, Position: position})
	if err != nil {
		logger.Log.Errorf("encode card_dealt: %v", err)
		return
	}
	b.BroadcastToGame(gameID, env)
}

func (b *GameBroadcaster) BettingStats(gameID string, andar, bahar int64) {
	env, err := network.NewEnvelope(network.MsgBettingStats, network.BettingStatsPayload{
		AndarBets: andar,
		BaharBets: bahar,
		TotalBets: andar + bahar,
	})
	if err != nil {
		logger.Log.Errorf("encode betting_stats: %v", err)
		return
	}
	b.BroadcastToGame(gameID, env)
}

func (b *GameBroadcaster) PhaseChange(gameID string, phase models.Phase, message string) {
	env, err := network.NewEnvelope(network.MsgPhaseChange, network.PhaseChangePayload{Phase: phase, Message: message})
	if err != nil {
		logger.Log.Errorf("encode phase_change: %v", err)
		return
	}
	b.BroadcastToGame(gameID, env)
}

func (b *GameBroadcaster) GameComplete(gameID string, winner models.Side, winningCard models.Card, totalCards int) {
	env, err := network.NewEnvelope(network.MsgGameComplete, network.GameCompletePayload{
		Winner:      winner,
		WinningCard: winningCard,
		TotalCards:  totalCards,
	})
	if err != nil {
		logger.Log.Errorf("encode game_complete: %v", err)
		return
	}
	b.BroadcastToGame(gameID, env)
}
