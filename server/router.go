package server

import (
	"context"
	"time"

	"github.com/wfunc/andarbahar/engine"
	"github.com/wfunc/andarbahar/logger"
	"github.com/wfunc/andarbahar/models"
	"github.com/wfunc/andarbahar/network"
	"github.com/wfunc/andarbahar/session"
)

const handlerTimeout = 10 * time.Second

// handleEnvelope routes one inbound message. Everything except
// authenticate requires an authenticated session first.
func (s *GameServer) handleEnvelope(sess *session.Session, env *network.Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if env.Type != network.MsgAuthenticate && !sess.Authenticated() {
		s.sendError(sess, network.MsgError, engine.CodeAuthRequired, "authenticate before sending anything else")
		return
	}

	switch env.Type {
	case network.MsgAuthenticate:
		s.handleAuthenticate(sess, env)
	case network.MsgSubscribeGame:
		s.handleSubscribeGame(ctx, sess, env)
	case network.MsgSyncRequest:
		s.handleSyncRequest(ctx, sess, env)
	case network.MsgPlaceBet:
		s.handlePlaceBet(ctx, sess, env)
	case network.MsgStartGame:
		s.handleStartGame(ctx, sess, env)
	case network.MsgDealCard:
		s.handleDealCard(ctx, sess, env)
	case network.MsgAdvanceRound:
		s.handleAdvanceRound(ctx, sess, env)
	default:
		logger.Log.Infof("Unknown message type %q from session %s", env.Type, sess.GetID())
		s.sendError(sess, network.MsgError, "", "unknown message type: "+env.Type)
	}
}

func (s *GameServer) handleAuthenticate(sess *session.Session, env *network.Envelope) {
	var payload network.AuthenticatePayload
	if err := network.DecodePayload(env.Data, &payload); err != nil {
		s.sendError(sess, network.MsgError, "", "invalid authenticate payload")
		return
	}

	role := session.RolePlayer
	if payload.IsAdmin {
		role = session.RoleAdmin
	}
	sess.Authenticate(payload.UserID, role)

	s.reply(sess, network.MsgAuthenticated, network.AuthenticatedPayload{
		ClientID: sess.GetID(),
		UserID:   payload.UserID,
	})
}

func (s *GameServer) handleSubscribeGame(ctx context.Context, sess *session.Session, env *network.Envelope) {
	var payload network.SubscribeGamePayload
	if err := network.DecodePayload(env.Data, &payload); err != nil {
		s.sendError(sess, network.MsgError, "", "invalid subscribe_game payload")
		return
	}

	sess.Subscribe(payload.GameID)
	if err := s.store.AddPlayer(ctx, payload.GameID, sess.GetUserID()); err != nil {
		logger.Log.Debugf("presence add for session %s: %v", sess.GetID(), err)
	}

	s.reply(sess, network.MsgSubscribed, network.SubscribedPayload{GameID: payload.GameID})
	// Initial snapshot so the client renders without waiting for the
	// next delta.
	s.sendSnapshot(ctx, sess, payload.GameID)
}

func (s *GameServer) handleSyncRequest(ctx context.Context, sess *session.Session, env *network.Envelope) {
	var payload network.SyncRequestPayload
	if err := network.DecodePayload(env.Data, &payload); err != nil {
		s.sendError(sess, network.MsgError, "", "invalid sync_request payload")
		return
	}
	s.sendSnapshot(ctx, sess, payload.GameID)
}

func (s *GameServer) sendSnapshot(ctx context.Context, sess *session.Session, gameID string) {
	state, err := s.store.GetGameState(ctx, gameID)
	if err != nil {
		s.sendError(sess, network.MsgError, engine.CodeGameNotFound, "game not found")
		return
	}
	s.reply(sess, network.MsgSyncGameState, network.SyncGameStatePayload{GameState: state})
}

func (s *GameServer) handlePlaceBet(ctx context.Context, sess *session.Session, env *network.Envelope) {
	var payload network.PlaceBetPayload
	if err := network.DecodePayload(env.Data, &payload); err != nil {
		s.sendError(sess, network.MsgBetError, engine.CodeInvalidAmount, "invalid place_bet payload")
		return
	}

	result, err := s.betting.PlaceBet(ctx, sess.GetUserID(), payload.GameID, payload.Side, payload.Amount, payload.Round)
	if err != nil {
		s.sendEngineError(sess, network.MsgBetError, err)
		if e, ok := engine.AsError(err); ok {
			s.monitor.IncBetsRejected(string(e.Code))
		}
		return
	}

	s.monitor.IncBetsPlaced()

	// The stats delta already went to the game's subscribers; the
	// confirmation with the new balance goes to every session of this
	// user, so a second device sees the balance move too.
	confirmed, err := network.NewEnvelope(network.MsgBetConfirmed, network.BetConfirmedPayload{
		NewBalance: result.NewBalance,
		Message:    result.Message,
	})
	if err != nil {
		logger.Log.Errorf("encode bet_confirmed: %v", err)
		return
	}
	s.broadcaster.BroadcastToUsers([]int64{sess.GetUserID()}, confirmed)
}

func (s *GameServer) handleStartGame(ctx context.Context, sess *session.Session, env *network.Envelope) {
	if !sess.IsAdmin() {
		s.sendError(sess, network.MsgError, engine.CodeUnauthorized, "admin role required")
		return
	}

	var payload network.StartGamePayload
	if err := network.DecodePayload(env.Data, &payload); err != nil {
		s.sendError(sess, network.MsgError, engine.CodeInvalidCard, "invalid start_game payload")
		return
	}

	state, err := s.dealing.StartGame(ctx, payload.OpeningCard, sess.GetUserID())
	if err != nil {
		s.sendEngineError(sess, network.MsgError, err)
		return
	}

	// The admin console watches the game it just started.
	sess.Subscribe(state.GameID)
	s.monitor.SetActiveGames(s.games.Count())

	s.reply(sess, network.MsgSyncGameState, network.SyncGameStatePayload{GameState: state})
	s.startCountdown(state.GameID)
}

func (s *GameServer) handleDealCard(ctx context.Context, sess *session.Session, env *network.Envelope) {
	if !sess.IsAdmin() {
		s.sendError(sess, network.MsgError, engine.CodeUnauthorized, "admin role required")
		return
	}

	var payload network.DealCardPayload
	if err := network.DecodePayload(env.Data, &payload); err != nil {
		s.sendError(sess, network.MsgError, engine.CodeInvalidCard, "invalid deal_card payload")
		return
	}

	result, err := s.dealing.DealCard(ctx, payload.GameID, payload.Card, payload.Side, payload.Position, sess.GetUserID())
	if err != nil {
		s.sendEngineError(sess, network.MsgError, err)
		return
	}

	s.monitor.IncCardsDealt()
	// The card and completion events already went out under the game
	// lock; only the bookkeeping is left here.
	if result.Settlement != nil {
		s.monitor.AddPayout(result.Settlement.TotalPayout)
		s.games.Remove(payload.GameID)
		s.monitor.SetActiveGames(s.games.Count())
	}
}

func (s *GameServer) handleAdvanceRound(ctx context.Context, sess *session.Session, env *network.Envelope) {
	if !sess.IsAdmin() {
		s.sendError(sess, network.MsgError, engine.CodeUnauthorized, "admin role required")
		return
	}

	var payload network.AdvanceRoundPayload
	if err := network.DecodePayload(env.Data, &payload); err != nil {
		s.sendError(sess, network.MsgError, "", "invalid advance_round payload")
		return
	}

	state, err := s.dealing.AdvanceRound(ctx, payload.GameID, sess.GetUserID())
	if err != nil {
		s.sendEngineError(sess, network.MsgError, err)
		return
	}

	s.startCountdown(state.GameID)
}

// startCountdown drives one betting window: a repeating one-second task
// ticks the engine (which emits timer_update itself) and unschedules
// itself once the phase leaves betting. The task receives its own ID
// from the timer manager, so there is no shared variable between this
// goroutine and the callback.
func (s *GameServer) startCountdown(gameID string) {
	sess, exists := s.games.Get(gameID)
	if !exists {
		return
	}
	if id := sess.TimerID(); id != 0 {
		s.timers.Remove(id)
	}

	taskID := s.timers.Add(time.Second, time.Second, func(taskID int64) {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		state, err := s.dealing.Tick(ctx, gameID)
		if err != nil {
			logger.Log.Debugf("countdown tick for game %s: %v", gameID, err)
			s.timers.Remove(taskID)
			return
		}
		if state.Phase != models.PhaseBetting {
			s.timers.Remove(taskID)
		}
	})
	sess.SetTimerID(taskID)
}

func (s *GameServer) reply(sess *session.Session, msgType string, payload any) {
	env, err := network.NewEnvelope(msgType, payload)
	if err != nil {
		logger.Log.Errorf("encode %s: %v", msgType, err)
		return
	}
	if err := sess.Send(env); err != nil {
		logger.Log.Debugf("reply to session %s failed: %v", sess.GetID(), err)
	}
}

func (s *GameServer) sendError(sess *session.Session, msgType string, code engine.Code, message string) {
	s.reply(sess, msgType, network.ErrorPayload{Message: message, Code: string(code)})
}

// sendEngineError converts an engine failure into the wire taxonomy;
// anything untyped becomes a generic service failure so the client can
// re-request a sync.
func (s *GameServer) sendEngineError(sess *session.Session, msgType string, err error) {
	if e, ok := engine.AsError(err); ok {
		s.sendError(sess, msgType, e.Code, e.Message)
		return
	}
	logger.Log.Errorf("unexpected engine error: %v", err)
	s.sendError(sess, msgType, engine.CodeServiceUnavailable, "temporary failure, please sync and retry")
}
