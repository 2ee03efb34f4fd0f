package network

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/wfunc/andarbahar/models"
)

// Every socket message, both directions, is one JSON envelope.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client -> server message types (canonical spellings).
const (
	MsgAuthenticate  = "authenticate"
	MsgSubscribeGame = "subscribe_game"
	MsgSyncRequest   = "sync_request"
	MsgPlaceBet      = "place_bet"
	MsgStartGame     = "start_game"
	MsgDealCard      = "deal_card"
	MsgAdvanceRound  = "advance_round"
)

// Server -> client message types.
const (
	MsgAuthenticated = "authenticated"
	MsgSubscribed    = "subscribed"
	MsgSyncGameState = "sync_game_state"
	MsgTimerUpdate   = "timer_update"
	MsgCardDealt     = "card_dealt"
	MsgBettingStats  = "betting_stats"
	MsgPhaseChange   = "phase_change"
	MsgGameComplete  = "game_complete"
	MsgBetConfirmed  = "bet_confirmed"
	MsgError         = "error"
	MsgBetError      = "bet_error"
)

// Older clients shipped several spellings for the same events; they are
// folded into the canonical names at decode so the router only ever
// switches on one name per semantic event.
var aliases = map[string]string{
	"player:bet":        MsgPlaceBet,
	"bet_placed":        MsgPlaceBet,
	"admin:start-game":  MsgStartGame,
	"admin:deal-card":   MsgDealCard,
	"game_state_update": MsgSyncGameState,
}

// Canonical resolves a wire message type to its canonical name.
func Canonical(msgType string) string {
	if canonical, ok := aliases[msgType]; ok {
		return canonical
	}
	return msgType
}

var validate = validator.New()

// Client -> server payloads.

type AuthenticatePayload struct {
	UserID  int64 `json:"userId" validate:"required"`
	IsAdmin bool  `json:"isAdmin"`
}

type SubscribeGamePayload struct {
	GameID string `json:"gameId" validate:"required"`
}

type SyncRequestPayload struct {
	GameID string `json:"gameId" validate:"required"`
}

type PlaceBetPayload struct {
	GameID string      `json:"gameId" validate:"required"`
	Side   models.Side `json:"side" validate:"required"`
	Amount int64       `json:"amount" validate:"required,gt=0"`
	Round  int         `json:"round" validate:"required,gte=1"`
}

type StartGamePayload struct {
	OpeningCard string `json:"openingCard" validate:"required"`
}

type DealCardPayload struct {
	GameID   string      `json:"gameId" validate:"required"`
	Card     string      `json:"card" validate:"required"`
	Side     models.Side `json:"side" validate:"required"`
	Position int         `json:"position" validate:"gte=0"`
}

type AdvanceRoundPayload struct {
	GameID string `json:"gameId" validate:"required"`
}

// Server -> client payloads.

type AuthenticatedPayload struct {
	ClientID string `json:"clientId"`
	UserID   int64  `json:"userId"`
}

type SubscribedPayload struct {
	GameID string `json:"gameId"`
}

type SyncGameStatePayload struct {
	GameState *models.GameState `json:"gameState"`
}

type TimerUpdatePayload struct {
	Timer int          `json:"timer"`
	Phase models.Phase `json:"phase"`
}

type CardDealtPayload struct {
	Card     models.Card `json:"card"`
	Side     models.Side `json:"side"`
	Position int         `json:"position"`
}

type BettingStatsPayload struct {
	AndarBets int64 `json:"andarBets"`
	BaharBets int64 `json:"baharBets"`
	TotalBets int64 `json:"totalBets"`
}

type PhaseChangePayload struct {
	Phase   models.Phase `json:"phase"`
	Message string       `json:"message,omitempty"`
}

type GameCompletePayload struct {
	Winner      models.Side `json:"winner"`
	WinningCard models.Card `json:"winningCard"`
	TotalCards  int         `json:"totalCards"`
}

type BetConfirmedPayload struct {
	NewBalance int64  `json:"newBalance"`
	Message    string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// DecodePayload unmarshals an envelope's data into a typed payload and
// runs struct validation on it.
func DecodePayload(data json.RawMessage, payload any) error {
	if err := json.Unmarshal(data, payload); err != nil {
		return err
	}
	return validate.Struct(payload)
}

// NewEnvelope marshals a payload into an envelope. Marshal failures are
// programming errors (all payload types are plain structs), so they are
// returned rather than panicking but callers rarely need to check.
func NewEnvelope(msgType string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: msgType, Data: data}, nil
}
