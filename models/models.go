package models

import (
	"time"
)

// Phase is the coarse game-session state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseBetting  Phase = "betting"
	PhaseDealing  Phase = "dealing"
	PhaseComplete Phase = "complete"
)

// Side is one of the two betting positions relative to the opening card.
type Side string

const (
	SideAndar Side = "andar"
	SideBahar Side = "bahar"
)

func (s Side) Valid() bool {
	return s == SideAndar || s == SideBahar
}

// BetStatus lifecycle: pending while the game runs, terminal after
// settlement or cancellation.
type BetStatus string

const (
	BetStatusPending   BetStatus = "pending"
	BetStatusActive    BetStatus = "active"
	BetStatusWon       BetStatus = "won"
	BetStatusLost      BetStatus = "lost"
	BetStatusCompleted BetStatus = "completed"
	BetStatusCancelled BetStatus = "cancelled"
)

// Terminal reports whether a bet has been settled and must never be
// mutated again.
func (s BetStatus) Terminal() bool {
	return s == BetStatusWon || s == BetStatusLost ||
		s == BetStatusCompleted || s == BetStatusCancelled
}

// GameState is the single authoritative state of one running game.
// All mutation happens under the per-game lock; clients render from
// pushed copies of this struct, never from local prediction.
type GameState struct {
	GameID         string    `json:"game_id" redis:"game_id"`
	Phase          Phase     `json:"phase" redis:"phase"`
	OpeningCard    Card      `json:"opening_card,omitempty" redis:"opening_card"`
	AndarCards     []Card    `json:"andar_cards" redis:"andar_cards"`
	BaharCards     []Card    `json:"bahar_cards" redis:"bahar_cards"`
	CurrentRound   int       `json:"current_round" redis:"current_round"`
	Countdown      int       `json:"countdown" redis:"countdown"`
	TotalAndarBets int64     `json:"total_andar_bets" redis:"total_andar_bets"`
	TotalBaharBets int64     `json:"total_bahar_bets" redis:"total_bahar_bets"`
	Winner         Side      `json:"winner,omitempty" redis:"winner"`
	WinningCard    Card      `json:"winning_card,omitempty" redis:"winning_card"`
	CreatedAt      time.Time `json:"created_at" redis:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" redis:"updated_at"`
}

// TotalCards is the number of cards dealt so far, excluding the opening
// card.
func (g *GameState) TotalCards() int {
	return len(g.AndarCards) + len(g.BaharCards)
}

// Bet is one accepted stake. Amounts are minor currency units.
type Bet struct {
	ID         string     `json:"id" redis:"id"`
	UserID     int64      `json:"user_id" redis:"user_id"`
	GameID     string     `json:"game_id" redis:"game_id"`
	Side       Side       `json:"side" redis:"side"`
	Amount     int64      `json:"amount" redis:"amount"`
	Round      int        `json:"round" redis:"round"`
	Status     BetStatus  `json:"status" redis:"status"`
	Payout     int64      `json:"payout" redis:"payout"`
	PayoutTxID string     `json:"payout_tx_id,omitempty" redis:"payout_tx_id"`
	PlacedAt   time.Time  `json:"placed_at" redis:"placed_at"`
	SettledAt  *time.Time `json:"settled_at,omitempty" redis:"settled_at"`
}

// DealtCard records a single deal for display ordering. Position is
// caller-supplied; alternation of sides is a client convention, not an
// engine invariant.
type DealtCard struct {
	GameID   string    `json:"game_id"`
	Card     Card      `json:"card"`
	Side     Side      `json:"side"`
	Position int       `json:"position"`
	Winning  bool      `json:"winning"`
	DealtAt  time.Time `json:"dealt_at"`
}

// User is the balance-owning entity referenced by the engines. The
// authentication subsystem owns everything else about it.
type User struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
	IsAdmin bool   `json:"is_admin"`
}
