// Package persistence is the durable side of the platform: user
// balances, and the archival trail of settled bets and completed games.
// Live round state lives in store, not here.
package persistence

import (
	"context"
	"errors"

	"github.com/wfunc/andarbahar/models"
)

var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Database is satisfied by both the gorm implementation and the raw
// database/sql one; the server picks one at startup.
type Database interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)

	// AdjustBalance applies delta atomically against the user's balance
	// and records a ledger entry. A negative delta that would take the
	// balance below zero fails with ErrInsufficientBalance and leaves
	// everything untouched.
	AdjustBalance(ctx context.Context, userID int64, delta int64, reason, refID string) (newBalance int64, err error)

	SaveBetRecord(ctx context.Context, bet *models.Bet) error
	SaveGameRecord(ctx context.Context, state *models.GameState) error
	SaveDealtCard(ctx context.Context, dealt *models.DealtCard) error

	Close() error
}
