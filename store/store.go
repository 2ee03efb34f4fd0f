// Package store holds the live state of running games and their bets.
// Entries carry a TTL so abandoned games disappear on their own; the
// durable record of a finished game lives in persistence, not here.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/andarbahar/config"
	"github.com/wfunc/andarbahar/logger"
	"github.com/wfunc/andarbahar/models"
)

var (
	ErrGameNotFound = errors.New("game state not found")
	ErrBetNotFound  = errors.New("bet not found")
)

// StateStore is the live key-value store for game state, bets and
// presence. Two backends satisfy it: an in-process map for a single
// server instance, and Redis for multi-instance deployments. Business
// logic never branches on which one is in use.
type StateStore interface {
	GetGameState(ctx context.Context, gameID string) (*models.GameState, error)
	SetGameState(ctx context.Context, gameID string, state *models.GameState) error

	// UpdateGameState applies fn to the stored state and persists the
	// result atomically with respect to every other updater, including
	// ones in other server processes when the backend is shared. fn may
	// run more than once on write conflicts, so it must be free of side
	// effects; returning an error aborts the update and surfaces that
	// error unchanged. All read-modify-write mutations of game state go
	// through here, never through GetGameState + SetGameState.
	UpdateGameState(ctx context.Context, gameID string, fn func(state *models.GameState) error) (*models.GameState, error)

	DeleteGameState(ctx context.Context, gameID string) error

	AddBet(ctx context.Context, betID string, bet *models.Bet) error
	GetBet(ctx context.Context, betID string) (*models.Bet, error)
	GetAllBets(ctx context.Context, gameID string) ([]*models.Bet, error)
	DeleteBet(ctx context.Context, betID string) error

	AddPlayer(ctx context.Context, gameID string, userID int64) error
	RemovePlayer(ctx context.Context, gameID string, userID int64) error
	GetPlayers(ctx context.Context, gameID string) ([]int64, error)

	Close() error
}

// New selects a backend from configuration. Redis is used whenever an
// address is configured; otherwise the in-memory store is used, which is
// only correct when exactly one server process serves all clients.
func New(cfg *config.Config) (StateStore, error) {
	ttl := cfg.Game.StateTTL()

	if cfg.Redis.Address != "" {
		return NewRedisStore(cfg.Redis, ttl)
	}

	if cfg.IsProduction() {
		logger.Log.Warn("no redis configured in production: falling back to the in-memory state store, " +
			"which silently breaks consistency if more than one server instance runs")
	}
	return NewMemoryStore(ttl), nil
}

// clock is overridable in tests.
type clock func() time.Time
