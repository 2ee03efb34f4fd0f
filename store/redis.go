package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wfunc/andarbahar/config"
	"github.com/wfunc/andarbahar/models"
)

// RedisStore is the shared backend: durable across restarts and safe for
// multiple server processes. Values are JSON; per-game bet and player
// membership lives in sets keyed alongside the state.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(cfg config.RedisConfig, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

func gameKey(gameID string) string     { return "game:" + gameID }
func betKey(betID string) string       { return "bet:" + betID }
func gameBetsKey(gameID string) string { return "game:" + gameID + ":bets" }
func playersKey(gameID string) string  { return "game:" + gameID + ":players" }

func (s *RedisStore) GetGameState(ctx context.Context, gameID string) (*models.GameState, error) {
	data, err := s.client.Get(ctx, gameKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game state: %w", err)
	}

	var state models.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	return &state, nil
}

func (s *RedisStore) SetGameState(ctx context.Context, gameID string, state *models.GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode game state: %w", err)
	}
	if err := s.client.Set(ctx, gameKey(gameID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set game state: %w", err)
	}
	return nil
}

// updateConflictRetries bounds the optimistic-concurrency loop in
// UpdateGameState. A game sees at most a handful of writers, so a
// conflict streak this long means something is badly wrong.
const updateConflictRetries = 8

func (s *RedisStore) UpdateGameState(ctx context.Context, gameID string, fn func(state *models.GameState) error) (*models.GameState, error) {
	key := gameKey(gameID)
	var updated *models.GameState

	// WATCH/MULTI check-and-set: the write below only commits if no
	// other process touched the key since we read it; otherwise the
	// transaction fails and we retry against the fresh value. This is
	// what keeps concurrent bet totals and card appends from losing
	// updates across server processes.
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrGameNotFound
		}
		if err != nil {
			return fmt.Errorf("get game state: %w", err)
		}

		var state models.GameState
		if err := json.Unmarshal(data, &state); err != nil {
			return fmt.Errorf("decode game state: %w", err)
		}
		if err := fn(&state); err != nil {
			return err
		}

		encoded, err := json.Marshal(&state)
		if err != nil {
			return fmt.Errorf("encode game state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &state
		return nil
	}

	for attempt := 0; attempt < updateConflictRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("update game state %s: gave up after %d conflicting writes", gameID, updateConflictRetries)
}

func (s *RedisStore) DeleteGameState(ctx context.Context, gameID string) error {
	return s.client.Del(ctx, gameKey(gameID), gameBetsKey(gameID), playersKey(gameID)).Err()
}

func (s *RedisStore) AddBet(ctx context.Context, betID string, bet *models.Bet) error {
	data, err := json.Marshal(bet)
	if err != nil {
		return fmt.Errorf("encode bet: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, betKey(betID), data, s.ttl)
	pipe.SAdd(ctx, gameBetsKey(bet.GameID), betID)
	pipe.Expire(ctx, gameBetsKey(bet.GameID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add bet: %w", err)
	}
	return nil
}

func (s *RedisStore) GetBet(ctx context.Context, betID string) (*models.Bet, error) {
	data, err := s.client.Get(ctx, betKey(betID)).Bytes()
	if err == redis.Nil {
		return nil, ErrBetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bet: %w", err)
	}

	var bet models.Bet
	if err := json.Unmarshal(data, &bet); err != nil {
		return nil, fmt.Errorf("decode bet: %w", err)
	}
	return &bet, nil
}

func (s *RedisStore) GetAllBets(ctx context.Context, gameID string) ([]*models.Bet, error) {
	betIDs, err := s.client.SMembers(ctx, gameBetsKey(gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list game bets: %w", err)
	}

	bets := make([]*models.Bet, 0, len(betIDs))
	for _, betID := range betIDs {
		bet, err := s.GetBet(ctx, betID)
		if err == ErrBetNotFound {
			// Bet expired ahead of the membership set.
			continue
		}
		if err != nil {
			return nil, err
		}
		bets = append(bets, bet)
	}
	return bets, nil
}

func (s *RedisStore) DeleteBet(ctx context.Context, betID string) error {
	bet, err := s.GetBet(ctx, betID)
	if err == ErrBetNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, betKey(betID))
	pipe.SRem(ctx, gameBetsKey(bet.GameID), betID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) AddPlayer(ctx context.Context, gameID string, userID int64) error {
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, playersKey(gameID), userID)
	pipe.Expire(ctx, playersKey(gameID), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) RemovePlayer(ctx context.Context, gameID string, userID int64) error {
	return s.client.SRem(ctx, playersKey(gameID), userID).Err()
}

func (s *RedisStore) GetPlayers(ctx context.Context, gameID string) ([]int64, error) {
	members, err := s.client.SMembers(ctx, playersKey(gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	players := make([]int64, 0, len(members))
	for _, member := range members {
		var userID int64
		if _, err := fmt.Sscanf(member, "%d", &userID); err != nil {
			continue
		}
		players = append(players, userID)
	}
	return players, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
